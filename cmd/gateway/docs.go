package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/edgegw/internal/docs"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Work with aggregated API documents",
	}
	cmd.AddCommand(newDocsRewriteCmd())
	return cmd
}

func newDocsRewriteCmd() *cobra.Command {
	var (
		prefix string
		indent int
	)

	cmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Re-indent a document, reading stdin when no file or - is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			rewriterOpts := []docs.RewriterOption{docs.WithIndent(strings.Repeat(" ", max(indent, 0)))}
			if prefix != "" {
				rewriterOpts = append(rewriterOpts, docs.WithTransforms(docs.PrefixPaths(prefix)))
			}

			out, err := docs.NewRewriter(rewriterOpts...).Rewrite(raw)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if _, err := w.Write(out); err != nil {
				return err
			}
			_, err = io.WriteString(w, "\n")
			return err
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix every path in the document")
	cmd.Flags().IntVar(&indent, "indent", len(docs.DefaultIndent), "Spaces per indentation level")
	return cmd
}
