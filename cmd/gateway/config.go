package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigPrintCmd(opts))
	return cmd
}

func newConfigPrintCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Resolve the configuration and print it with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := opts.resolver()
			if err != nil {
				return err
			}
			cfg, err := resolver.Resolve()
			if err != nil {
				return err
			}

			var out []byte
			switch output {
			case "yaml":
				out, err = yaml.Marshal(cfg.Redacted())
			case "json":
				out, err = json.MarshalIndent(cfg.Redacted(), "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}
