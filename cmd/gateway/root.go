package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// addFlags registers the persistent flags. Defaults come from the
// environment so the container image needs no arguments.
func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", getEnvOrDefault(config.EnvStorePath, ""),
		"Path to the bootstrap configuration store (YAML)")
	fs.StringVar(&o.logLevel, "log-level", getEnvOrDefault(envLogLevel, ""),
		"Log level override (debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", getEnvOrDefault(envLogFormat, ""),
		"Log format override (json, console)")
}

// resolver builds the configuration resolver from the process
// environment and the optional bootstrap store.
func (o *rootOptions) resolver() (*config.Resolver, error) {
	env := config.EnvFromOS()

	var store config.Store = config.MapStore{}
	if o.configPath != "" {
		yamlStore, err := config.LoadYAMLStore(o.configPath, env)
		if err != nil {
			return nil, err
		}
		store = yamlStore
	}

	return config.NewResolver(env, store, config.DefaultSources()), nil
}

// bootstrapLogger creates the logger used until the configuration is
// resolved. It writes to stderr so command output stays clean.
func (o *rootOptions) bootstrapLogger() (observability.Logger, error) {
	level := o.logLevel
	if level == "" {
		level = "info"
	}
	levels, err := observability.NewLevelSwitch(level)
	if err != nil {
		return nil, err
	}

	cfg := observability.DefaultLogConfig()
	cfg.Output = "stderr"
	if o.logFormat != "" {
		cfg.Format = o.logFormat
	}
	return observability.NewLogger(cfg, levels)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "edgegw",
		Short:         "Edge gateway with JWT validation and API document aggregation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(versionText() + "\n")
	opts.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newDocsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionText())
		},
	}
}

func versionText() string {
	return fmt.Sprintf("edgegw version %s\n  Build time: %s\n  Git commit: %s", version, buildTime, gitCommit)
}
