package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

// runServe resolves the configuration and serves until ctx is done. A
// configuration that cannot be resolved is fatal: it is logged, the
// logger is flushed and the process exits.
func runServe(ctx context.Context, opts *rootOptions) error {
	bootstrap, err := opts.bootstrapLogger()
	if err != nil {
		return err
	}

	resolver, err := opts.resolver()
	if err != nil {
		fatalWithSync(bootstrap, "failed to load configuration store",
			observability.String("path", opts.configPath),
			observability.Error(err))
		return err
	}

	cfg, err := resolver.Resolve()
	if err != nil {
		fatalWithSync(bootstrap, "failed to resolve configuration", observability.Error(err))
		return err
	}

	logger, levels, err := newLogger(opts, cfg)
	if err != nil {
		fatalWithSync(bootstrap, "failed to create logger", observability.Error(err))
		return err
	}
	defer func() { _ = logger.Sync() }()
	observability.SetGlobalLogger(logger)

	logger.Info("configuration resolved",
		observability.String("base_path", cfg.BasePath),
		observability.String("environment", cfg.Environment),
		observability.Strings("sources", cfg.Sources),
	)

	app, err := newApplication(ctx, resolver, cfg, logger, levels)
	if err != nil {
		fatalWithSync(logger, "failed to initialize gateway", observability.Error(err))
		return err
	}
	app.levelOverride = opts.logLevel

	return app.run(ctx)
}

// newLogger creates the runtime logger. Flags override the configured
// level and format.
func newLogger(opts *rootOptions, cfg *config.Config) (observability.Logger, *observability.LevelSwitch, error) {
	level := cfg.Logging.MinimumLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	levels, err := observability.NewLevelSwitch(level)
	if err != nil {
		return nil, nil, err
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Format = cfg.Logging.Format
	if opts.logFormat != "" {
		logCfg.Format = opts.logFormat
	}
	logCfg.SinkURL = cfg.Logging.SeqUrl

	logger, err := observability.NewLogger(logCfg, levels)
	if err != nil {
		return nil, nil, err
	}
	return logger, levels, nil
}
