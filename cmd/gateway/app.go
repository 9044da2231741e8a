package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/edgegw/internal/auth/jwt"
	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/docs"
	"github.com/vyrodovalexey/edgegw/internal/gateway"
	httpserver "github.com/vyrodovalexey/edgegw/internal/gateway/server/http"
	"github.com/vyrodovalexey/edgegw/internal/observability"
)

const (
	metricsNamespace       = "edgegw"
	defaultShutdownTimeout = 30 * time.Second
	maxHeaderBytes         = 1 << 20
	maxRequestBodySize     = 10 << 20
)

// application holds all application components.
type application struct {
	cfg     *config.Config
	logger  observability.Logger
	levels  *observability.LevelSwitch
	metrics *observability.Metrics
	tracer  *observability.Tracer
	gateway *gateway.Gateway
	public  *httpserver.Server
	admin   *httpserver.Server
	watcher *config.Watcher

	// levelOverride is the --log-level value. When set, reloads leave
	// the level switch alone.
	levelOverride string
}

// newApplication wires every component for cfg. The logger and level
// switch are built by the caller from the same configuration.
func newApplication(
	ctx context.Context,
	resolver *config.Resolver,
	cfg *config.Config,
	logger observability.Logger,
	levels *observability.LevelSwitch,
) (*application, error) {
	metrics := observability.NewMetrics(metricsNamespace)
	metrics.SetBuildInfo(version, gitCommit)

	jwtMetrics := jwt.NewMetrics(metricsNamespace)
	jwtMetrics.MustRegister(metrics.Registry())
	jwtMetrics.Init()

	docsMetrics := docs.NewMetrics(metricsNamespace)
	docsMetrics.MustRegister(metrics.Registry())

	configMetrics := config.NewMetrics(metricsNamespace)
	configMetrics.MustRegister(metrics.Registry())

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}

	fetcher := docs.NewFetcher(
		docs.WithFetchTimeout(cfg.Docs.FetchTimeout),
		docs.WithFetcherLogger(logger),
		docs.WithFetcherMetrics(docsMetrics),
	)

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithJWTMetrics(jwtMetrics),
		gateway.WithDocsMetrics(docsMetrics),
		gateway.WithFetcher(fetcher),
	)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	zapLogger := observability.ZapLogger(logger)

	public := httpserver.NewServer("gateway", serverConfig(cfg, cfg.Server.Port), zapLogger)
	httpserver.RegisterGatewayRoutes(public.Engine(), gw, httpserver.RouteOptions{
		Logger:      zapLogger,
		Metrics:     metrics,
		ServiceName: cfg.Tracing.ServiceName,
	})

	var admin *httpserver.Server
	if cfg.Server.AdminPort > 0 {
		adminCfg := serverConfig(cfg, cfg.Server.AdminPort)
		adminCfg.TLSCertFile, adminCfg.TLSKeyFile = "", ""
		admin = httpserver.NewServer("admin", adminCfg, zapLogger)
		httpserver.RegisterAdminRoutes(admin.Engine(), httpserver.AdminOptions{
			Logger:  zapLogger,
			Metrics: metrics,
			Levels:  levels,
			Gateway: gw,
		})
	}

	app := &application{
		cfg:     cfg,
		logger:  logger,
		levels:  levels,
		metrics: metrics,
		tracer:  tracer,
		gateway: gw,
		public:  public,
		admin:   admin,
	}

	watcher, err := config.NewWatcher(resolver, app.applyConfig,
		config.WithLogger(logger),
		config.WithMetrics(configMetrics),
		config.WithErrorCallback(func(err error) {
			logger.Error("configuration reload failed, keeping current configuration",
				observability.Error(err))
		}),
	)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	app.watcher = watcher

	return app, nil
}

// serverConfig maps the server section to a listener configuration.
func serverConfig(cfg *config.Config, port int) *httpserver.ServerConfig {
	return &httpserver.ServerConfig{
		Port:               port,
		Address:            cfg.Server.Address,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		MaxHeaderBytes:     maxHeaderBytes,
		TLSCertFile:        cfg.Server.TLSCertFile,
		TLSKeyFile:         cfg.Server.TLSKeyFile,
		MaxRequestBodySize: maxRequestBodySize,
	}
}

// applyConfig is the watcher callback. A configuration the gateway
// cannot build is logged and the current snapshot stays in place.
// Listener settings only take effect on restart, and the configured
// minimum level only applies when no override was given.
func (a *application) applyConfig(cfg *config.Config) {
	if err := a.gateway.Reload(cfg); err != nil {
		a.logger.Error("failed to apply configuration, keeping current snapshot",
			observability.Error(err))
		return
	}

	if a.levelOverride != "" {
		a.logger.Debug("log level override in effect, ignoring configured minimum level",
			observability.String("override", a.levelOverride),
			observability.String("level", cfg.Logging.MinimumLevel))
		return
	}

	if err := a.levels.Set(cfg.Logging.MinimumLevel); err != nil {
		a.logger.Warn("invalid minimum level in reloaded configuration",
			observability.String("level", cfg.Logging.MinimumLevel),
			observability.Error(err))
	}
}

// run serves until ctx is cancelled or a listener fails, then shuts
// every component down.
func (a *application) run(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		a.logger.Warn("configuration watcher disabled", observability.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.public.Start(gctx)
	})
	if a.admin != nil {
		g.Go(func() error {
			return a.admin.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	a.logger.Info("gateway started",
		observability.String("version", version),
		observability.String("environment", a.cfg.Environment),
		observability.Int("port", a.cfg.Server.Port),
		observability.Int("admin_port", a.cfg.Server.AdminPort),
	)

	return g.Wait()
}

// shutdown stops the listeners, the watcher and the tracer within the
// configured shutdown timeout.
func (a *application) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info("shutting down gateway", observability.Duration("timeout", timeout))

	var errs []error
	if err := a.public.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.admin != nil {
		if err := a.admin.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.watcher.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown completed with errors", observability.Error(err))
		return err
	}

	a.logger.Info("gateway stopped")
	return nil
}
