package gateway

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/edgegw/internal/auth/jwt"
	"github.com/vyrodovalexey/edgegw/internal/config"
	"github.com/vyrodovalexey/edgegw/internal/docs"
	"github.com/vyrodovalexey/edgegw/internal/observability"
	"github.com/vyrodovalexey/edgegw/internal/routing"
)

// Snapshot is one immutable generation of runtime state.
type Snapshot struct {
	// Generation increases by one with every successful build.
	Generation uint64

	// LoadedAt is when the snapshot was built.
	LoadedAt time.Time

	Config    *config.Config
	Validator *jwt.Validator
	Handler   http.Handler
	Docs      *docs.Service
}

// Gateway publishes the current snapshot.
type Gateway struct {
	engine      routing.Engine
	logger      observability.Logger
	jwtMetrics  *jwt.Metrics
	docsMetrics *docs.Metrics
	fetcher     *docs.Fetcher
	clock       func() time.Time

	current atomic.Pointer[Snapshot]

	// mu serializes builds so generations are assigned in swap order.
	mu         sync.Mutex
	generation uint64
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithEngine sets the routing engine.
func WithEngine(engine routing.Engine) Option {
	return func(g *Gateway) {
		g.engine = engine
	}
}

// WithJWTMetrics sets the metrics passed to every validator.
func WithJWTMetrics(metrics *jwt.Metrics) Option {
	return func(g *Gateway) {
		g.jwtMetrics = metrics
	}
}

// WithDocsMetrics sets the metrics passed to every docs service.
func WithDocsMetrics(metrics *docs.Metrics) Option {
	return func(g *Gateway) {
		g.docsMetrics = metrics
	}
}

// WithFetcher sets the document fetcher. Breaker state lives in the
// fetcher, so it is shared across snapshots.
func WithFetcher(fetcher *docs.Fetcher) Option {
	return func(g *Gateway) {
		g.fetcher = fetcher
	}
}

// WithClock sets the validator clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.clock = now
	}
}

// New creates a gateway and builds its first snapshot.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.engine == nil {
		g.engine = routing.NewForwardEngine(routing.WithLogger(g.logger))
	}

	if err := g.Reload(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

// Snapshot returns the current snapshot.
func (g *Gateway) Snapshot() *Snapshot {
	return g.current.Load()
}

// Reload builds a snapshot for cfg and makes it current. On failure the
// current snapshot is kept.
func (g *Gateway) Reload(cfg *config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap, err := g.BuildSnapshot(cfg)
	if err != nil {
		return err
	}

	g.generation++
	snap.Generation = g.generation
	g.current.Store(snap)

	policy := snap.Validator.Policy()
	g.logger.Info("gateway snapshot active",
		observability.Int("generation", int(snap.Generation)),
		observability.String("environment", cfg.Environment),
		observability.String("jwt_key_id", policy.KeyID()),
		observability.String("jwt_issuer", policy.Issuer()),
		observability.Int("routes", len(cfg.Routes)),
		observability.Int("documents", len(cfg.SwaggerEndPoints)),
		observability.Strings("sources", cfg.Sources),
	)
	return nil
}

// BuildSnapshot builds a snapshot without publishing it.
func (g *Gateway) BuildSnapshot(cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	policyOpts := []jwt.PolicyOption{
		jwt.WithClockSkew(cfg.JWT.ClockSkew),
		jwt.WithRequireHTTPS(!cfg.JWT.AllowInsecureTransport),
		jwt.WithTrustedProxies(cfg.Server.TrustedProxies...),
	}
	policy, err := jwt.NewPolicy(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience, policyOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	validatorOpts := []jwt.ValidatorOption{jwt.WithValidatorLogger(g.logger)}
	if g.jwtMetrics != nil {
		validatorOpts = append(validatorOpts, jwt.WithValidatorMetrics(g.jwtMetrics))
	}
	if g.clock != nil {
		validatorOpts = append(validatorOpts, jwt.WithClock(g.clock))
	}

	handler, err := g.engine.Handler(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	fetcher := g.fetcher
	if fetcher == nil {
		fetcher = docs.NewFetcher(
			docs.WithFetchTimeout(cfg.Docs.FetchTimeout),
			docs.WithFetcherLogger(g.logger),
			docs.WithFetcherMetrics(g.docsMetrics),
		)
	}

	return &Snapshot{
		LoadedAt:  time.Now(),
		Config:    cfg,
		Validator: jwt.NewValidator(policy, validatorOpts...),
		Handler:   handler,
		Docs: docs.NewService(cfg.SwaggerEndPoints, fetcher,
			docs.WithRoute(cfg.Docs.PathToSwaggerGenerator),
			docs.WithServiceLogger(g.logger),
			docs.WithServiceMetrics(g.docsMetrics),
		),
	}, nil
}
