package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

func TestNewWatcher_WithOptions(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(Env{}, nil, DefaultSources())
	logger := observability.NopLogger()
	metrics := NewMetrics("test")

	watcher, err := NewWatcher(resolver, func(*Config) {},
		WithDebounceDelay(200*time.Millisecond),
		WithLogger(logger),
		WithErrorCallback(func(error) {}),
		WithMetrics(metrics),
	)
	require.NoError(t, err)
	defer func() { _ = watcher.Stop() }()

	assert.Equal(t, 200*time.Millisecond, watcher.debounceDelay)
	assert.Equal(t, logger, watcher.logger)
	assert.Same(t, metrics, watcher.metrics)
	assert.NotNil(t, watcher.errorCallback)
}

func TestWatcher_StartFailsWithoutBasePath(t *testing.T) {
	t.Parallel()

	watcher, err := NewWatcher(NewResolver(Env{}, nil, DefaultSources()), nil)
	require.NoError(t, err)

	err = watcher.Start(context.Background())
	assert.ErrorIs(t, err, ErrMissingBasePath)
	assert.Nil(t, watcher.GetLastConfig())
	assert.NoError(t, watcher.Stop())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	// Not parallel due to file system notifications.

	dir := newBaseDir(t)
	resolver := NewResolver(Env{EnvBasePath: dir}, nil, DefaultSources())
	metrics := NewMetrics("watcher_reload")

	var reloaded atomic.Pointer[Config]
	watcher, err := NewWatcher(resolver, func(cfg *Config) {
		reloaded.Store(cfg)
	}, WithDebounceDelay(10*time.Millisecond), WithMetrics(metrics))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))
	defer func() { _ = watcher.Stop() }()

	initial := watcher.GetLastConfig()
	require.NotNil(t, initial)
	assert.Equal(t, "gw", initial.JWT.Issuer)

	updated := `{"Environment":"Development","JwtConfig":{"SecretKey":"s","Issuer":"gw2","Audience":"clients"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		cfg := reloaded.Load()
		return cfg != nil && cfg.JWT.Issuer == "gw2"
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "gw2", watcher.GetLastConfig().JWT.Issuer)
	assert.Equal(t, "gw", initial.JWT.Issuer, "earlier snapshot is never mutated")
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.reloadTotal.WithLabelValues("success")), float64(1))
}

func TestWatcher_KeepsLastConfigOnFailure(t *testing.T) {
	// Not parallel due to file system notifications.

	dir := newBaseDir(t)
	resolver := NewResolver(Env{EnvBasePath: dir}, nil, DefaultSources())

	var errCount atomic.Int32
	watcher, err := NewWatcher(resolver, nil,
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(error) { errCount.Add(1) }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))
	defer func() { _ = watcher.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocelot.json"), []byte("{broken"), 0o600))

	require.Eventually(t, func() bool {
		return errCount.Load() > 0
	}, 5*time.Second, 20*time.Millisecond)

	cfg := watcher.GetLastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "gw", cfg.JWT.Issuer)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	// Not parallel due to file system notifications.

	dir := newBaseDir(t)

	var calls atomic.Int32
	watcher, err := NewWatcher(NewResolver(Env{EnvBasePath: dir}, nil, DefaultSources()),
		func(*Config) { calls.Add(1) },
		WithDebounceDelay(10*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, watcher.Start(ctx))
	defer func() { _ = watcher.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, calls.Load())
}

func TestMetrics_MustRegisterTwice(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewMetrics("dup")

	m.MustRegister(registry)
	assert.NotPanics(t, func() { m.MustRegister(registry) })

	m.RecordReload(nil)
	m.RecordReload(assert.AnError)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reloadTotal.WithLabelValues("error")))
}
