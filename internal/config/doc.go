// Package config resolves the gateway's effective configuration.
//
// Resolution is an explicit pipeline of layers applied to a flattened,
// case-insensitive key/value accumulator. Keys use ':' as the section
// separator, so "JwtConfig:Issuer" and "jwtconfig:issuer" name the same
// value.
//
// # Resolution Order
//
//  1. The base path is taken from the BASE_PATH environment variable, or
//     from the "BasePath" key of the configuration store. A missing base
//     path is fatal and is reported before any file is read.
//  2. Built-in defaults.
//  3. Each file source, in declared order, relative to the base path.
//  4. Every environment variable ("Section__Key" addresses "Section:Key").
//
// Later layers override earlier ones key by key. The accumulated values
// are bound onto Config with mapstructure and checked with validator.
//
//	cfg, err := config.Resolve(config.EnvFromOS(), store, config.DefaultSources())
//	if err != nil {
//	    // fatal: log, flush, exit
//	}
//
// # Hot Reload
//
// Watcher observes the base path directory and re-runs resolution with
// the captured inputs whenever a source changes:
//
//	watcher, err := config.NewWatcher(resolver, func(cfg *config.Config) {
//	    gw.Reload(cfg)
//	}, config.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    return err
//	}
//	defer watcher.Stop()
package config
