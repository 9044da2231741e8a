package config

import (
	"errors"
	"os"
	"strings"
)

// Environment variable names read by the resolver.
const (
	// EnvBasePath overrides the store's base path.
	EnvBasePath = "BASE_PATH"

	// EnvStorePath points at the bootstrap YAML configuration store.
	EnvStorePath = "GATEWAY_CONFIG_PATH"

	// StoreBasePathKey is the store key consulted for the base path.
	StoreBasePathKey = "BasePath"
)

// Env is a snapshot of environment variables.
type Env map[string]string

// EnvFromOS captures the process environment.
func EnvFromOS() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// ResolveBasePath returns the base path from env, falling back to the
// store. Blank values count as absent.
func ResolveBasePath(env Env, store Store) (string, error) {
	if basePath := strings.TrimSpace(env[EnvBasePath]); basePath != "" {
		return basePath, nil
	}

	if store != nil {
		if basePath, ok := store.Lookup(StoreBasePathKey); ok && strings.TrimSpace(basePath) != "" {
			return strings.TrimSpace(basePath), nil
		}
	}

	return "", newConfigError(ErrMissingBasePath, "",
		errors.New("set "+EnvBasePath+" or "+StoreBasePathKey+" in the configuration store"))
}

// Resolver captures resolution inputs so the configuration can be
// resolved again on reload.
type Resolver struct {
	env     Env
	store   Store
	sources []Source
}

// NewResolver creates a resolver. A nil store is treated as empty.
func NewResolver(env Env, store Store, sources []Source) *Resolver {
	return &Resolver{
		env:     env,
		store:   store,
		sources: append([]Source(nil), sources...),
	}
}

// Resolve is shorthand for NewResolver(env, store, sources).Resolve().
func Resolve(env Env, store Store, sources []Source) (*Config, error) {
	return NewResolver(env, store, sources).Resolve()
}

// BasePath resolves only the base path.
func (r *Resolver) BasePath() (string, error) {
	return ResolveBasePath(r.env, r.store)
}

// Resolve runs the full pipeline. The base path is resolved before any
// file source is read.
func (r *Resolver) Resolve() (*Config, error) {
	basePath, err := r.BasePath()
	if err != nil {
		return nil, err
	}

	values := make(Values)
	applied := make([]string, 0, len(r.sources)+3)

	for _, layer := range Layers(basePath, r.env, r.sources) {
		if err := layer.Apply(values); err != nil {
			if errors.Is(err, errSourceSkipped) {
				continue
			}
			return nil, err
		}
		applied = append(applied, layer.Name())
	}

	cfg, err := Bind(values)
	if err != nil {
		return nil, err
	}
	cfg.Sources = applied

	return cfg, nil
}
