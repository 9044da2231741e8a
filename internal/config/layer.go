package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// Layer is one step of the resolution pipeline. Apply writes the layer's
// keys into the accumulator, overriding earlier values.
type Layer interface {
	Name() string
	Apply(values Values) error
}

// errSourceSkipped reports that an optional source is absent.
var errSourceSkipped = errors.New("source skipped")

// defaultsLayer seeds the built-in defaults.
type defaultsLayer struct{}

func (defaultsLayer) Name() string { return "defaults" }

func (defaultsLayer) Apply(values Values) error {
	for k, v := range defaultValues() {
		values.Set(k, v)
	}
	return nil
}

// fileLayer applies one file source.
type fileLayer struct {
	source   Source
	basePath string
}

func (l fileLayer) Name() string { return l.source.name() }

func (l fileLayer) Apply(values Values) error {
	path := l.source.resolvePath(l.basePath)

	data, err := os.ReadFile(path) //nolint:gosec // paths come from declared sources
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if l.source.Required {
				return newConfigError(ErrMissingRequiredSource, path, err)
			}
			return errSourceSkipped
		}
		return newConfigError(ErrMalformedSource, path, err)
	}

	tree, err := parseSource(path, data)
	if err != nil {
		return newConfigError(ErrMalformedSource, path, err)
	}

	values.flatten("", tree)
	return nil
}

// envLayer applies every environment variable. A double underscore in
// the name separates sections.
type envLayer struct {
	env Env
}

func (envLayer) Name() string { return "environment" }

func (l envLayer) Apply(values Values) error {
	names := make([]string, 0, len(l.env))
	for name := range l.env {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values.Set(EnvKey(name), l.env[name])
	}
	return nil
}

// EnvKey maps an environment variable name to a flattened key.
func EnvKey(name string) string {
	return strings.ReplaceAll(name, "__", KeyDelimiter)
}

// basePathLayer records the resolved base path.
type basePathLayer struct {
	basePath string
}

func (basePathLayer) Name() string { return "base path" }

func (l basePathLayer) Apply(values Values) error {
	values.Set("BasePath", l.basePath)
	return nil
}

// Layers returns the resolution pipeline for a resolved base path.
func Layers(basePath string, env Env, sources []Source) []Layer {
	layers := make([]Layer, 0, len(sources)+3)
	layers = append(layers, defaultsLayer{})
	for _, source := range sources {
		layers = append(layers, fileLayer{source: source, basePath: basePath})
	}
	layers = append(layers, envLayer{env: env}, basePathLayer{basePath: basePath})
	return layers
}
