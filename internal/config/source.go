package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one base-path-relative configuration file.
type Source struct {
	// Name identifies the source in errors and provenance.
	Name string

	// Path is the file path. Relative paths are joined to the base path.
	Path string

	// Required makes a missing file fatal.
	Required bool
}

// DefaultSources returns the gateway's file sources in declared order:
// the route table, then the application settings, so config.json wins
// where both set a key.
func DefaultSources() []Source {
	return []Source{
		{Name: "ocelot.json", Path: "ocelot.json", Required: true},
		{Name: "config.json", Path: "config.json", Required: false},
	}
}

// Optional declares an optional source named after its path.
func Optional(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// Required declares a required source named after its path.
func Required(path string) Source {
	return Source{Name: filepath.Base(path), Path: path, Required: true}
}

// resolvePath returns the source path relative to basePath.
func (s Source) resolvePath(basePath string) string {
	if filepath.IsAbs(s.Path) {
		return s.Path
	}
	return filepath.Join(basePath, s.Path)
}

// name returns the display name of the source.
func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

// parseSource decodes file content into a tree according to the file
// extension. JSON is the default format.
func parseSource(path string, data []byte) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

// parseJSON decodes a JSON object, keeping numbers as their literal text.
func parseJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected content after top-level value")
	}

	m, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level is not an object")
	}
	return m, nil
}

// parseYAML decodes a YAML mapping. An empty document yields no values.
func parseYAML(data []byte) (map[string]any, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		return map[string]any{}, nil
	}

	m, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	return m, nil
}
