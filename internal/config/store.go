package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store is the primary configuration store consulted for the base path
// when the environment does not provide one.
type Store interface {
	Lookup(key string) (string, bool)
}

// MapStore is an in-memory Store with case-insensitive keys.
type MapStore map[string]string

// Lookup implements Store.
func (s MapStore) Lookup(key string) (string, bool) {
	for k, v := range s {
		if NormalizeKey(k) == NormalizeKey(key) {
			return v, true
		}
	}
	return "", false
}

// YAMLStore is a Store backed by a bootstrap YAML file.
type YAMLStore struct {
	path   string
	values Values
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LoadYAMLStore reads a bootstrap YAML file. ${VAR} and ${VAR:-default}
// references are substituted from env before parsing; "$$" escapes a
// literal dollar sign.
func LoadYAMLStore(path string, env Env) (*YAMLStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration store %s: %w", path, err)
	}

	var tree any
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data), env)), &tree); err != nil {
		return nil, newConfigError(ErrMalformedSource, path, err)
	}

	values := make(Values)
	if tree != nil {
		if _, ok := tree.(map[string]any); !ok {
			return nil, newConfigError(ErrMalformedSource, path, fmt.Errorf("top level is not a mapping"))
		}
		values.flatten("", tree)
	}

	return &YAMLStore{path: path, values: values}, nil
}

// Lookup implements Store.
func (s *YAMLStore) Lookup(key string) (string, bool) {
	return s.values.Get(key)
}

// Path returns the file the store was loaded from.
func (s *YAMLStore) Path() string {
	return s.path
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns.
func substituteEnvVars(content string, env Env) string {
	const escaped = "\x00ESCAPED_DOLLAR\x00"

	content = strings.ReplaceAll(content, "$$", escaped)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if value, exists := env[submatches[1]]; exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, escaped, "$")
}
