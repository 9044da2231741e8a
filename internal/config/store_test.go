package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStore_Lookup(t *testing.T) {
	t.Parallel()

	store := MapStore{"BasePath": "/etc/gw"}

	value, ok := store.Lookup("basepath")
	require.True(t, ok)
	assert.Equal(t, "/etc/gw", value)

	_, ok = store.Lookup("other")
	assert.False(t, ok)
}

func TestLoadYAMLStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeSource(t, dir, "gateway.yaml", `
BasePath: ${GW_ROOT:-/opt/gw}/conf
Price: $$5
Nested:
  Key: ${MISSING}
`)

	store, err := LoadYAMLStore(path, Env{})
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	value, ok := store.Lookup("BasePath")
	require.True(t, ok)
	assert.Equal(t, "/opt/gw/conf", value)

	value, _ = store.Lookup("price")
	assert.Equal(t, "$5", value)

	value, ok = store.Lookup("Nested:Key")
	assert.True(t, ok)
	assert.Empty(t, value)

	store, err = LoadYAMLStore(path, Env{"GW_ROOT": "/etc/gw"})
	require.NoError(t, err)
	value, _ = store.Lookup("BasePath")
	assert.Equal(t, "/etc/gw/conf", value)
}

func TestLoadYAMLStore_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadYAMLStore(filepath.Join(dir, "absent.yaml"), Env{})
	assert.Error(t, err)

	path := writeSource(t, dir, "bad.yaml", "key: [unclosed")
	_, err = LoadYAMLStore(path, Env{})
	assert.ErrorIs(t, err, ErrMalformedSource)

	path = writeSource(t, dir, "list.yaml", "- a\n- b\n")
	_, err = LoadYAMLStore(path, Env{})
	assert.ErrorIs(t, err, ErrMalformedSource)

	path = writeSource(t, dir, "empty.yaml", "")
	store, err := LoadYAMLStore(path, Env{})
	require.NoError(t, err)
	_, ok := store.Lookup("BasePath")
	assert.False(t, ok)
}

func TestStore_FeedsResolver(t *testing.T) {
	t.Parallel()

	base := newBaseDir(t)
	storeDir := t.TempDir()
	path := writeSource(t, storeDir, "gateway.yaml", "BasePath: ${ROOT}\n")

	env := Env{"ROOT": base}
	store, err := LoadYAMLStore(path, env)
	require.NoError(t, err)

	cfg, err := Resolve(env, store, DefaultSources())
	require.NoError(t, err)
	assert.Equal(t, base, cfg.BasePath)
}
