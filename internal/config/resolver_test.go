package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testRouteTable = `{
  "Routes": [
    {
      "UpstreamPathTemplate": "/orders/{everything}",
      "UpstreamHttpMethod": ["Get", "Post"],
      "DownstreamScheme": "http",
      "DownstreamPathTemplate": "/api/{everything}",
      "DownstreamHostAndPorts": [{"Host": "orders", "Port": 8081}],
      "SwaggerKey": "orders"
    }
  ],
  "SwaggerEndPoints": [
    {
      "Key": "orders",
      "Config": [{"Name": "Orders API", "Version": "v1", "Url": "http://orders:8081/swagger/v1/swagger.json"}]
    }
  ]
}`

const testSettings = `{
  "Environment": "Development",
  "JwtConfig": {"SecretKey": "0123456789abcdef0123456789abcdef", "Issuer": "gw", "Audience": "clients"},
  "SerilogConfig": {"SeqUrl": "http://seq:5341"}
}`

// writeSource writes a file under dir and returns its path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newBaseDir creates a base path holding the default sources.
func newBaseDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeSource(t, dir, "config.json", testSettings)
	writeSource(t, dir, "ocelot.json", testRouteTable)
	return dir
}

func TestResolve_BasePathFromEnvironment(t *testing.T) {
	t.Parallel()

	dir := newBaseDir(t)
	store := MapStore{"BasePath": "/ignored/by/env"}

	cfg, err := Resolve(Env{EnvBasePath: dir}, store, DefaultSources())
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.BasePath)
	assert.Equal(t, "gw", cfg.JWT.Issuer)
	assert.Equal(t, "clients", cfg.JWT.Audience)
	assert.Equal(t, "http://seq:5341", cfg.Logging.SeqUrl)
	assert.Equal(t, "Development", cfg.Environment)
	assert.False(t, cfg.IsProduction())

	// Defaults survive where the files are silent.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Docs.FetchTimeout)
	assert.Equal(t, "/swagger/docs", cfg.Docs.PathToSwaggerGenerator)

	require.Len(t, cfg.Routes, 1)
	route := cfg.Routes[0]
	assert.Equal(t, "/orders/{everything}", route.UpstreamPathTemplate)
	assert.Equal(t, []string{"Get", "Post"}, route.UpstreamHttpMethod)
	require.Len(t, route.DownstreamHostAndPorts, 1)
	assert.Equal(t, HostAndPort{Host: "orders", Port: 8081}, route.DownstreamHostAndPorts[0])

	require.Len(t, cfg.SwaggerEndPoints, 1)
	assert.Equal(t, "v1", cfg.SwaggerEndPoints[0].Config[0].Version)

	assert.Equal(t, []string{"defaults", "ocelot.json", "config.json", "environment", "base path"}, cfg.Sources)
}

func TestResolve_BasePathFromStore(t *testing.T) {
	t.Parallel()

	dir := newBaseDir(t)

	cfg, err := Resolve(Env{EnvBasePath: "   "}, MapStore{"basepath": dir}, DefaultSources())
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.BasePath)
}

func TestResolve_MissingBasePathFailsBeforeReadingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	malformed := writeSource(t, dir, "broken.json", "{not json")

	sources := []Source{
		{Name: "broken", Path: malformed, Required: true},
		{Name: "absent", Path: filepath.Join(dir, "absent.json"), Required: true},
	}

	for _, store := range []Store{nil, MapStore{}, MapStore{"BasePath": ""}} {
		cfg, err := Resolve(Env{}, store, sources)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.ErrorIs(t, err, ErrMissingBasePath)
		assert.NotErrorIs(t, err, ErrMalformedSource)
		assert.NotErrorIs(t, err, ErrMissingRequiredSource)
	}
}

func TestResolve_SettingsWinOverRouteTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSource(t, dir, "ocelot.json",
		`{"JwtConfig":{"SecretKey":"k","Issuer":"from-ocelot.json","Audience":"aud"}}`)
	writeSource(t, dir, "config.json", `{"JwtConfig":{"Issuer":"from-config.json"}}`)

	cfg, err := Resolve(Env{EnvBasePath: dir}, nil, DefaultSources())
	require.NoError(t, err)

	assert.Equal(t, "from-config.json", cfg.JWT.Issuer)
	assert.Equal(t, "aud", cfg.JWT.Audience)
	assert.Equal(t, []string{"defaults", "ocelot.json", "config.json", "environment", "base path"}, cfg.Sources)
}

func TestResolve_EnvironmentWinsOverAllFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSource(t, dir, "a.json", `{"JwtConfig":{"SecretKey":"k","Issuer":"from-a","Audience":"aud"}}`)
	writeSource(t, dir, "b.json", `{"JwtConfig":{"Issuer":"from-b"}}`)

	sources := []Source{Required("a.json"), Required("b.json")}

	cfg, err := Resolve(Env{EnvBasePath: dir}, nil, sources)
	require.NoError(t, err)
	assert.Equal(t, "from-b", cfg.JWT.Issuer, "later file wins over earlier file")

	cfg, err = Resolve(Env{EnvBasePath: dir, "JwtConfig__Issuer": "from-env"}, nil, sources)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Issuer, "environment wins over all files")
	assert.Equal(t, "aud", cfg.JWT.Audience)
}

func TestResolve_OptionalSourceSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSource(t, dir, "ocelot.json", `{"JwtConfig":{"SecretKey":"k","Issuer":"i","Audience":"a"}}`)

	cfg, err := Resolve(Env{EnvBasePath: dir}, nil, DefaultSources())
	require.NoError(t, err)
	assert.NotContains(t, cfg.Sources, "config.json")
	assert.Contains(t, cfg.Sources, "ocelot.json")
}

func TestResolve_SourceFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		sources []Source
		wantErr error
	}{
		{
			name:    "required source absent",
			files:   map[string]string{"config.json": testSettings},
			sources: DefaultSources(),
			wantErr: ErrMissingRequiredSource,
		},
		{
			name:    "required source malformed",
			files:   map[string]string{"config.json": testSettings, "ocelot.json": `{"Routes": [`},
			sources: DefaultSources(),
			wantErr: ErrMalformedSource,
		},
		{
			name:    "optional source malformed",
			files:   map[string]string{"config.json": `{"JwtConfig": }`, "ocelot.json": testRouteTable},
			sources: DefaultSources(),
			wantErr: ErrMalformedSource,
		},
		{
			name:    "top level array",
			files:   map[string]string{"x.json": `[1, 2]`},
			sources: []Source{Required("x.json")},
			wantErr: ErrMalformedSource,
		},
		{
			name:    "trailing content",
			files:   map[string]string{"x.json": `{} {}`},
			sources: []Source{Required("x.json")},
			wantErr: ErrMalformedSource,
		},
		{
			name:    "malformed yaml",
			files:   map[string]string{"x.yaml": "a: [b"},
			sources: []Source{Required("x.yaml")},
			wantErr: ErrMalformedSource,
		},
		{
			name: "swagger keys differ only by case",
			files: map[string]string{"x.json": `{
  "JwtConfig": {"SecretKey": "k", "Issuer": "i", "Audience": "a"},
  "SwaggerEndPoints": [
    {"Key": "orders", "Config": [{"Version": "v1", "Url": "http://orders/swagger.json"}]},
    {"Key": "ORDERS", "Config": [{"Version": "v1", "Url": "http://other/swagger.json"}]}
  ]
}`},
			sources: []Source{Required("x.json")},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "trusted proxy is not an address",
			files: map[string]string{"x.json": `{
  "JwtConfig": {"SecretKey": "k", "Issuer": "i", "Audience": "a"},
  "Server": {"TrustedProxies": ["10.0.0.0/8", "proxy.internal"]}
}`},
			sources: []Source{Required("x.json")},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "jwt section missing",
			files:   map[string]string{"ocelot.json": testRouteTable},
			sources: DefaultSources(),
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for name, content := range tt.files {
				writeSource(t, dir, name, content)
			}

			cfg, err := Resolve(Env{EnvBasePath: dir}, nil, tt.sources)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, tt.wantErr)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantErr, cfgErr.Kind)
		})
	}
}

func TestResolve_YAMLSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSource(t, dir, "settings.yaml", `
JwtConfig:
  SecretKey: yaml-secret
  Issuer: gw
  Audience: clients
Server:
  Port: 9443
  ReadTimeout: 5s
`)

	cfg, err := Resolve(Env{EnvBasePath: dir}, nil, []Source{Required("settings.yaml")})
	require.NoError(t, err)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "yaml-secret", cfg.JWT.SecretKey)
}

func TestResolve_Get(t *testing.T) {
	t.Parallel()

	dir := newBaseDir(t)

	cfg, err := Resolve(Env{EnvBasePath: dir, "Custom__Flag": "on"}, nil, DefaultSources())
	require.NoError(t, err)

	value, ok := cfg.Get("JWTCONFIG:ISSUER")
	require.True(t, ok)
	assert.Equal(t, "gw", value)

	value, ok = cfg.Get("custom:flag")
	require.True(t, ok)
	assert.Equal(t, "on", value)

	value, ok = cfg.Get("Routes:0:DownstreamHostAndPorts:0:Port")
	require.True(t, ok)
	assert.Equal(t, "8081", value)

	_, ok = cfg.Get("nope")
	assert.False(t, ok)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	dir := newBaseDir(t)
	env := Env{EnvBasePath: dir, "Server__Port": "8181"}

	first, err := Resolve(env, nil, DefaultSources())
	require.NoError(t, err)
	second, err := Resolve(env, nil, DefaultSources())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve_PrecedenceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp("", "edgegw-resolve-*")
		if err != nil {
			rt.Fatalf("temp dir: %v", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()

		value := rapid.StringMatching(`[a-z0-9]{1,12}`)
		fromFirst := value.Draw(rt, "first")
		fromSecond := value.Draw(rt, "second")
		fromEnv := value.Draw(rt, "env")
		useEnv := rapid.Bool().Draw(rt, "useEnv")

		first := `{"JwtConfig":{"SecretKey":"k","Issuer":"` + fromFirst + `","Audience":"a"}}`
		second := `{"JwtConfig":{"Issuer":"` + fromSecond + `"}}`
		if err := os.WriteFile(filepath.Join(dir, "1.json"), []byte(first), 0o600); err != nil {
			rt.Fatalf("write: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "2.json"), []byte(second), 0o600); err != nil {
			rt.Fatalf("write: %v", err)
		}

		env := Env{EnvBasePath: dir}
		want := fromSecond
		if useEnv {
			env["JwtConfig__Issuer"] = fromEnv
			want = fromEnv
		}

		sources := []Source{Required("1.json"), Required("2.json")}
		a, err := Resolve(env, nil, sources)
		if err != nil {
			rt.Fatalf("resolve: %v", err)
		}
		b, err := Resolve(env, nil, sources)
		if err != nil {
			rt.Fatalf("resolve: %v", err)
		}

		if a.JWT.Issuer != want {
			rt.Fatalf("issuer = %q, want %q", a.JWT.Issuer, want)
		}
		if a.JWT.Issuer != b.JWT.Issuer || a.BasePath != b.BasePath {
			rt.Fatalf("resolution is not idempotent")
		}
	})
}

func TestResolveBasePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     Env
		store   Store
		want    string
		wantErr bool
	}{
		{name: "env wins", env: Env{EnvBasePath: "/etc/gw"}, store: MapStore{"BasePath": "/srv/gw"}, want: "/etc/gw"},
		{name: "store fallback", env: Env{}, store: MapStore{"BasePath": "/srv/gw"}, want: "/srv/gw"},
		{name: "blank env falls back", env: Env{EnvBasePath: ""}, store: MapStore{"BasePath": " /srv/gw "}, want: "/srv/gw"},
		{name: "nil store", env: Env{}, store: nil, wantErr: true},
		{name: "blank store", env: Env{}, store: MapStore{"BasePath": "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveBasePath(tt.env, tt.store)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingBasePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvFromOS(t *testing.T) {
	t.Setenv("EDGEGW_TEST_VALUE", "a=b")

	env := EnvFromOS()
	assert.Equal(t, "a=b", env["EDGEGW_TEST_VALUE"])
}

func TestConfig_Redacted(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve(Env{EnvBasePath: newBaseDir(t)}, nil, DefaultSources())
	require.NoError(t, err)

	redacted := cfg.Redacted()
	assert.Equal(t, "******", redacted.JWT.SecretKey)
	assert.NotEqual(t, "******", cfg.JWT.SecretKey)
	_, ok := redacted.Get("JwtConfig:SecretKey")
	assert.False(t, ok)
}

func TestConfig_Endpoint(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve(Env{EnvBasePath: newBaseDir(t)}, nil, DefaultSources())
	require.NoError(t, err)

	ep, ok := cfg.Endpoint("ORDERS")
	require.True(t, ok)
	assert.Equal(t, "orders", ep.Key)

	_, ok = cfg.Endpoint("billing")
	assert.False(t, ok)
}
