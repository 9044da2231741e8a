package config

import (
	"fmt"
	"strings"
	"time"
)

// Environment names.
const (
	EnvironmentProduction  = "Production"
	EnvironmentDevelopment = "Development"
)

// Config is the effective gateway configuration. It is immutable once
// resolved; a reload produces a new value.
type Config struct {
	// BasePath is the directory file sources are resolved against.
	BasePath string `mapstructure:"BasePath" validate:"required"`

	// Environment is the deployment environment name.
	Environment string `mapstructure:"Environment" validate:"required"`

	// JWT configures bearer token validation.
	JWT JWTConfig `mapstructure:"JwtConfig"`

	// Logging configures the logger and the remote log sink.
	Logging LoggingConfig `mapstructure:"SerilogConfig"`

	// Server configures the HTTP listeners.
	Server ServerConfig `mapstructure:"Server"`

	// Routes is handed to the routing engine.
	Routes []RouteConfig `mapstructure:"Routes" validate:"dive"`

	// SwaggerEndPoints lists the downstream API documents to aggregate.
	SwaggerEndPoints []SwaggerEndpoint `mapstructure:"SwaggerEndPoints" validate:"dive"`

	// Docs configures the documentation endpoint.
	Docs DocsConfig `mapstructure:"Docs"`

	// Tracing configures OpenTelemetry.
	Tracing TracingConfig `mapstructure:"Tracing"`

	// Sources names the layers that contributed, in applied order.
	Sources []string `mapstructure:"-"`

	values Values
}

// JWTConfig is the token validation section.
type JWTConfig struct {
	SecretKey string `mapstructure:"SecretKey" validate:"required"`
	Issuer    string `mapstructure:"Issuer" validate:"required"`
	Audience  string `mapstructure:"Audience" validate:"required"`

	// ClockSkew is the leeway applied to lifetime checks.
	ClockSkew time.Duration `mapstructure:"ClockSkew" validate:"min=0"`

	// AllowInsecureTransport accepts tokens over plain HTTP. Only for
	// deployments behind a proxy that does not set X-Forwarded-Proto or
	// whose address is not known in advance.
	AllowInsecureTransport bool `mapstructure:"AllowInsecureTransport"`
}

// LoggingConfig is the logging section.
type LoggingConfig struct {
	// SeqUrl is the base URL of the remote log server. Empty disables it.
	SeqUrl string `mapstructure:"SeqUrl" validate:"omitempty,url"` //nolint:revive // matches the configuration key

	// MinimumLevel is the initial minimum level.
	MinimumLevel string `mapstructure:"MinimumLevel"`

	// Format is json or console.
	Format string `mapstructure:"Format" validate:"oneof=json console"`
}

// ServerConfig is the listener section.
type ServerConfig struct {
	Address         string        `mapstructure:"Address"`
	Port            int           `mapstructure:"Port" validate:"min=1,max=65535"`
	AdminPort       int           `mapstructure:"AdminPort" validate:"min=0,max=65535"`
	TLSCertFile     string        `mapstructure:"TLSCertFile" validate:"required_with=TLSKeyFile"`
	TLSKeyFile      string        `mapstructure:"TLSKeyFile" validate:"required_with=TLSCertFile"`
	ReadTimeout     time.Duration `mapstructure:"ReadTimeout"`
	WriteTimeout    time.Duration `mapstructure:"WriteTimeout"`
	IdleTimeout     time.Duration `mapstructure:"IdleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"ShutdownTimeout"`

	// TrustedProxies lists the peers (addresses or CIDR ranges) whose
	// X-Forwarded-Proto header is believed.
	TrustedProxies []string `mapstructure:"TrustedProxies" validate:"dive,cidr|ip"`
}

// RouteConfig is one upstream-to-downstream route.
type RouteConfig struct {
	UpstreamPathTemplate   string        `mapstructure:"UpstreamPathTemplate" validate:"required,startswith=/"`
	UpstreamHttpMethod     []string      `mapstructure:"UpstreamHttpMethod"` //nolint:revive // matches the configuration key
	DownstreamScheme       string        `mapstructure:"DownstreamScheme" validate:"omitempty,oneof=http https"`
	DownstreamPathTemplate string        `mapstructure:"DownstreamPathTemplate" validate:"required,startswith=/"`
	DownstreamHostAndPorts []HostAndPort `mapstructure:"DownstreamHostAndPorts" validate:"min=1,dive"`
	SwaggerKey             string        `mapstructure:"SwaggerKey"`
}

// HostAndPort is a downstream address.
type HostAndPort struct {
	Host string `mapstructure:"Host" validate:"required"`
	Port int    `mapstructure:"Port" validate:"min=0,max=65535"`
}

// SwaggerEndpoint is one aggregated API document.
type SwaggerEndpoint struct {
	Key        string                  `mapstructure:"Key" validate:"required"`
	Config     []SwaggerEndpointConfig `mapstructure:"Config" validate:"min=1,dive"`
	PathPrefix string                  `mapstructure:"PathPrefix"`
}

// SwaggerEndpointConfig is one version of an aggregated document.
type SwaggerEndpointConfig struct {
	Name    string `mapstructure:"Name"`
	Version string `mapstructure:"Version" validate:"required"`
	Url     string `mapstructure:"Url" validate:"required,url"` //nolint:revive // matches the configuration key
}

// DocsConfig is the documentation endpoint section.
type DocsConfig struct {
	PathToSwaggerGenerator string        `mapstructure:"PathToSwaggerGenerator" validate:"startswith=/"`
	FetchTimeout           time.Duration `mapstructure:"FetchTimeout" validate:"gt=0"`
}

// TracingConfig is the OpenTelemetry section.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"Enabled"`
	ServiceName  string  `mapstructure:"ServiceName"`
	OTLPEndpoint string  `mapstructure:"OTLPEndpoint"`
	SamplingRate float64 `mapstructure:"SamplingRate" validate:"min=0,max=1"`
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// Get returns the raw merged value for a ':' separated key.
func (c *Config) Get(key string) (string, bool) {
	return c.values.Get(key)
}

// Endpoint returns the swagger endpoint with the given key.
func (c *Config) Endpoint(key string) (SwaggerEndpoint, bool) {
	for _, ep := range c.SwaggerEndPoints {
		if strings.EqualFold(ep.Key, key) {
			return ep, true
		}
	}
	return SwaggerEndpoint{}, false
}

// checkEndpointKeys rejects swagger endpoint keys that collide when
// compared case-insensitively, since lookups ignore case.
func (c *Config) checkEndpointKeys() error {
	seen := make(map[string]string, len(c.SwaggerEndPoints))
	for _, ep := range c.SwaggerEndPoints {
		folded := strings.ToLower(ep.Key)
		if prev, ok := seen[folded]; ok {
			return fmt.Errorf("duplicate swagger endpoint key %q (already declared as %q)", ep.Key, prev)
		}
		seen[folded] = ep.Key
	}
	return nil
}

// Redacted returns a copy safe for printing.
func (c *Config) Redacted() *Config {
	out := *c
	if out.JWT.SecretKey != "" {
		out.JWT.SecretKey = "******"
	}
	out.Routes = append([]RouteConfig(nil), c.Routes...)
	out.SwaggerEndPoints = append([]SwaggerEndpoint(nil), c.SwaggerEndPoints...)
	out.Sources = append([]string(nil), c.Sources...)
	out.values = nil
	return &out
}

// defaultValues are the built-in defaults, the lowest-precedence layer.
func defaultValues() map[string]string {
	return map[string]string{
		"Environment":                 EnvironmentProduction,
		"SerilogConfig:MinimumLevel":  "Information",
		"SerilogConfig:Format":        "json",
		"Server:Port":                 "8080",
		"Server:AdminPort":            "9090",
		"Server:ReadTimeout":          "30s",
		"Server:WriteTimeout":         "30s",
		"Server:IdleTimeout":          "120s",
		"Server:ShutdownTimeout":      "30s",
		"Docs:PathToSwaggerGenerator": "/swagger/docs",
		"Docs:FetchTimeout":           "10s",
		"Tracing:ServiceName":         "edgegw",
		"Tracing:SamplingRate":        "1",
	}
}
