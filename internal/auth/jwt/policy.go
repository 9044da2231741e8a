package jwt

import (
	"crypto"
	"encoding/base64"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// HMAC algorithms accepted for symmetric keys.
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
)

// Policy is the immutable set of rules a token must satisfy.
type Policy struct {
	key          []byte
	keyID        string
	issuer       string
	audience     string
	algorithms   []string
	clockSkew    time.Duration
	requireHTTPS bool

	proxies        []string
	trustedProxies []netip.Prefix
}

// PolicyOption is a functional option for the policy.
type PolicyOption func(*Policy)

// WithClockSkew sets the tolerance applied to lifetime checks.
func WithClockSkew(skew time.Duration) PolicyOption {
	return func(p *Policy) {
		if skew >= 0 {
			p.clockSkew = skew
		}
	}
}

// WithAlgorithms restricts the accepted HMAC algorithms.
func WithAlgorithms(algorithms ...string) PolicyOption {
	return func(p *Policy) {
		p.algorithms = append([]string(nil), algorithms...)
	}
}

// WithRequireHTTPS sets whether requests must arrive over HTTPS.
func WithRequireHTTPS(require bool) PolicyOption {
	return func(p *Policy) {
		p.requireHTTPS = require
	}
}

// WithTrustedProxies sets the peers whose X-Forwarded-Proto header is
// believed. Values are addresses or CIDR ranges.
func WithTrustedProxies(proxies ...string) PolicyOption {
	return func(p *Policy) {
		p.proxies = append(p.proxies, proxies...)
	}
}

// NewPolicy creates a policy from the JwtConfig values. The secret is
// used as a symmetric HMAC key.
func NewPolicy(secretKey, issuer, audience string, opts ...PolicyOption) (*Policy, error) {
	var missing []string
	if secretKey == "" {
		missing = append(missing, "SecretKey")
	}
	if strings.TrimSpace(issuer) == "" {
		missing = append(missing, "Issuer")
	}
	if strings.TrimSpace(audience) == "" {
		missing = append(missing, "Audience")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPolicy, strings.Join(missing, ", "))
	}

	p := &Policy{
		key:          []byte(secretKey),
		issuer:       issuer,
		audience:     audience,
		algorithms:   []string{AlgHS256, AlgHS384, AlgHS512},
		requireHTTPS: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	for _, alg := range p.algorithms {
		switch alg {
		case AlgHS256, AlgHS384, AlgHS512:
		default:
			return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidPolicy, alg)
		}
	}
	if len(p.algorithms) == 0 {
		return nil, fmt.Errorf("%w: no algorithms allowed", ErrInvalidPolicy)
	}

	for _, proxy := range p.proxies {
		prefix, err := ParseTrustedProxy(proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted proxy %q: %w", ErrInvalidPolicy, proxy, err)
		}
		p.trustedProxies = append(p.trustedProxies, prefix)
	}
	p.proxies = nil

	keyID, err := thumbprint(p.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	p.keyID = keyID

	return p, nil
}

// thumbprint returns the RFC 7638 SHA-256 thumbprint of the key as an
// oct JWK.
func thumbprint(secret []byte) (string, error) {
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return "", err
	}
	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

// KeyID identifies the signing key without revealing it.
func (p *Policy) KeyID() string { return p.keyID }

// Issuer returns the expected issuer.
func (p *Policy) Issuer() string { return p.issuer }

// Audience returns the expected audience.
func (p *Policy) Audience() string { return p.audience }

// Algorithms returns the accepted algorithms.
func (p *Policy) Algorithms() []string { return append([]string(nil), p.algorithms...) }

// ClockSkew returns the lifetime tolerance.
func (p *Policy) ClockSkew() time.Duration { return p.clockSkew }

// RequireHTTPS reports whether requests must arrive over HTTPS.
func (p *Policy) RequireHTTPS() bool { return p.requireHTTPS }

// TrustedProxies returns the peers whose forwarded scheme is believed.
func (p *Policy) TrustedProxies() []netip.Prefix {
	return append([]netip.Prefix(nil), p.trustedProxies...)
}
