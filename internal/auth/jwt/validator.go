package jwt

import (
	"context"
	"errors"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

const tracerName = "github.com/vyrodovalexey/edgegw/internal/auth/jwt"

// Validator validates bearer tokens against a Policy. It is safe for
// concurrent use.
type Validator struct {
	policy  *Policy
	logger  observability.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
	parser  *jwtlib.Parser
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics for the validator.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *Validator) {
		v.metrics = metrics
	}
}

// WithClock sets the time source used for lifetime checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator creates a validator for policy.
func NewValidator(policy *Policy, opts ...ValidatorOption) *Validator {
	v := &Validator{
		policy: policy,
		logger: observability.NopLogger(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	v.parser = jwtlib.NewParser(
		jwtlib.WithValidMethods(policy.algorithms),
		jwtlib.WithIssuer(policy.issuer),
		jwtlib.WithAudience(policy.audience),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(policy.clockSkew),
		jwtlib.WithTimeFunc(v.now),
	)

	return v
}

// Policy returns the validator's policy.
func (v *Validator) Policy() *Policy {
	return v.policy
}

// Validate checks token against the policy.
func (v *Validator) Validate(ctx context.Context, token string) Outcome {
	start := time.Now()

	_, span := v.tracer.Start(ctx, "jwt.Validate", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	outcome := v.validate(token)

	span.SetAttributes(attribute.String("jwt.outcome", outcome.Kind.String()))
	if outcome.Reason != nil {
		span.SetAttributes(attribute.String("jwt.reason", reasonLabel(outcome.Reason)))
	}
	if v.metrics != nil {
		v.metrics.RecordValidation(outcome, time.Since(start))
	}

	v.logger.Debug("token validated",
		observability.String("outcome", outcome.Kind.String()),
		observability.String("key_id", v.policy.keyID),
	)

	return outcome
}

// ValidateRequest checks the transport and the bearer token of r.
func (v *Validator) ValidateRequest(ctx context.Context, r *http.Request) Outcome {
	if v.policy.requireHTTPS && !IsSecureRequest(r, v.policy.trustedProxies) {
		outcome := invalid(ErrInsecureTransport, nil)
		if v.metrics != nil {
			v.metrics.RecordValidation(outcome, 0)
		}
		return outcome
	}

	token, err := ExtractBearer(r.Header.Get(AuthorizationHeader))
	if err != nil {
		outcome := invalid(kindOf(err), nil)
		if v.metrics != nil {
			v.metrics.RecordValidation(outcome, 0)
		}
		return outcome
	}

	return v.Validate(ctx, token)
}

// validate parses and classifies the token. The parser verifies the
// signature before any claim.
func (v *Validator) validate(token string) Outcome {
	if token == "" {
		return invalid(ErrMissingToken, nil)
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwtlib.Token) (any, error) {
		return v.policy.key, nil
	})
	if err != nil {
		return classify(err)
	}

	return success(claims)
}

// classify maps a parser error onto an outcome. Causes are tested in
// check order, so an earlier failing check wins over expiry.
func classify(err error) Outcome {
	switch {
	case errors.Is(err, jwtlib.ErrTokenMalformed):
		return invalid(ErrTokenMalformed, err)
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid),
		errors.Is(err, jwtlib.ErrTokenUnverifiable):
		return invalid(ErrTokenInvalidSignature, err)
	case errors.Is(err, jwtlib.ErrTokenInvalidIssuer):
		return invalid(ErrTokenInvalidIssuer, err)
	case errors.Is(err, jwtlib.ErrTokenInvalidAudience):
		return invalid(ErrTokenInvalidAudience, err)
	case errors.Is(err, jwtlib.ErrTokenRequiredClaimMissing):
		return invalid(ErrTokenMissingClaim, err)
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return expired(err)
	case errors.Is(err, jwtlib.ErrTokenNotValidYet),
		errors.Is(err, jwtlib.ErrTokenUsedBeforeIssued):
		return invalid(ErrTokenNotYetValid, err)
	default:
		return invalid(ErrTokenUnclassified, err)
	}
}

// kindOf returns the sentinel behind err.
func kindOf(err error) error {
	for _, kind := range []error{
		ErrMissingToken,
		ErrInsecureTransport,
		ErrTokenMalformed,
		ErrTokenInvalidSignature,
		ErrTokenInvalidIssuer,
		ErrTokenInvalidAudience,
		ErrTokenMissingClaim,
		ErrTokenExpired,
		ErrTokenNotYetValid,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrTokenUnclassified
}
