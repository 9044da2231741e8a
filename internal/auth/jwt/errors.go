package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for token validation.
var (
	// ErrTokenMalformed indicates that the token is not a well-formed JWT.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenExpired indicates that the token's lifetime has elapsed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenNotYetValid indicates that the token's lifetime has not started.
	ErrTokenNotYetValid = errors.New("token is not yet valid")

	// ErrTokenInvalidSignature indicates that the signature does not verify
	// or uses a disallowed algorithm.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenInvalidIssuer indicates that the issuer does not match.
	ErrTokenInvalidIssuer = errors.New("token issuer is invalid")

	// ErrTokenInvalidAudience indicates that the audience does not match.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrTokenMissingClaim indicates that a required claim is absent.
	ErrTokenMissingClaim = errors.New("required claim is missing")

	// ErrMissingToken indicates that the request carries no bearer token.
	ErrMissingToken = errors.New("bearer token is missing")

	// ErrInsecureTransport indicates that the request did not arrive over HTTPS.
	ErrInsecureTransport = errors.New("request was not made over https")

	// ErrTokenUnclassified indicates a failure that matches no known cause.
	ErrTokenUnclassified = errors.New("token validation failed")

	// ErrInvalidPolicy indicates that the policy settings are incomplete.
	ErrInvalidPolicy = errors.New("token validation policy is invalid")
)

// ValidationError represents a token validation failure.
type ValidationError struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Cause is the underlying parser error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation error: %v: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("jwt validation error: %v", e.Kind)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == e.Kind
}

// NewValidationError creates a new ValidationError.
func NewValidationError(kind, cause error) *ValidationError {
	return &ValidationError{
		Kind:  kind,
		Cause: cause,
	}
}
