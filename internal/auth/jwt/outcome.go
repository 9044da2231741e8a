package jwt

// OutcomeKind tags a validation outcome.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeInvalid OutcomeKind = iota
	OutcomeExpired
	OutcomeSuccess
)

// String returns the outcome name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Outcome is the result of validating one token.
type Outcome struct {
	Kind OutcomeKind

	// Reason is nil on success and a *ValidationError otherwise.
	Reason error

	// Claims is set on success.
	Claims *Claims
}

// OK reports whether the token was accepted.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func success(claims *Claims) Outcome {
	return Outcome{Kind: OutcomeSuccess, Claims: claims}
}

func expired(cause error) Outcome {
	return Outcome{Kind: OutcomeExpired, Reason: NewValidationError(ErrTokenExpired, cause)}
}

func invalid(kind, cause error) Outcome {
	return Outcome{Kind: OutcomeInvalid, Reason: NewValidationError(kind, cause)}
}
