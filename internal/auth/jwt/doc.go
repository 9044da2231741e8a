// Package jwt validates bearer tokens for the edge gateway.
//
// A Policy is built once from the JwtConfig section and never changes.
// Signature, issuer, audience and lifetime checks are always applied
// together; the policy has no switch to disable any of them.
//
// Validate is a pure function of the token, the policy and the clock. It
// returns an Outcome instead of writing a response, so the HTTP layer
// decides how each outcome is rendered:
//
//	policy, err := jwt.NewPolicy(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience)
//	if err != nil {
//	    return err
//	}
//	validator := jwt.NewValidator(policy, jwt.WithValidatorLogger(logger))
//
//	switch outcome := validator.ValidateRequest(ctx, r); outcome.Kind {
//	case jwt.OutcomeSuccess:
//	    // proceed with outcome.Claims
//	case jwt.OutcomeExpired:
//	    // ask the caller to log in again
//	default:
//	    // generic authentication failure, outcome.Reason says why
//	}
//
// Checks run in a fixed order: token shape and signature, issuer,
// audience, then lifetime. The first failing check decides the outcome,
// so a token with a wrong issuer is Invalid even when it has also
// expired.
package jwt
