package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/edgegw/internal/auth/jwt"
)

// Response contract for rejected requests.
const (
	// TokenExpiredHeader is set to "true" when the token has expired.
	TokenExpiredHeader = "Token-Expired"

	// MessageTokenExpired is the body message for expired tokens.
	MessageTokenExpired = "Token expired, please login again"

	// MessageAuthenticationFailed is the body message for every other
	// authentication failure.
	MessageAuthenticationFailed = "Authentication failed"

	// UserIDHeader carries the authenticated subject upstream.
	UserIDHeader = "X-User-ID"

	// ClaimsKey is the gin context key for validated claims.
	ClaimsKey = "jwt_claims"
)

// ValidatorFunc returns the validator for the current request.
type ValidatorFunc func(c *gin.Context) *jwt.Validator

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger    *zap.Logger
	Validator ValidatorFunc
}

// Auth returns a middleware that requires a valid bearer token.
//
// An expired token gets a 401 with the Token-Expired header and the
// expiry message. Every other failure, including a missing token or an
// insecure transport, gets a 401 with the generic message. The failure
// is logged before the response is written.
func Auth(config AuthConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		validator := config.Validator(c)
		if validator == nil {
			config.Logger.Error("authentication failed",
				zap.String("outcome", jwt.OutcomeInvalid.String()),
				zap.String("reason", "no validator"),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("requestID", GetRequestID(c)),
			)
			reject(c, false)
			return
		}

		outcome := validator.ValidateRequest(c.Request.Context(), c.Request)
		if !outcome.OK() {
			config.Logger.Error("authentication failed",
				zap.String("outcome", outcome.Kind.String()),
				zap.Error(outcome.Reason),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("clientIP", c.ClientIP()),
				zap.String("requestID", GetRequestID(c)),
			)
			reject(c, outcome.Kind == jwt.OutcomeExpired)
			return
		}

		c.Set(ClaimsKey, outcome.Claims)
		c.Request = c.Request.WithContext(jwt.ContextWithClaims(c.Request.Context(), outcome.Claims))
		c.Request.Header.Del(UserIDHeader)
		if userID := outcome.Claims.UserID(); userID != "" {
			c.Request.Header.Set(UserIDHeader, userID)
		}

		c.Next()
	}
}

func reject(c *gin.Context, expired bool) {
	if expired {
		c.Header(TokenExpiredHeader, "true")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"Message": MessageTokenExpired})
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"Message": MessageAuthenticationFailed})
}

// GetClaims returns the validated claims from the context.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*jwt.Claims); ok && claims != nil {
			return claims, true
		}
	}
	return nil, false
}
