package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageInternalError is the body message for recovered panics.
const MessageInternalError = "An unexpected error occurred"

// Recovery returns a middleware that turns panics into a 500 JSON
// response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			fields := []zap.Field{
				zap.Any("error", err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("clientIP", c.ClientIP()),
				zap.ByteString("stack", debug.Stack()),
			}
			if requestID := GetRequestID(c); requestID != "" {
				fields = append(fields, zap.String("requestID", requestID))
			}
			logger.Error("panic recovered", fields...)

			if span := GetSpan(c); span != nil {
				span.RecordError(fmt.Errorf("panic: %v", err))
			}

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"Message": MessageInternalError})
		}()

		c.Next()
	}
}
