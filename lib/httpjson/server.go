package httpjson

import (
	"bytes"
	"io"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/raffle-labs/raffle/util"
)

// HMACHeaderKey carries the base64 HMAC-SHA256 of the request body
const HMACHeaderKey = "X-Raffle-HMAC"

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewEngine returns a gin engine with panic recovery and zap request logging
func NewEngine(logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	return engine
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("handled RPC request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// HMACMiddleware rejects requests whose body is not authenticated with
// hmacKey. An empty key disables the check.
func HMACMiddleware(hmacKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hmacKey == "" {
			c.Next()

			return
		}

		received := c.GetHeader(HMACHeaderKey)
		if received == "" {
			logger.Warn("HMAC authentication failed: header not provided", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: "HMAC not provided"})

			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, &ErrorResponse{Error: "failed to read request body"})

			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !util.VerifyHMAC(hmacKey, body, received) {
			logger.Warn("HMAC authentication failed: invalid HMAC", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: "invalid HMAC"})

			return
		}

		c.Next()
	}
}

// RequireHMACMiddleware is HMACMiddleware without the opt-out: every request
// is rejected when no key is configured.
func RequireHMACMiddleware(hmacKey string, logger *zap.Logger) gin.HandlerFunc {
	if hmacKey != "" {
		return HMACMiddleware(hmacKey, logger)
	}

	return func(c *gin.Context) {
		logger.Warn("HMAC authentication failed: no key configured", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, &ErrorResponse{Error: "HMAC key not configured"})
	}
}

// AbortWithError writes err as an ErrorResponse. Registered errors are
// client errors, everything else is an internal error.
func AbortWithError(c *gin.Context, err error) {
	resp := NewErrorResponse(err)
	status := http.StatusBadRequest
	if resp.Codespace == "" || resp.Codespace == errorsmod.UndefinedCodespace {
		status = http.StatusInternalServerError
	}

	c.AbortWithStatusJSON(status, resp)
}

// AbortWithStatus writes err with an explicit status
func AbortWithStatus(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, NewErrorResponse(err))
}
