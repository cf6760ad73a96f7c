package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.String(http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware allows the configured origins; "*" allows any
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsMiddleware records request counts and latency per route pattern
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics.ShouldSkipEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = metrics.NormalizeEndpoint(c.Request.URL.Path)
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// authMiddleware resolves the bearer token into an auth.Identity
func authMiddleware(authn auth.Authenticator, log zerolog.Logger) gin.HandlerFunc {
	var introspectedOnce sync.Once
	return func(c *gin.Context) {
		token, err := auth.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.String(http.StatusUnauthorized, capitalize(err.Error()))
			c.Abort()
			return
		}

		identity, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected bearer token")
			c.String(http.StatusUnauthorized, capitalize(auth.ErrInvalidToken.Error()))
			c.Abort()
			return
		}

		if identity.Introspected {
			introspectedOnce.Do(func() {
				log.Warn().
					Str("user_id", identity.UserID.String()).
					Msg("Permission checks are bypassed for introspected tokens; set JWT_SECRET to enforce them")
			})
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequirePermission rejects callers holding none of perms
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).HasAny(perms...) {
			c.String(http.StatusForbidden, "You do not have permission to perform this action")
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
