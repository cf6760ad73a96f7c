package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are what the router needs beyond configuration
type Dependencies struct {
	Services *service.Services
	Auth     auth.Authenticator
	Metrics  *metrics.Metrics
	// Health reports whether the database answers; nil skips the check
	Health func(ctx context.Context) error
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Dependencies, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.CORSAllowedOrigins))
	router.Use(metricsMiddleware(deps.Metrics))

	// Uploaded attachments are public
	router.Static(cfg.Upload.PublicPath, cfg.Upload.Dir)

	router.GET("/health", healthCheck(deps.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	comments := NewCommentHandler(deps.Services, cfg, log)
	responses := NewResponseHandler(deps.Services, log)

	read := RequirePermission(auth.PermCommentCRUD, auth.PermCommentRead)
	write := RequirePermission(auth.PermCommentCRUD)

	api := router.Group("/api/comments")
	api.Use(authMiddleware(deps.Auth, log))
	{
		api.GET("/:issueId", read, comments.ListComments)
		api.GET("/comment/:commentId", read, comments.GetComment)
		api.POST("", write, comments.CreateComment)
		api.DELETE("/:commentId", write, comments.DeleteComment)
		api.DELETE("/issue/:issueId", write, comments.DeleteCommentsByIssue)

		api.POST("/responses", write, responses.AddResponse)
		api.GET("/responses/:commentId", read, responses.ListResponses)
		api.DELETE("/responses/:responseId", write, responses.DeleteResponse)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "lm-comments",
		})
	}
}
