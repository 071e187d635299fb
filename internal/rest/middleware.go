package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/metrics"
	"github.com/mmynk/savingsgroup/internal/middleware"
	"github.com/mmynk/savingsgroup/internal/models"
)

// jwtAuth validates the bearer token and stores the actor on the request context.
func jwtAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		claims, err := jwtManager.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Request = c.Request.WithContext(middleware.WithActor(c.Request.Context(), claims.Actor()))
		c.Next()
	}
}

// requestLogger logs each request and records its latency under the route pattern.
func requestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"user_id", middleware.GetUserID(c.Request.Context()),
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			slog.ErrorContext(c.Request.Context(), "HTTP request", attrs...)
		case status >= http.StatusBadRequest:
			slog.WarnContext(c.Request.Context(), "HTTP request", attrs...)
		default:
			slog.InfoContext(c.Request.Context(), "HTTP request", attrs...)
		}
		m.ObserveRequest(c.Request.Method+" "+route, strconv.Itoa(status), elapsed)
	}
}

func actorOf(c *gin.Context) models.Actor {
	actor, _ := middleware.ActorFrom(c.Request.Context())
	return actor
}
