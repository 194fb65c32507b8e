// Package server is the HTTP transport: routing, cookie handling, and the
// auth middleware. All business rules live in the service and gate.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditrepo "github.com/YuriFontella/strawberry-auth/internal/audit/repository"
	"github.com/YuriFontella/strawberry-auth/internal/auth"
)

// Deps holds the dependencies the router wires into handlers.
type Deps struct {
	// Auth is the auth service behind register/login/logout.
	Auth *auth.Service
	// Gate authenticates requests to protected routes.
	Gate *auth.Gate
	// Events serves the current user's audit trail.
	Events auditrepo.Repository
	// Health reports storage readiness; nil skips the DB check on /healthz.
	Health func(context.Context) error
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &authHandler{svc: deps.Auth, events: deps.Events}
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", h.logout)

	protected := r.Group("", RequireAuth(deps.Gate))
	protected.GET("/auth/me", h.me)
	protected.GET("/auth/events", h.listEvents)
	protected.POST("/auth/deactivate", h.deactivate)

	r.GET("/healthz", func(c *gin.Context) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()
			if err := deps.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
