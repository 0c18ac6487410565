// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"saaskit/config"
	"saaskit/internal/delivery/http/middleware"
	"saaskit/internal/delivery/http/router/handler"
	"saaskit/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	Config            *config.Config
	AuthHandler       *handler.AuthHandler
	SessionHandler    *handler.SessionHandler
	SessionMiddleware *middleware.SessionMiddleware
	Registry          *prometheus.Registry
}

// router holds all the handlers that need to be registered.
type router struct {
	cfg               *config.Config
	authHandler       *handler.AuthHandler
	sessionHandler    *handler.SessionHandler
	sessionMiddleware *middleware.SessionMiddleware
	registry          *prometheus.Registry
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		cfg:               params.Config,
		authHandler:       params.AuthHandler,
		sessionHandler:    params.SessionHandler,
		sessionMiddleware: params.SessionMiddleware,
		registry:          params.Registry,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Prometheus scrape endpoint
	if r.cfg.Metrics != nil && r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(metrics.Handler(r.registry)))
	}

	// Auth routes
	authGroup := e.Group("/auth")
	authGroup.Use(r.sessionMiddleware.LoadSession)
	{
		authGroup.POST("/signup", r.authHandler.Signup)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/logout", r.authHandler.Logout)
		authGroup.GET("/me", r.authHandler.Me, r.sessionMiddleware.RequireSession)
	}

	// Session management routes; every one requires a live session.
	sessionGroup := e.Group("/sessions")
	sessionGroup.Use(r.sessionMiddleware.LoadSession)
	sessionGroup.Use(r.sessionMiddleware.RequireSession)
	{
		sessionGroup.GET("", r.sessionHandler.List)
		sessionGroup.DELETE("", r.sessionHandler.Revoke)
		sessionGroup.DELETE("/others", r.sessionHandler.RevokeOthers)

		// Revoking everything is destructive enough to demand a fresh login.
		sessionGroup.DELETE("/all", r.sessionHandler.RevokeAll, r.sessionMiddleware.RequireFreshSession)
	}
}
