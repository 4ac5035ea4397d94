package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/rolegate/internal/auth"
	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/geocoder89/rolegate/internal/http/handlers"
	"github.com/geocoder89/rolegate/internal/http/middlewares"
	"github.com/geocoder89/rolegate/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps carries everything the router wires into handlers and middlewares.
type RouterDeps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger

	Accounts handlers.Accounts
	Verifier auth.TokenVerifier
	Ping     func(ctx context.Context) error

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	Tracing            bool
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	if deps.Tracing {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// accounts
	authHandler := handlers.NewAuthHandler(deps.Accounts, log)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// role-gated area
	am := middlewares.NewAuthMiddleware(deps.Verifier, deps.Prom, log)

	userGroup := r.Group("/user")
	userGroup.GET("/admin", am.Require(user.RoleAdmin), handlers.Welcome(user.RoleAdmin))
	userGroup.GET("/moderator", am.Require(user.RoleAdmin, user.RoleModerator), handlers.Welcome(user.RoleModerator))
	userGroup.GET("/user", am.Require(user.Roles...), handlers.Welcome(user.RoleUser))
	userGroup.GET("/me", am.Require(user.Roles...), authHandler.Me)

	return r
}
