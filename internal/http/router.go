package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/josiahbryan/userhub/internal/auth"
	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/http/handlers"
	"github.com/josiahbryan/userhub/internal/http/middlewares"
	"github.com/josiahbryan/userhub/internal/notifications"
	"github.com/josiahbryan/userhub/internal/observability"
	mongorepo "github.com/josiahbryan/userhub/internal/repo/mongo"
)

func NewRouter(log *slog.Logger, database *mongo.Database, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(registry)

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("userhub"))
	r.Use(prom.HTTPMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB

	limiter := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)

	// health
	ping := func() error {
		if database == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return database.Client().Ping(ctx, nil)
	}

	healthHandler := handlers.NewHealthHandler(ping)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up the store, notifier and handlers
	usersRepo := mongorepo.NewUsersRepo(database, prom)

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{},
	)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authMiddleware := middlewares.NewAuthMiddleware(jwtManager)

	usersHandler := handlers.NewUsersHandler(usersRepo, notifier, log, prom, cfg)
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)

	r.POST("/auth/login", limiter.Middleware(middlewares.KeyByIP), authHandler.Login)

	// registration is the one unauthenticated user route
	r.POST("/users", limiter.Middleware(middlewares.KeyByIP), usersHandler.Create)

	authed := r.Group("/", authMiddleware.RequireAuth(), limiter.Middleware(middlewares.KeyByCallerOrIP))
	authed.GET("/users", authMiddleware.RequireRole("admin"), usersHandler.List)
	authed.GET("/users/:id", usersHandler.Get)
	authed.PUT("/users/:id", usersHandler.Update)
	authed.DELETE("/users/:id", usersHandler.Delete)

	return r
}
