package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/geo"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/service/account"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, usersCache *cache.UsersCache, cfg config.Config) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// metrics registry for this process
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	}

	r.Use(prom.GinHandleMiddleware())

	// health + metrics
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up the core
	usersRepo := postgres.NewUsersRepo(pool, prom)

	geoClient := geo.NewClient(geo.Config{
		AddressURL: cfg.GeoAddressURL,
		LookupURL:  cfg.GeoLookupURL,
		Timeout:    cfg.GeoTimeout,
	}, log, prom)

	var listCache account.ListCache

	if usersCache != nil {
		listCache = usersCache
	}

	svc := account.NewService(usersRepo, geoClient, listCache, log)
	usersHandler := handlers.NewUsersHandler(svc)

	basicAuth, err := middlewares.NewBasicAuth(cfg.AdminEmail, cfg.AdminPassword, usersRepo)

	if err != nil {
		return nil, err
	}

	api := r.Group("/api/users")

	api.POST("/register", usersHandler.Register)
	api.POST("/login", usersHandler.Login)
	api.GET("/validate", usersHandler.ValidateUser)
	api.GET("/ip", usersHandler.CallerIP)
	api.GET("/location", usersHandler.LocationByIP)
	api.GET("/location/current", usersHandler.CallerLocation)

	admin := api.Group("")
	admin.Use(basicAuth.RequireAuth(), basicAuth.RequireRole(user.RoleAdmin))

	admin.GET("", usersHandler.ListUsers)
	admin.DELETE("/:email", usersHandler.DeleteUser)

	return r, nil
}
