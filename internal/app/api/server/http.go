package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatflowers/entitlement/docs"
	"github.com/fatflowers/entitlement/internal/app/api/handlers"
	mw "github.com/fatflowers/entitlement/internal/app/api/middleware"
	"github.com/fatflowers/entitlement/internal/app/service/catalog"
	"github.com/fatflowers/entitlement/internal/app/service/history"
	"github.com/fatflowers/entitlement/internal/app/service/lifecycle"
	"github.com/fatflowers/entitlement/internal/app/service/listing"
	"github.com/fatflowers/entitlement/internal/app/service/promotion"
	pe "github.com/fatflowers/entitlement/internal/app/service/purchase_event"
	"github.com/fatflowers/entitlement/internal/app/service/quota"
	"github.com/fatflowers/entitlement/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/entitlement/pkg/config"
	metrics "github.com/fatflowers/entitlement/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Catalog    *catalog.Service
	Quota      *quota.Service
	Listing    *listing.Service
	Promotion  *promotion.Service
	Lifecycle  *lifecycle.Service
	Sweeper    *lifecycle.Sweeper
	History    *history.Service
	Events     *pe.Handler
	Statistics *statistics.Service
	DB         *gorm.DB
	Redis      *redis.Client
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log := d.Log
	// Prometheus metrics
	if d.Cfg.MetricsAddr != "" {
		p := metrics.NewHTTP(metrics.HTTPOptions{
			Logger:    log,
			SkipPaths: []string{"/healthz", "/swagger/*any"},
		})
		r.Use(p.Middleware())
		p.Serve(d.Cfg.MetricsAddr)

		log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub, map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := d.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
	})
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())

	handlers.RegisterAccountRoutes(apiV1.Group("/account"), d.Lifecycle, d.Quota, d.History, log)
	handlers.RegisterListingRoutes(apiV1.Group("/listing"), d.Quota, d.Listing, d.Promotion, log)
	handlers.RegisterBillingRoutes(apiV1.Group("/billing"), d.Lifecycle, d.Events, log)
	handlers.RegisterCatalogRoutes(apiV1.Group("/catalog"), d.Catalog)
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), d.Sweeper, d.Statistics, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
