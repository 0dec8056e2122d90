package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/coursewatch/coursewatch-api/api/swagger"
	"github.com/coursewatch/coursewatch-api/internal/handler"
	internalmiddleware "github.com/coursewatch/coursewatch-api/internal/middleware"
	"github.com/coursewatch/coursewatch-api/internal/notify"
	"github.com/coursewatch/coursewatch-api/internal/repository"
	"github.com/coursewatch/coursewatch-api/internal/service"
	"github.com/coursewatch/coursewatch-api/internal/upstream"
	"github.com/coursewatch/coursewatch-api/pkg/cache"
	"github.com/coursewatch/coursewatch-api/pkg/config"
	"github.com/coursewatch/coursewatch-api/pkg/database"
	"github.com/coursewatch/coursewatch-api/pkg/logger"
	corsmiddleware "github.com/coursewatch/coursewatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/coursewatch/coursewatch-api/pkg/middleware/requestid"
	"github.com/coursewatch/coursewatch-api/pkg/ratelimit"
)

// @title coursewatch API
// @version 0.1.0
// @description Course enrollment monitoring and notification service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	monitorRepo := repository.NewMonitorRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var docCache upstream.DocumentCache
	if cfg.Upstream.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, course documents will not be cached", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			docCache = cacheRepo
		}
	}

	metrics := service.NewMetricsService()
	limiter := ratelimit.New(cfg.Upstream.RateLimitMax, cfg.Upstream.RateLimitSpan)
	client := upstream.NewCourseClient(cfg.Upstream, limiter, metrics.ObserveRateLimitWait, docCache, logr)
	dispatcher := notify.NewDispatcher(cfg.Notify, logr)

	engine := service.NewEngine(cfg.Checker, client, monitorRepo, snapshotRepo, notificationRepo, dispatcher, metrics, logr)
	monitorSvc := service.NewMonitorService(monitorRepo, engine, cfg.Checker.DefaultInterval, nil, logr)
	historySvc := service.NewHistoryService(snapshotRepo, monitorRepo, notificationRepo, logr)
	retentionSvc := service.NewRetentionService(cfg.Retention, snapshotRepo, logr)

	monitorHandler := handler.NewMonitorHandler(monitorSvc)
	courseHandler := handler.NewCourseHandler(engine)
	historyHandler := handler.NewHistoryHandler(historySvc)
	notificationHandler := handler.NewNotificationHandler(engine, cfg.Notify)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics/prometheus", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/courses/search", courseHandler.Search)
		api.GET("/terms/:term/courses/:subject/:courseNumber", courseHandler.Get)
		api.GET("/terms/:term/courses/:subject/:courseNumber/history", historyHandler.CourseHistory)

		api.GET("/monitors", monitorHandler.List)
		api.POST("/monitors", monitorHandler.Create)
		api.GET("/monitors/:id", monitorHandler.Get)
		api.PATCH("/monitors/:id", monitorHandler.Update)
		api.DELETE("/monitors/:id", monitorHandler.Delete)
		api.DELETE("/monitors/:id/purge", internalmiddleware.Admin(cfg.Admin.JWTSecret), monitorHandler.Purge)

		api.GET("/monitors/:id/history", historyHandler.MonitorHistory)
		api.GET("/monitors/:id/history/export", historyHandler.Export)
		api.GET("/monitors/:id/notifications", historyHandler.Notifications)

		api.POST("/notifications/test", notificationHandler.Test)
		api.GET("/preferences/notifications", notificationHandler.Preferences)

		api.GET("/metrics", metricsHandler.Snapshot)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Initialize(ctx)
	if err := engine.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start monitoring engine", "error", err)
	}
	defer engine.Cleanup()

	if err := retentionSvc.Start(); err != nil {
		logr.Sugar().Fatalw("failed to schedule retention sweep", "error", err)
	}
	defer retentionSvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
