package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/opencampus/campus-api/internal/handler"
	internalmiddleware "github.com/opencampus/campus-api/internal/middleware"
	"github.com/opencampus/campus-api/internal/repository"
	"github.com/opencampus/campus-api/internal/scheduler"
	"github.com/opencampus/campus-api/internal/service"
	"github.com/opencampus/campus-api/pkg/cache"
	"github.com/opencampus/campus-api/pkg/config"
	"github.com/opencampus/campus-api/pkg/database"
	"github.com/opencampus/campus-api/pkg/logger"
	corsmiddleware "github.com/opencampus/campus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencampus/campus-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The proposal store covers retrieval on its own; Redis only adds
		// resilience across restarts.
		logr.Sugar().Warnw("redis unavailable, proposals served from memory only", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	solver, err := scheduler.NewSolver(scheduler.DefaultCatalog(), logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build solver", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	sectionRepo := repository.NewSectionRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	schedulingSvc := service.NewSchedulingService(
		sectionRepo,
		classroomRepo,
		scheduleRepo,
		db,
		cacheRepo,
		solver,
		metricsSvc,
		validator.New(),
		logr,
		service.SchedulingConfig{
			ProposalTTL:  cfg.Scheduler.ProposalTTL,
			SolveTimeout: cfg.Scheduler.SolveTimeout,
			QueueWorkers: cfg.Scheduler.QueueWorkers,
		},
	)
	schedulingSvc.Start(ctx)
	defer schedulingSvc.Stop()

	exportSvc := service.NewExportService(scheduleRepo, logr)
	schedulingHandler := handler.NewSchedulingHandler(schedulingSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	schedulingHandler.Routes(api)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
