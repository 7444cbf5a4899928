package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/concern-verifier-api/api/swagger"
	"github.com/noah-isme/concern-verifier-api/internal/classifier"
	"github.com/noah-isme/concern-verifier-api/internal/handler"
	"github.com/noah-isme/concern-verifier-api/internal/repository"
	"github.com/noah-isme/concern-verifier-api/internal/service"
	"github.com/noah-isme/concern-verifier-api/pkg/cache"
	"github.com/noah-isme/concern-verifier-api/pkg/config"
	"github.com/noah-isme/concern-verifier-api/pkg/database"
	"github.com/noah-isme/concern-verifier-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title Concern Verifier API
// @version 1.0.0
// @description Resident waste management concerns with automatic legitimacy verification.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited with error", zap.Error(err))
	}
	logr.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var redisClient *redis.Client
	if cfg.Stats.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, redisClient != nil)

	classifierClient, err := classifier.NewClient(classifier.Config{
		BaseURL:      cfg.Classifier.APIURL,
		APIKey:       cfg.Classifier.APIKey,
		Model:        cfg.Classifier.Model,
		MaxTokens:    cfg.Classifier.MaxTokens,
		Temperature:  cfg.Classifier.Temperature,
		SystemPrompt: cfg.Classifier.SystemPrompt,
	}, &http.Client{Timeout: cfg.Classifier.Timeout})
	if err != nil {
		return err
	}
	if cfg.Classifier.APIKey == "" {
		logr.Warn("CLASSIFIER_API_KEY is empty, classification calls will be unauthenticated")
	}

	validate := validator.New()
	concernRepo := repository.NewConcernRepository(db)
	residentRepo := repository.NewResidentRepository(db)

	reconciler := service.NewReconciler(concernRepo, cacheSvc, metricsSvc, logr)
	verificationSvc := service.NewVerificationService(classifierClient, reconciler, concernRepo, service.VerificationConfig{Delay: cfg.Verification.Delay}, metricsSvc, logr)
	concernSvc := service.NewConcernService(concernRepo, residentRepo, reconciler, verificationSvc, cacheSvc, validate, logr, service.ConcernConfig{StatsTTL: cfg.Stats.CacheTTL})
	residentSvc := service.NewResidentService(residentRepo, validate, logr)

	// The queue outlives the signal context so in-flight verifications finish during shutdown.
	verificationSvc.Start(context.WithoutCancel(ctx))
	if cfg.Verification.ProcessPendingOnStart {
		if _, err := verificationSvc.RecoverPending(ctx); err != nil {
			logr.Warn("failed to re-queue pending concerns", zap.Error(err))
		}
	}

	router := newRouter(cfg, logr, routeHandlers{
		concerns:  handler.NewConcernHandler(concernSvc, verificationSvc),
		residents: handler.NewResidentHandler(residentSvc),
		metrics:   handler.NewMetricsHandler(metricsSvc, db, verificationSvc.QueueDepth),
	}, metricsSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		verificationSvc.Stop()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
