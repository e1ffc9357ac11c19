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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/content-vault-api/api/swagger"
	"github.com/noah-isme/content-vault-api/internal/handler"
	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/repository"
	"github.com/noah-isme/content-vault-api/internal/service"
	"github.com/noah-isme/content-vault-api/pkg/archive"
	"github.com/noah-isme/content-vault-api/pkg/cache"
	"github.com/noah-isme/content-vault-api/pkg/config"
	"github.com/noah-isme/content-vault-api/pkg/database"
	"github.com/noah-isme/content-vault-api/pkg/jobs"
	"github.com/noah-isme/content-vault-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/content-vault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/content-vault-api/pkg/middleware/requestid"
	"github.com/noah-isme/content-vault-api/pkg/storage"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// @title Content Vault API
// @version 1.0.0
// @description Anonymous submissions of exams, study material and memes with staff moderation.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// multipart framing allowance on top of the file caps.
const formOverhead = 1 << 20

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
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logr.Warn("redis disabled, using in-process session and cache stores")
	}

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		if swept, sweepErr := local.SweepStaleTemp(time.Hour); sweepErr != nil {
			logr.Warn("temp sweep failed", zap.Error(sweepErr))
		} else if len(swept) > 0 {
			logr.Info("removed stale temp files", zap.Int("count", len(swept)))
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	batchRepo := repository.NewBatchRepository(db)
	fileRepo := repository.NewUploadFileRepository(db)
	contentRepo := repository.NewContentRepository(db)
	memeRepo := repository.NewMemeRepository(db)
	rankingRepo := repository.NewRankingRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var (
		sessions  service.SessionStore
		cacheRepo service.CacheRepository
	)
	if redisClient != nil && cfg.Session.Store != config.SessionStoreMemory {
		sessions = repository.NewRedisSessionStore(redisClient, cfg.Session.TTL)
	} else {
		sessions = repository.NewMemorySessionStore(cfg.Session.MaxEntries, cfg.Session.TTL)
	}
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	sniffer := upload.NewSniffer(cfg.Uploads.Sniffer)
	streamer := archive.NewStreamer(store, cfg.Uploads.ArchiveChunkSize, logr)
	signer := storage.NewReviewLinkSigner(cfg.Review.Secret, cfg.Review.TTL)

	janitor := service.NewBlobJanitor(store, fileRepo, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.BlobJanitor.Workers,
		MaxRetries: cfg.BlobJanitor.MaxRetries,
		RetryDelay: cfg.BlobJanitor.RetryDelay,
	})
	janitor.Start(ctx)
	defer janitor.Stop()

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	batchSvc := service.NewBatchService(service.BatchServiceDeps{
		Batches:   batchRepo,
		Files:     fileRepo,
		Store:     store,
		Gate:      service.NewAccessGate(sessions, logr),
		Validator: upload.NewValidator(upload.BatchPolicy(cfg.Uploads), sniffer),
		Streamer:  streamer,
		Review:    signer,
		Janitor:   janitor,
		Validate:  validate,
		Metrics:   metrics,
		Logger:    logr,
	})
	contentSvc := service.NewContentService(contentRepo, store, upload.NewValidator(upload.ContentPolicy(cfg.Uploads), sniffer),
		streamer, cacheSvc, cfg.Cache.TTL, validate, metrics, logr)
	memeSvc := service.NewMemeService(memeRepo, store, upload.NewValidator(upload.MemePolicy(cfg.Uploads), sniffer),
		cacheSvc, cfg.Cache.TTL, validate, metrics, logr)
	rankingSvc := service.NewRankingService(rankingRepo, cfg.Ranking.TokenSecret, logr)
	moderationSvc := service.NewModerationService(service.ModerationDeps{
		Batches: batchRepo,
		Content: contentRepo,
		Memes:   memeRepo,
		Audit:   auditRepo,
		Cache:   cacheSvc,
		Signer:  signer,
		Logger:  logr,
	})

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))
	handlers := handler.Handlers{
		Batches: handler.NewBatchHandler(batchSvc, int64(cfg.Uploads.MaxFilesPerBatch)*cfg.Uploads.MaxBatchFileSize+formOverhead, logr),
		Content: handler.NewContentHandler(contentSvc, cfg.Uploads.MaxContentFileSize+formOverhead, logr),
		Memes:   handler.NewMemeHandler(memeSvc, cfg.Uploads.MaxMemeFileSize+formOverhead, logr),
		Ranking: handler.NewRankingHandler(rankingSvc, cfg.Ranking, cfg.Session.Secure),
		Admin:   handler.NewAdminHandler(moderationSvc, janitor, cfg.APIPrefix),
		Metrics: metricsHandler,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, sessionField, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, middleware.Session(cfg.Session), middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sessionField(c *gin.Context) []zap.Field {
	if sid := middleware.SessionID(c); sid != "" {
		return []zap.Field{zap.String("session_id", sid)}
	}
	return nil
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
