package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/eduims/eduims-backend/internal/app"
	"github.com/eduims/eduims-backend/internal/auth"
	"github.com/eduims/eduims-backend/internal/invoicing"
	"github.com/eduims/eduims-backend/internal/leads"
	"github.com/eduims/eduims-backend/internal/masterdata"
	"github.com/eduims/eduims-backend/internal/platform/cache"
	"github.com/eduims/eduims-backend/internal/platform/db"
	"github.com/eduims/eduims-backend/internal/platform/storage"
	"github.com/eduims/eduims-backend/internal/shared"
	"github.com/eduims/eduims-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec := shared.NewIDCodec(cfg.IDSecret)
	selectCache := cache.NewJSONCache(redisClient, cfg.SelectCacheTTL)

	s3Client, err := storage.NewClient(ctx, storage.Options{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		logger.Error("init attachment storage", slog.Any("error", err))
		os.Exit(1)
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool), redisClient, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)
	authMW := &auth.Middleware{Service: authService, Logger: logger}

	invoicingService := invoicing.NewService(invoicing.NewPGRepository(pool), taskClient, logger)
	invoicingHandler := invoicing.NewHandler(logger, invoicingService, codec)

	leadsService := leads.NewService(leads.NewPGRepository(pool), s3Client, taskClient, logger)
	leadsHandler := leads.NewHandler(logger, leadsService, codec)

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool), selectCache, codec, logger)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, codec)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMW,
		InvoicingHandler:  invoicingHandler,
		LeadsHandler:      leadsHandler,
		MasterDataHandler: masterdataHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
