package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/eduims/eduims-backend/internal/app"
	"github.com/eduims/eduims-backend/internal/platform/mail"
	"github.com/eduims/eduims-backend/internal/platform/whatsapp"
	"github.com/eduims/eduims-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	mailer, err := mail.NewSender(ctx, mail.Options{
		Region:      cfg.AWSRegion,
		AccessKey:   cfg.AWSAccessKey,
		SecretKey:   cfg.AWSSecretKey,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
	})
	if err != nil {
		logger.Error("init mail sender", slog.Any("error", err))
		os.Exit(1)
	}

	wa := whatsapp.New(cfg.WhatsAppGatewayURL, cfg.WhatsAppAPIKey)
	notify := jobs.NewInvoiceNotifyJob(mailer, wa, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceEmail, Handler: notify.HandleEmail},
			{Type: jobs.TaskInvoiceWhatsApp, Handler: notify.HandleWhatsApp},
			{Type: jobs.TaskLeadStatusEmail, Handler: notify.HandleLeadStatusEmail},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting task worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
