package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/showrate/platform/internal/appointments"
	appconfig "github.com/showrate/platform/internal/config"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/notify"
	"github.com/showrate/platform/internal/reminders"
	"github.com/showrate/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker",
		"env", cfg.Env,
		"poll_interval", cfg.ReminderPollInterval.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = redisClient.Close() }()

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, reminder emails disabled")
	}

	apptRepo := appointments.NewPostgresRepository(pool)
	leadRepo := leads.NewPostgresRepository(pool)
	notifyService := notify.NewService(emailSender, leadRepo, logger)
	schedule := reminders.NewSchedule(redisClient)

	worker := reminders.NewWorker(schedule, apptRepo, notifyService, cfg.ReminderPollInterval, logger)
	worker.Run(ctx)
}
