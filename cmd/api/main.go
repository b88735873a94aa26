package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/showrate/platform/internal/api/router"
	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/billing"
	"github.com/showrate/platform/internal/calls"
	"github.com/showrate/platform/internal/campaigns"
	"github.com/showrate/platform/internal/clients"
	appconfig "github.com/showrate/platform/internal/config"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/notify"
	"github.com/showrate/platform/internal/observability/metrics"
	"github.com/showrate/platform/internal/reminders"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/internal/webhooks"
	"github.com/showrate/platform/pkg/logging"
)

func main() {
	// Local development reads a .env file; deployed environments set real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting showrate API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

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

	// Storage.
	clientRepo := clients.NewPostgresRepository(pool)
	campaignRepo := campaigns.NewPostgresRepository(pool)
	leadRepo := leads.NewPostgresRepository(pool)
	callRepo := calls.NewPostgresRepository(pool)
	apptRepo := appointments.NewPostgresRepository(pool)
	milestoneRepo := billing.NewPostgresMilestoneRepository(pool)
	invoiceRepo := billing.NewPostgresInvoiceRepository(pool)
	usageRepo := billing.NewPostgresUsageRepository(pool)
	eventStore := webhookevents.NewPostgresStore(pool)

	// Observability.
	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	billingMetrics := metrics.NewBillingMetrics(prometheus.DefaultRegisterer)

	// Billing.
	stripeInvoicer := billing.NewStripeInvoicer(cfg.StripeSecretKey, cfg.StripeTimeout, logger)
	evaluator := billing.NewEvaluator(clientRepo, apptRepo, milestoneRepo, invoiceRepo,
		stripeInvoicer, billingMetrics, cfg.StripeTimeout, logger)
	usageInvoicer := billing.NewUsageInvoicer(clientRepo, usageRepo, invoiceRepo,
		stripeInvoicer, billingMetrics, cfg.StripeTimeout, logger)

	// Notifications and reminders.
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
	notifyService := notify.NewService(emailSender, leadRepo, logger)
	schedule := reminders.NewSchedule(redisClient)
	dispatcher := notify.NewDispatcher(schedule, notifyService, logger)

	// Appointment verification.
	verifyService := appointments.NewService(apptRepo, evaluator, dispatcher, leadRepo, logger)

	// Handlers.
	retellWebhook := webhooks.NewRetellHandler(cfg.RetellWebhookSecret,
		eventStore, leadRepo, callRepo, clientRepo, usageRepo, webhookMetrics, logger)
	calcomWebhook := webhooks.NewCalComHandler(cfg.CalComWebhookSecret,
		eventStore, leadRepo, apptRepo, dispatcher, webhookMetrics, logger)
	stripeWebhook := webhooks.NewStripeHandler(cfg.StripeWebhookSecret,
		eventStore, invoiceRepo, milestoneRepo, usageRepo, clientRepo, campaignRepo, webhookMetrics, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		RetellWebhook:       retellWebhook,
		CalComWebhook:       calcomWebhook,
		StripeWebhook:       stripeWebhook,
		AppointmentsHandler: appointments.NewHandler(verifyService, apptRepo, logger),
		LeadsHandler:        leads.NewHandler(leadRepo, logger),
		BillingHandler:      billing.NewHandler(usageRepo, milestoneRepo, usageInvoicer, logger),
		MetricsHandler:      promhttp.Handler(),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
