package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/billing"
	httpmiddleware "github.com/showrate/platform/internal/http/middleware"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/webhooks"
	"github.com/showrate/platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	RetellWebhook       *webhooks.RetellHandler
	CalComWebhook       *webhooks.CalComHandler
	StripeWebhook       *webhooks.StripeHandler
	AppointmentsHandler *appointments.Handler
	LeadsHandler        *leads.Handler
	BillingHandler      *billing.Handler
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Inbound provider webhooks.
	r.Route("/webhooks", func(r chi.Router) {
		if cfg.RetellWebhook != nil {
			r.Post("/retell", cfg.RetellWebhook.Handle)
		}
		if cfg.CalComWebhook != nil {
			r.Post("/calcom", cfg.CalComWebhook.Handle)
		}
		if cfg.StripeWebhook != nil {
			r.Post("/stripe", cfg.StripeWebhook.Handle)
		}
	})

	// Dashboard and operations API.
	r.Route("/api", func(r chi.Router) {
		if cfg.AppointmentsHandler != nil {
			r.Post("/appointments/verify", cfg.AppointmentsHandler.Verify)
			r.Get("/appointments/unverified", cfg.AppointmentsHandler.ListUnverified)
		}
		if cfg.LeadsHandler != nil {
			r.Get("/leads", cfg.LeadsHandler.List)
			r.Post("/leads/import", cfg.LeadsHandler.Import)
		}
		if cfg.BillingHandler != nil {
			r.Get("/billing/summary", cfg.BillingHandler.Summary)
			r.Post("/billing/invoice-usage", cfg.BillingHandler.InvoiceUsage)
		}
	})

	return r
}
