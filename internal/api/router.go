package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parcelops/shipcost-reconciler/internal/reconciliation"
	"github.com/parcelops/shipcost-reconciler/internal/repository"
	"github.com/parcelops/shipcost-reconciler/internal/shiprocket"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	svc *reconciliation.Service,
	repo *repository.ChargeRepo,
	platform *shiprocket.Client,
	log *zap.Logger,
) http.Handler {
	h := &Handlers{
		svc:      svc,
		repo:     repo,
		platform: platform,
		log:      log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Post("/shipping-charges/bulk-fetch", h.BulkFetchShippingCharges)
		r.Get("/shipping-charges", h.GetShippingCharges)
		r.Get("/shipping-charges/records", h.ListChargeRecords)

		r.Get("/ledger/transactions", h.ListLedgerTransactions)
	})

	return r
}
