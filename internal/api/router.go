package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/ingestion"
	"github.com/duizhang/settlement/internal/reconciliation"
	"github.com/duizhang/settlement/internal/repository"
)

// Deps are the collaborators the handlers are built on.
type Deps struct {
	Store        *repository.Store
	Recon        *reconciliation.Service
	Ingestion    *ingestion.Service
	Renderer     *export.Renderer
	BillDefaults domain.BillConfig
	Logger       *slog.Logger
}

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		store:        d.Store,
		recon:        d.Recon,
		ingestion:    d.Ingestion,
		renderer:     d.Renderer,
		billDefaults: d.BillDefaults,
		log:          logger.With("component", "api"),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Settlement records.
		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.ListSettlements)
			r.Post("/", h.CreateSettlement)
			r.Delete("/", h.ClearSettlements)
			r.Post("/batch-update", h.BatchUpdateSettlements)
			r.Post("/import", h.ImportSettlements)
			r.Post("/paste", h.PasteSettlements)
			r.Get("/summary", h.GetSettlementSummary)
			r.Get("/stats", h.GetSettlementStats)
			r.Get("/periods", h.ListPeriods)
			r.Get("/history", h.GetHistory)
			r.Get("/compare", h.ComparePeriods)
			r.Post("/validate", h.RunValidation)
			r.Get("/findings", h.ListFindings)
			r.Get("/bill", h.ExportBill)
			r.Get("/{id}", h.GetSettlement)
			r.Put("/{id}", h.UpdateSettlement)
			r.Delete("/{id}", h.DeleteSettlement)
		})

		// Ledger.
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Post("/import", h.ImportTransactions)
			r.Get("/summary", h.GetTransactionSummary)
			r.Get("/categories", h.GetCategorySummary)
			r.Get("/monthly", h.GetMonthlySummary)
			r.Get("/yearly", h.GetYearlySummary)
			r.Get("/stats", h.GetTransactionStats)
			r.Get("/export", h.ExportTransactions)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Bill header and backups.
		r.Get("/bill-config", h.GetBillConfig)
		r.Put("/bill-config", h.SaveBillConfig)
		r.Get("/backup", h.ExportBackup)
		r.Post("/restore", h.RestoreBackup)
		r.Get("/imports", h.ListImports)
		r.Get("/operations", h.ListOperations)
	})

	return r
}
