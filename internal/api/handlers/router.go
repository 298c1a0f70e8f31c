package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter. Jobs and
// Transactions are optional.
type Handlers struct {
	Ingest       *IngestHandler
	Quota        *QuotaHandler
	Transactions *TransactionsHandler
	Jobs         *JobsHandler
}

// NewRouter builds the API router with the standard middleware stack.
func NewRouter(log zerolog.Logger, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(log),
		middleware.Logger(log),
		middleware.CORS,
	)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Post("/ingest/text", h.Ingest.IngestText)
		r.Post("/ingest/text/prepare", h.Ingest.PrepareText)
		r.Post("/ingest/commit", h.Ingest.Commit)
		r.Post("/ingest/receipt", h.Ingest.UploadReceipt)
		r.Get("/quota", h.Quota.GetQuota)

		if h.Transactions != nil {
			r.Get("/transactions", h.Transactions.ListTransactions)
		}
		if h.Jobs != nil {
			r.Get("/jobs", h.Jobs.ListJobs)
			r.Get("/jobs/{id}", h.Jobs.GetJob)
		}
	})

	return r
}
