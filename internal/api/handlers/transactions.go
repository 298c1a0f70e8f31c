package handlers

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// TransactionQuerier lists stored transactions.
type TransactionQuerier interface {
	QueryTransactionsByDateRange(ctx context.Context, userID string, bucket domain.AllocationBucket, start, end civil.Date) ([]*bigquery.TransactionRow, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo TransactionQuerier
	log  zerolog.Logger
	now  func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo TransactionQuerier, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// ListTransactions handles GET /api/transactions?start_date=&end_date=.
// The range defaults to the last 30 days.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	today := civil.DateOf(h.now())
	startDate := today.AddDays(-30)
	endDate := today

	var err error
	if s := query.Get("start_date"); s != "" {
		if startDate, err = civil.ParseDate(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if endDate, err = civil.ParseDate(s); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}
	if endDate.Before(startDate) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	userID := middleware.UserIDFromContext(ctx)
	transactions, err := h.repo.QueryTransactionsByDateRange(ctx, userID, middleware.BucketFromContext(ctx), startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*bigquery.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}
