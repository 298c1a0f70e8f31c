// Package handlers implements the HTTP surface of the ingestion pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/lock"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// maxJSONBody bounds request bodies of the JSON endpoints.
const maxJSONBody = 1 << 20

// Ingester is the two-phase ingestion API.
type Ingester interface {
	Prepare(ctx context.Context, req pipeline.Request) (*pipeline.Draft, error)
	Commit(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error)
	Ingest(ctx context.Context, req pipeline.Request, linkBill bool) (*pipeline.Draft, *pipeline.CommitResult, error)
}

// QuotaChecker reports the caller's remaining AI quota.
type QuotaChecker interface {
	Check(ctx context.Context, userID string, feature domain.FeatureClass) quota.Decision
}

// IngestResponse is returned by the endpoints that commit.
type IngestResponse struct {
	Draft  *pipeline.Draft        `json:"draft"`
	Result *pipeline.CommitResult `json:"result"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// writePipelineError maps pipeline failures to HTTP statuses.
func writePipelineError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var denied *quota.DeniedError
	switch {
	case errors.As(err, &denied):
		middleware.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   denied.Message,
			"feature": string(denied.Feature),
		})
	case errors.Is(err, extraction.ErrImageExtraction):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not read a transaction from the image")
	case errors.Is(err, pipeline.ErrEmptyInput):
		middleware.WriteError(w, http.StatusBadRequest, "Text or image is required")
	case errors.Is(err, lock.ErrLocked):
		middleware.WriteError(w, http.StatusConflict, "Another commit is in progress, try again")
	default:
		log.Error().Err(err).Msg("Ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Ingestion failed")
	}
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
