package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// QuotaHandler reports daily AI usage.
type QuotaHandler struct {
	quota QuotaChecker
	log   zerolog.Logger
}

// NewQuotaHandler creates a new quota handler.
func NewQuotaHandler(q QuotaChecker, log zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{quota: q, log: log}
}

// GetQuota handles GET /api/quota. With ?feature= it returns one decision,
// otherwise one per feature class.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	if raw := r.URL.Query().Get("feature"); raw != "" {
		feature, ok := domain.ParseFeatureClass(raw)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown feature")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, h.quota.Check(ctx, userID, feature))
		return
	}

	decisions := make(map[domain.FeatureClass]quota.Decision, 3)
	for _, f := range []domain.FeatureClass{domain.FeatureVoice, domain.FeatureScan, domain.FeatureAdvisor} {
		decisions[f] = h.quota.Check(ctx, userID, f)
	}

	h.log.Debug().Str("user_id", userID).Msg("Quota listed")
	middleware.WriteJSON(w, http.StatusOK, decisions)
}
