// Package quota decides whether a user may invoke an AI-assisted feature today.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// ErrQuotaDenied is matched by every *DeniedError.
var ErrQuotaDenied = errors.New("quota denied")

// DeniedError is returned to callers that need a blocking, explanatory error.
type DeniedError struct {
	Feature domain.FeatureClass
	Message string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota denied for %s: %s", e.Feature, e.Message)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrQuotaDenied
}

// DefaultLimits are the daily limits for non-elevated accounts.
var DefaultLimits = map[domain.FeatureClass]int{
	domain.FeatureVoice:   3,
	domain.FeatureScan:    3,
	domain.FeatureAdvisor: 1,
}

const checkFailedMessage = "Gagal memeriksa kuota harian. Silakan coba lagi nanti."

// UsageStore is the storage the gate reads from.
type UsageStore interface {
	// GetUserTier returns the subscription tier, or "" when the user has no tier record.
	GetUserTier(ctx context.Context, userID string) (string, error)

	// CountAIGeneratedSince counts AI-generated transaction headers created by
	// the user at or after since, whatever feature produced them.
	CountAIGeneratedSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Decision is the result of a quota check. Message is set iff Allowed is false.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
	Tier    string `json:"tier"`
	Used    int    `json:"used"`
	Limit   int    `json:"limit"`
}

// Err converts a denial into a *DeniedError; allowed decisions return nil.
func (d Decision) Err(feature domain.FeatureClass) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Feature: feature, Message: d.Message}
}

// Gate is the usage quota gate.
type Gate struct {
	store  UsageStore
	limits map[domain.FeatureClass]int
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLimits replaces the per-feature daily limits.
func WithLimits(limits map[domain.FeatureClass]int) Option {
	return func(g *Gate) { g.limits = limits }
}

// WithLocation sets the zone whose midnight starts a new quota day.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate over store.
func NewGate(store UsageStore, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		limits: DefaultLimits,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides whether userID may use feature now. It never returns an
// error: storage faults while counting deny the request.
func (g *Gate) Check(ctx context.Context, userID string, feature domain.FeatureClass) Decision {
	log := logger.FromContext(ctx)

	tier, err := g.store.GetUserTier(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Tier lookup failed, treating user as free tier")
		tier = ""
	}
	if tier == "" {
		tier = domain.TierFree
	}

	if domain.IsElevatedTier(tier) {
		return Decision{Allowed: true, Tier: tier, Limit: -1}
	}

	limit, ok := g.limits[feature]
	if !ok {
		return Decision{
			Allowed: false,
			Tier:    tier,
			Message: fmt.Sprintf("Fitur %s tidak dikenal.", feature),
		}
	}

	used, err := g.store.CountAIGeneratedSince(ctx, userID, g.startOfDay())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("feature", string(feature)).Msg("Usage count failed, denying request")
		return Decision{Allowed: false, Tier: tier, Limit: limit, Message: checkFailedMessage}
	}

	if used >= limit {
		log.Info().
			Str("user_id", userID).
			Str("feature", string(feature)).
			Int("used", used).
			Int("limit", limit).
			Msg("Daily quota exhausted")
		return Decision{
			Allowed: false,
			Tier:    tier,
			Used:    used,
			Limit:   limit,
			Message: fmt.Sprintf("Kuota harian %s sudah habis (%d/%d). Upgrade ke Pro untuk akses tanpa batas, atau coba lagi besok.", feature, used, limit),
		}
	}

	return Decision{Allowed: true, Tier: tier, Used: used, Limit: limit}
}

func (g *Gate) startOfDay() time.Time {
	now := g.now().In(g.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
}
