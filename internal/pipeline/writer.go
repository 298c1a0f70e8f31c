package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

var bankKeywords = []string{
	"bca", "bni", "bri", "mandiri", "bsi", "cimb", "permata", "danamon", "btn",
	"jago", "seabank", "blu", "jenius", "ocbc", "panin", "mega", "bank",
}

// InferWalletKind guesses the wallet kind from its name. Keywords match
// whole words only, so "Brizzi" is not BRI. Anything that does not look like
// a bank is treated as an e-wallet.
func InferWalletKind(name string) domain.WalletKind {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, kw := range bankKeywords {
			if w == kw {
				return domain.KindBank
			}
		}
	}
	return domain.KindEWallet
}

// CommitError is the failure of one candidate in a batch.
type CommitError struct {
	Index    int
	Merchant string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("candidate %d (%s): %v", e.Index, e.Merchant, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the wrapped error as its message.
func (e *CommitError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index    int    `json:"index"`
		Merchant string `json:"merchant"`
		Error    string `json:"error"`
	}{e.Index, e.Merchant, e.Err.Error()})
}

// CommitResult reports a batch. Candidates that committed before a
// failure stay committed.
type CommitResult struct {
	CommittedIDs   []string                   `json:"committed_ids"`
	Headers        []domain.TransactionHeader `json:"transactions"`
	CreatedWallets []domain.Wallet            `json:"created_wallets,omitempty"`
	Errors         []*CommitError             `json:"errors,omitempty"`
	BillSettled    bool                       `json:"bill_settled"`
}

// CommitRequest is one batch of resolved candidates.
type CommitRequest struct {
	UserID     string
	Bucket     domain.AllocationBucket
	Source     domain.FeatureClass
	Candidates []domain.ResolvedCandidate
	// Bill, when set, is marked paid if the first candidate commits.
	Bill *domain.Bill
}

// Writer persists resolved candidates one at a time.
type Writer struct {
	store LedgerStore
	now   func() time.Time
}

// NewWriter creates a Writer over store.
func NewWriter(store LedgerStore, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{store: store, now: now}
}

// walletCache maps lowercase wallet names to ids for one batch.
type walletCache map[string]string

// Commit writes every candidate in order. A failing candidate is recorded
// and skipped; nothing already written is rolled back. The returned error
// is reserved for failures that prevent the batch from starting.
func (w *Writer) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	log := logger.FromContext(ctx)

	existing, err := w.store.ListWallets(ctx, req.UserID, req.Bucket)
	if err != nil {
		return nil, fmt.Errorf("Commit: listing wallets: %w", err)
	}

	cache := make(walletCache, len(existing))
	for _, wl := range existing {
		key := strings.ToLower(strings.TrimSpace(wl.Name))
		if _, ok := cache[key]; !ok {
			cache[key] = wl.ID
		}
	}

	res := &CommitResult{}
	for i, c := range req.Candidates {
		header, created, err := w.commitOne(ctx, req, c, cache)
		res.CreatedWallets = append(res.CreatedWallets, created...)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("merchant", c.Merchant).Msg("failed to commit candidate")
			res.Errors = append(res.Errors, &CommitError{Index: i, Merchant: c.Merchant, Err: err})
			continue
		}

		res.CommittedIDs = append(res.CommittedIDs, header.ID)
		res.Headers = append(res.Headers, header)

		if i == 0 && req.Bill != nil {
			if err := w.store.MarkBillPaid(ctx, req.UserID, req.Bill.ID, w.now()); err != nil {
				log.Error().Err(err).Str("bill_id", req.Bill.ID).Msg("failed to mark bill paid")
				res.Errors = append(res.Errors, &CommitError{
					Index:    i,
					Merchant: c.Merchant,
					Err:      fmt.Errorf("marking bill %s paid: %w", req.Bill.ID, err),
				})
			} else {
				res.BillSettled = true
			}
		}
	}

	log.Info().
		Int("committed", len(res.CommittedIDs)).
		Int("failed", len(res.Errors)).
		Int("wallets_created", len(res.CreatedWallets)).
		Bool("bill_settled", res.BillSettled).
		Msg("batch committed")

	return res, nil
}

func (w *Writer) commitOne(ctx context.Context, req CommitRequest, c domain.ResolvedCandidate, cache walletCache) (domain.TransactionHeader, []domain.Wallet, error) {
	var created []domain.Wallet

	sourceID, wl, err := w.walletID(ctx, req, c.Source, cache)
	if err != nil {
		return domain.TransactionHeader{}, created, fmt.Errorf("source wallet: %w", err)
	}
	if wl != nil {
		created = append(created, *wl)
	}

	var destID string
	if c.Type == domain.TypeTransfer {
		destID, wl, err = w.walletID(ctx, req, c.Destination, cache)
		if err != nil {
			return domain.TransactionHeader{}, created, fmt.Errorf("destination wallet: %w", err)
		}
		if wl != nil {
			created = append(created, *wl)
		}
	}

	header := domain.TransactionHeader{
		ID:                  uuid.NewString(),
		UserID:              req.UserID,
		Merchant:            c.Merchant,
		TotalAmount:         c.TotalAmount,
		Type:                c.Type,
		Category:            c.Category,
		Date:                c.Date,
		WalletID:            sourceID,
		DestinationWalletID: destID,
		Bucket:              req.Bucket,
		IsAIGenerated:       true,
		AISource:            req.Source,
		CreatedAt:           w.now(),
	}

	if err := w.store.InsertTransaction(ctx, header, lineItems(header, c.Items)); err != nil {
		return domain.TransactionHeader{}, created, fmt.Errorf("inserting transaction: %w", err)
	}

	return header, created, nil
}

// walletID returns the id for ref, creating the wallet on a cache miss.
// The second result is set only when a wallet was created.
func (w *Writer) walletID(ctx context.Context, req CommitRequest, ref *domain.WalletRef, cache walletCache) (string, *domain.Wallet, error) {
	if ref == nil {
		return "", nil, nil
	}
	if ref.ID != "" {
		return ref.ID, nil, nil
	}

	key := strings.ToLower(strings.TrimSpace(ref.Name))
	if id, ok := cache[key]; ok {
		return id, nil, nil
	}

	wl := domain.Wallet{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Name:           ref.Name,
		Kind:           InferWalletKind(ref.Name),
		InitialBalance: decimal.Zero,
		Bucket:         req.Bucket,
		CreatedAt:      w.now(),
	}
	if err := w.store.InsertWallet(ctx, wl); err != nil {
		return "", nil, fmt.Errorf("creating wallet %q: %w", ref.Name, err)
	}
	cache[key] = wl.ID

	return wl.ID, &wl, nil
}

// lineItems mirrors the header as a single line unless the receipt
// produced its own items.
func lineItems(h domain.TransactionHeader, items []domain.ItemCandidate) []domain.LineItem {
	if len(items) == 0 {
		return []domain.LineItem{{
			ID:            uuid.NewString(),
			TransactionID: h.ID,
			Name:          h.Merchant,
			Price:         h.TotalAmount,
			Quantity:      1,
		}}
	}

	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.LineItem{
			ID:            uuid.NewString(),
			TransactionID: h.ID,
			Name:          it.Name,
			Price:         it.Price,
			Quantity:      1,
		})
	}
	return out
}
