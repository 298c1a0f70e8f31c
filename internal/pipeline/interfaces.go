package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// LedgerStore is the persistence contract the pipeline needs. It is a
// minimal interface so the pipeline does not depend on BigQuery; the full
// repository lives in internal/bigquery.
type LedgerStore interface {
	// ListWallets returns the user's wallets in one allocation bucket.
	ListWallets(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error)

	// InsertWallet persists a new wallet.
	InsertWallet(ctx context.Context, w domain.Wallet) error

	// InsertTransaction persists a header and its line items.
	InsertTransaction(ctx context.Context, h domain.TransactionHeader, items []domain.LineItem) error

	// ListBills returns every bill of the user, paid or not.
	ListBills(ctx context.Context, userID string) ([]domain.Bill, error)

	// MarkBillPaid sets the bill's last_paid_at.
	MarkBillPaid(ctx context.Context, userID, billID string, paidAt time.Time) error

	// ListBudgetCategories returns the user's custom category names.
	ListBudgetCategories(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]string, error)
}

// ModelOutputStore keeps the raw extraction responses for auditing.
type ModelOutputStore interface {
	InsertModelOutput(ctx context.Context, out domain.ModelOutput) error
}

// Extractor turns raw user input into candidates.
type Extractor interface {
	ExtractFromText(ctx context.Context, text string, categories []string) extraction.TextResult
	ExtractFromImage(ctx context.Context, image []byte, mimeType string, categories []string) (extraction.ImageResult, error)
	Model() string
}

// QuotaChecker admits or rejects an AI-assisted request.
type QuotaChecker interface {
	Check(ctx context.Context, userID string, feature domain.FeatureClass) quota.Decision
}

// Locker serializes commits for one key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Mirror receives committed headers after the batch has been written.
type Mirror interface {
	MirrorTransactions(ctx context.Context, headers []domain.TransactionHeader) error
}
