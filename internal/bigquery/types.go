package bigquery

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// LedgerRepository provides the ledger operations used by ingestion,
// quota checks and the HTTP API.
type LedgerRepository interface {
	// ListWallets returns the user's wallets in one allocation bucket, oldest first.
	ListWallets(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error)

	// InsertWallet inserts a single wallet.
	InsertWallet(ctx context.Context, w domain.Wallet) error

	// InsertTransaction inserts a transaction header followed by its line items.
	InsertTransaction(ctx context.Context, h domain.TransactionHeader, items []domain.LineItem) error

	// QueryTransactionsByDateRange lists the user's transactions between two dates, inclusive.
	QueryTransactionsByDateRange(ctx context.Context, userID string, bucket domain.AllocationBucket, start, end civil.Date) ([]*TransactionRow, error)

	// ListBills returns every bill of the user.
	ListBills(ctx context.Context, userID string) ([]domain.Bill, error)

	// MarkBillPaid sets last_paid_at for one bill.
	MarkBillPaid(ctx context.Context, userID, billID string, paidAt time.Time) error

	// ListBudgetCategories returns the distinct custom category names of the user's budgets.
	ListBudgetCategories(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]string, error)

	// GetUserTier returns the user's subscription tier, or "" without a profile.
	GetUserTier(ctx context.Context, userID string) (string, error)

	// CountAIGeneratedSince counts AI-generated headers of any source created at or after since.
	CountAIGeneratedSince(ctx context.Context, userID string, since time.Time) (int, error)

	// InsertModelOutput inserts a single raw extraction answer.
	InsertModelOutput(ctx context.Context, out domain.ModelOutput) error
}

// WalletRow represents a wallet record in BigQuery.
type WalletRow struct {
	WalletID string `bigquery:"wallet_id"`
	UserID   string `bigquery:"user_id"`

	Name string `bigquery:"name"`
	Kind string `bigquery:"kind"` // bank | e-wallet

	InitialBalance *big.Rat `bigquery:"initial_balance"` // NUMERIC

	AllocationBucket string `bigquery:"allocation_bucket"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// TransactionRow represents a transaction header in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`
	UserID        string `bigquery:"user_id" json:"user_id"`

	Merchant    string   `bigquery:"merchant" json:"merchant"`
	TotalAmount *big.Rat `bigquery:"total_amount" json:"-"`
	Type        string   `bigquery:"type" json:"type"`
	Category    string   `bigquery:"category" json:"category"`

	TransactionDate civil.Date `bigquery:"transaction_date" json:"transaction_date"`

	WalletID            bigquery.NullString `bigquery:"wallet_id" json:"wallet_id,omitempty"`
	DestinationWalletID bigquery.NullString `bigquery:"destination_wallet_id" json:"destination_wallet_id,omitempty"`

	AllocationBucket string `bigquery:"allocation_bucket" json:"allocation_bucket"`

	IsAIGenerated bool                `bigquery:"is_ai_generated" json:"is_ai_generated"`
	AISource      bigquery.NullString `bigquery:"ai_source" json:"ai_source,omitempty"`

	CreatedTS time.Time `bigquery:"created_ts" json:"created_ts"`
}

// MarshalJSON renders the NUMERIC amount as an exact decimal string.
func (t TransactionRow) MarshalJSON() ([]byte, error) {
	type Alias TransactionRow
	return json.Marshal(&struct {
		TotalAmount string `json:"total_amount"`
		*Alias
	}{
		TotalAmount: func() string {
			if t.TotalAmount == nil {
				return "0"
			}
			return t.TotalAmount.FloatString(2)
		}(),
		Alias: (*Alias)(&t),
	})
}

// TransactionItemRow represents one line item of a transaction.
type TransactionItemRow struct {
	ItemID        string   `bigquery:"item_id"`
	TransactionID string   `bigquery:"transaction_id"`
	LineIndex     int64    `bigquery:"line_index"`
	Name          string   `bigquery:"name"`
	Price         *big.Rat `bigquery:"price"` // NUMERIC
	Quantity      int64    `bigquery:"quantity"`
}

// BillRow represents a recurring bill.
type BillRow struct {
	BillID     string                 `bigquery:"bill_id"`
	UserID     string                 `bigquery:"user_id"`
	Name       string                 `bigquery:"name"`
	Amount     *big.Rat               `bigquery:"amount"`
	LastPaidAt bigquery.NullTimestamp `bigquery:"last_paid_at"`
}

// BudgetCategoryRow is one distinct custom category from the budgets table.
type BudgetCategoryRow struct {
	Category string `bigquery:"category"`
}

// UserProfileRow holds the subscription tier of a user.
type UserProfileRow struct {
	UserID string              `bigquery:"user_id"`
	Tier   bigquery.NullString `bigquery:"tier"`
}

// ModelOutputRow stores a raw extraction response.
type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"`
	UserID   string `bigquery:"user_id"`
	Feature  string `bigquery:"feature"`

	ModelName string `bigquery:"model_name"`

	RawText       bigquery.NullString `bigquery:"raw_text"`
	ResponseShape bigquery.NullString `bigquery:"response_shape"`
	IsFallback    bool                `bigquery:"is_fallback"`
	ErrorMessage  bigquery.NullString `bigquery:"error_message"`

	CreatedTS time.Time `bigquery:"created_ts"`
}
