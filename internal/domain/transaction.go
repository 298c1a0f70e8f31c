package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

// ParseTransactionType maps free text to a known type, ignoring case and
// surrounding space. ok is false for anything else.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return t, true
	}
	return "", false
}

// AllocationBucket partitions a user's data into personal and business books.
type AllocationBucket string

const (
	BucketPersonal AllocationBucket = "PERSONAL"
	BucketBusiness AllocationBucket = "BUSINESS"
)

// ParseAllocationBucket accepts the application mode names used by clients.
// Anything that is not a business/organization mode falls back to PERSONAL.
func ParseAllocationBucket(s string) AllocationBucket {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUSINESS", "ORGANIZATION", "ORG":
		return BucketBusiness
	}
	return BucketPersonal
}

// Category labels with fixed meaning in the pipeline.
const (
	// CategoryTransfer is reserved for transfers between the user's own wallets.
	CategoryTransfer = "Mutasi Saldo"
	// CategoryOther is the catch-all category.
	CategoryOther = "Lainnya"
)

// Candidate is an unpersisted transaction as extracted from free text or a
// receipt. Fields are kept close to what the model produced: Date and Type
// are raw strings and TotalAmount is nil when the model gave nothing numeric.
type Candidate struct {
	Merchant              string           `json:"merchant"`
	TotalAmount           *decimal.Decimal `json:"total_amount"`
	Date                  string           `json:"date"`
	Category              string           `json:"category"`
	Type                  string           `json:"type"`
	SourceWalletHint      string           `json:"source_wallet_hint,omitempty"`
	DestinationWalletHint string           `json:"destination_wallet_hint,omitempty"`

	// Items is only populated by receipt extraction.
	Items []ItemCandidate `json:"items,omitempty"`
}

// ItemCandidate is one line read off a receipt.
type ItemCandidate struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// NormalizedCandidate is a candidate with every required field filled in.
type NormalizedCandidate struct {
	Merchant              string           `json:"merchant"`
	TotalAmount           decimal.Decimal  `json:"total_amount"`
	Date                  civil.Date       `json:"date"`
	Category              string           `json:"category"`
	Type                  TransactionType  `json:"type"`
	SourceWalletHint      string           `json:"source_wallet_hint,omitempty"`
	DestinationWalletHint string           `json:"destination_wallet_hint,omitempty"`
	Bucket                AllocationBucket `json:"bucket"`
	Items                 []ItemCandidate  `json:"items,omitempty"`
}

// ResolvedCandidate carries the wallet resolution for a normalized candidate.
// Source and Destination are nil when no wallet applies.
type ResolvedCandidate struct {
	NormalizedCandidate

	Source      *WalletRef `json:"source,omitempty"`
	Destination *WalletRef `json:"destination,omitempty"`
}

// TransactionHeader is the persisted transaction record.
type TransactionHeader struct {
	ID                  string           `json:"id"`
	UserID              string           `json:"user_id"`
	Merchant            string           `json:"merchant"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	Type                TransactionType  `json:"type"`
	Category            string           `json:"category"`
	Date                civil.Date       `json:"date"`
	WalletID            string           `json:"wallet_id,omitempty"`
	DestinationWalletID string           `json:"destination_wallet_id,omitempty"` // empty unless Type is transfer
	Bucket              AllocationBucket `json:"bucket"`
	IsAIGenerated       bool             `json:"is_ai_generated"`
	AISource            FeatureClass     `json:"ai_source"`
	CreatedAt           time.Time        `json:"created_at"`
}

// LineItem is one persisted line of a transaction.
type LineItem struct {
	ID            string
	TransactionID string
	Name          string
	Price         decimal.Decimal
	Quantity      int64
}
