package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletKind is inferred from the wallet name, never asked of the user.
type WalletKind string

const (
	KindBank    WalletKind = "bank"
	KindEWallet WalletKind = "e-wallet"
)

// Wallet is a named funding or destination account.
type Wallet struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Kind           WalletKind       `json:"kind"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	Bucket         AllocationBucket `json:"bucket"`
	CreatedAt      time.Time        `json:"created_at"`
}

// WalletRef points at an existing wallet (ID set) or proposes a new one
// (IsNew, ID empty, Name is the proposed name).
type WalletRef struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	IsNew bool   `json:"is_new"`
}

// WalletRole says which side of a transaction a wallet hint belongs to.
type WalletRole string

const (
	RoleSource      WalletRole = "source"
	RoleDestination WalletRole = "destination"
)
