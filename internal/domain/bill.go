package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is a recurring obligation that a transaction can settle.
type Bill struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	LastPaidAt *time.Time      `json:"last_paid_at,omitempty"`
}

// IsPending reports whether the bill is still unpaid in now's calendar month.
func (b Bill) IsPending(now time.Time) bool {
	if b.LastPaidAt == nil {
		return true
	}
	paid := b.LastPaidAt.In(now.Location())
	return paid.Year() != now.Year() || paid.Month() != now.Month()
}
