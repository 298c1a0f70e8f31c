package pipeline

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Default merchant names for candidates the model left blank.
const (
	DefaultIncomeMerchant  = "Pemasukan"
	DefaultExpenseMerchant = "Transaksi"
)

// Normalize fills every required field of c. The bucket comes from the
// caller's active mode, never from the model.
func Normalize(c domain.Candidate, bucket domain.AllocationBucket, today civil.Date) domain.NormalizedCandidate {
	typ, ok := domain.ParseTransactionType(c.Type)
	if !ok {
		typ = domain.TypeExpense
	}

	merchant := strings.TrimSpace(c.Merchant)
	if merchant == "" {
		if typ == domain.TypeIncome {
			merchant = DefaultIncomeMerchant
		} else {
			merchant = DefaultExpenseMerchant
		}
	}

	date := today
	if s := strings.TrimSpace(c.Date); s != "" {
		if d, err := civil.ParseDate(s); err == nil && d.IsValid() {
			date = d
		}
	}

	category := strings.TrimSpace(c.Category)
	switch {
	case typ == domain.TypeTransfer:
		category = domain.CategoryTransfer
	case category == "" || strings.EqualFold(category, domain.CategoryTransfer):
		category = domain.CategoryOther
	}

	amount := decimal.Zero
	if c.TotalAmount != nil {
		amount = c.TotalAmount.Abs()
	}

	return domain.NormalizedCandidate{
		Merchant:              merchant,
		TotalAmount:           amount,
		Date:                  date,
		Category:              category,
		Type:                  typ,
		SourceWalletHint:      strings.TrimSpace(c.SourceWalletHint),
		DestinationWalletHint: strings.TrimSpace(c.DestinationWalletHint),
		Bucket:                bucket,
		Items:                 c.Items,
	}
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(cs []domain.Candidate, bucket domain.AllocationBucket, today civil.Date) []domain.NormalizedCandidate {
	out := make([]domain.NormalizedCandidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, Normalize(c, bucket, today))
	}
	return out
}
