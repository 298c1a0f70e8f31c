package pipeline

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNormalize(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 10, Day: 16}

	tests := []struct {
		name         string
		in           domain.Candidate
		wantMerchant string
		wantAmount   string
		wantDate     civil.Date
		wantCategory string
		wantType     domain.TransactionType
	}{
		{
			name:         "complete candidate kept",
			in:           domain.Candidate{Merchant: "Kopi", TotalAmount: decPtr("20000"), Date: "2026-10-15", Category: "Makanan & Minuman", Type: "expense"},
			wantMerchant: "Kopi", wantAmount: "20000", wantDate: civil.Date{Year: 2026, Month: 10, Day: 15},
			wantCategory: "Makanan & Minuman", wantType: domain.TypeExpense,
		},
		{
			name:         "blank income merchant",
			in:           domain.Candidate{Type: "income", TotalAmount: decPtr("5000000")},
			wantMerchant: DefaultIncomeMerchant, wantAmount: "5000000", wantDate: today,
			wantCategory: domain.CategoryOther, wantType: domain.TypeIncome,
		},
		{
			name:         "blank expense merchant and missing amount",
			in:           domain.Candidate{Merchant: "  ", Type: "EXPENSE"},
			wantMerchant: DefaultExpenseMerchant, wantAmount: "0", wantDate: today,
			wantCategory: domain.CategoryOther, wantType: domain.TypeExpense,
		},
		{
			name:         "unparseable date and unknown type",
			in:           domain.Candidate{Merchant: "Parkir", Date: "kemarin", Type: "payment", TotalAmount: decPtr("2000")},
			wantMerchant: "Parkir", wantAmount: "2000", wantDate: today,
			wantCategory: domain.CategoryOther, wantType: domain.TypeExpense,
		},
		{
			name:         "transfer forces transfer category",
			in:           domain.Candidate{Merchant: "Topup", Type: "transfer", Category: "Belanja", TotalAmount: decPtr("100000")},
			wantMerchant: "Topup", wantAmount: "100000", wantDate: today,
			wantCategory: domain.CategoryTransfer, wantType: domain.TypeTransfer,
		},
		{
			name:         "transfer category on expense is dropped",
			in:           domain.Candidate{Merchant: "Bayar", Type: "expense", Category: "mutasi saldo", TotalAmount: decPtr("1")},
			wantMerchant: "Bayar", wantAmount: "1", wantDate: today,
			wantCategory: domain.CategoryOther, wantType: domain.TypeExpense,
		},
		{
			name:         "invalid calendar date",
			in:           domain.Candidate{Merchant: "X", Date: "2026-02-30"},
			wantMerchant: "X", wantAmount: "0", wantDate: today,
			wantCategory: domain.CategoryOther, wantType: domain.TypeExpense,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, domain.BucketBusiness, today)

			if got.Merchant != tt.wantMerchant {
				t.Errorf("Merchant = %q, want %q", got.Merchant, tt.wantMerchant)
			}
			if got.TotalAmount.String() != tt.wantAmount {
				t.Errorf("TotalAmount = %s, want %s", got.TotalAmount, tt.wantAmount)
			}
			if got.Date != tt.wantDate {
				t.Errorf("Date = %s, want %s", got.Date, tt.wantDate)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Bucket != domain.BucketBusiness {
				t.Errorf("Bucket = %q, want caller's bucket", got.Bucket)
			}
		})
	}
}

func TestNormalizeAll_PreservesCount(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 10, Day: 16}
	in := []domain.Candidate{{Merchant: "kopi"}, {}, {Type: "income"}}

	out := NormalizeAll(in, domain.BucketPersonal, today)
	if len(out) != len(in) {
		t.Fatalf("got %d candidates, want %d", len(out), len(in))
	}
	for i, n := range out {
		if n.Merchant == "" || n.Category == "" || n.Type == "" || !n.Date.IsValid() {
			t.Errorf("candidate %d has empty required field: %+v", i, n)
		}
	}
}
