package pipeline

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

func TestResolveWallet(t *testing.T) {
	wallets := []domain.Wallet{
		{ID: "w-bca", Name: "BCA Utama"},
		{ID: "w-gopay", Name: "GoPay"},
		{ID: "w-cash", Name: "Dompet"},
	}

	tests := []struct {
		name    string
		wallets []domain.Wallet
		hint    string
		typ     domain.TransactionType
		role    domain.WalletRole
		wantID  string
		wantNew string
		wantNil bool
	}{
		{name: "hint is substring of wallet", wallets: wallets, hint: "bca", typ: domain.TypeExpense, role: domain.RoleSource, wantID: "w-bca"},
		{name: "wallet is substring of hint", wallets: wallets, hint: "saldo gopay saya", typ: domain.TypeExpense, role: domain.RoleSource, wantID: "w-gopay"},
		{name: "unknown hint proposes capitalized wallet", wallets: wallets, hint: "ovo", typ: domain.TypeExpense, role: domain.RoleSource, wantNew: "Ovo"},
		{name: "expense without hint uses cash-like wallet", wallets: wallets, typ: domain.TypeExpense, role: domain.RoleSource, wantID: "w-cash"},
		{name: "expense without hint falls back to first wallet", wallets: wallets[:2], typ: domain.TypeExpense, role: domain.RoleSource, wantID: "w-bca"},
		{name: "expense without hint and no wallets", wallets: nil, typ: domain.TypeExpense, role: domain.RoleSource, wantNew: DefaultCashWalletName},
		{name: "income without hint", wallets: wallets, typ: domain.TypeIncome, role: domain.RoleSource, wantNil: true},
		{name: "destination without hint", wallets: wallets, typ: domain.TypeTransfer, role: domain.RoleDestination, wantNil: true},
		{name: "hint in destination role", wallets: wallets, hint: "GOPAY", typ: domain.TypeTransfer, role: domain.RoleDestination, wantID: "w-gopay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWallet(tt.wallets, tt.hint, tt.typ, tt.role)

			switch {
			case tt.wantNil:
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
			case tt.wantNew != "":
				if got == nil || !got.IsNew || got.ID != "" || got.Name != tt.wantNew {
					t.Errorf("got %+v, want new wallet %q", got, tt.wantNew)
				}
			default:
				if got == nil || got.IsNew || got.ID != tt.wantID {
					t.Errorf("got %+v, want existing %q", got, tt.wantID)
				}
			}
		})
	}
}

func TestResolveWallet_FirstMatchWins(t *testing.T) {
	wallets := []domain.Wallet{
		{ID: "w1", Name: "Mandiri Tabungan"},
		{ID: "w2", Name: "Mandiri Giro"},
	}
	got := ResolveWallet(wallets, "mandiri", domain.TypeExpense, domain.RoleSource)
	if got == nil || got.ID != "w1" {
		t.Errorf("got %+v, want w1", got)
	}
}

func TestResolveWallets_IncomeSwap(t *testing.T) {
	wallets := []domain.Wallet{{ID: "w-bca", Name: "BCA"}}
	n := domain.NormalizedCandidate{
		Merchant:              "Gaji",
		Type:                  domain.TypeIncome,
		DestinationWalletHint: "BCA",
	}

	r := ResolveWallets(wallets, n)

	if r.Source == nil || r.Source.ID != "w-bca" {
		t.Errorf("Source = %+v, want w-bca", r.Source)
	}
	if r.Destination != nil {
		t.Errorf("Destination = %+v, want nil", r.Destination)
	}
}

func TestResolveWallets_Transfer(t *testing.T) {
	wallets := []domain.Wallet{{ID: "w-bca", Name: "BCA"}}
	n := domain.NormalizedCandidate{
		Type:                  domain.TypeTransfer,
		SourceWalletHint:      "bca",
		DestinationWalletHint: "gopay",
	}

	r := ResolveWallets(wallets, n)

	if r.Source == nil || r.Source.ID != "w-bca" {
		t.Errorf("Source = %+v, want w-bca", r.Source)
	}
	if r.Destination == nil || !r.Destination.IsNew || r.Destination.Name != "Gopay" {
		t.Errorf("Destination = %+v, want new Gopay", r.Destination)
	}
}

func TestResolveWallets_ExpenseDropsDestination(t *testing.T) {
	n := domain.NormalizedCandidate{Type: domain.TypeExpense, DestinationWalletHint: "Toko"}

	r := ResolveWallets(nil, n)

	if r.Destination != nil {
		t.Errorf("Destination = %+v, want nil for expense", r.Destination)
	}
	if r.Source == nil || r.Source.Name != DefaultCashWalletName {
		t.Errorf("Source = %+v, want new Tunai", r.Source)
	}
}

func TestResolveWallets_IncomeNeverDestinationOnly(t *testing.T) {
	hints := []struct{ src, dst string }{{"", ""}, {"", "BCA"}, {"BCA", ""}, {"BCA", "Gopay"}}
	for _, h := range hints {
		r := ResolveWallets(nil, domain.NormalizedCandidate{
			Type:                  domain.TypeIncome,
			SourceWalletHint:      h.src,
			DestinationWalletHint: h.dst,
		})
		if r.Source == nil && r.Destination != nil {
			t.Errorf("hints %+v: destination without source", h)
		}
	}
}

func TestSanitize(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 10, Day: 16}
	bca := &domain.WalletRef{ID: "w-bca", Name: "BCA"}
	gopay := &domain.WalletRef{Name: "Gopay", IsNew: true}

	tests := []struct {
		name         string
		in           domain.ResolvedCandidate
		wantType     domain.TransactionType
		wantCategory string
		wantSource   *domain.WalletRef
		wantDest     *domain.WalletRef
	}{
		{
			name: "expense loses destination",
			in: domain.ResolvedCandidate{
				NormalizedCandidate: domain.NormalizedCandidate{Type: domain.TypeExpense, Category: "Belanja"},
				Source:              bca,
				Destination:         gopay,
			},
			wantType:     domain.TypeExpense,
			wantCategory: "Belanja",
			wantSource:   bca,
		},
		{
			name: "transfer keeps destination and forces category",
			in: domain.ResolvedCandidate{
				NormalizedCandidate: domain.NormalizedCandidate{Type: domain.TypeTransfer, Category: "Belanja"},
				Source:              bca,
				Destination:         gopay,
			},
			wantType:     domain.TypeTransfer,
			wantCategory: domain.CategoryTransfer,
			wantSource:   bca,
			wantDest:     gopay,
		},
		{
			name: "unknown type becomes expense",
			in: domain.ResolvedCandidate{
				NormalizedCandidate: domain.NormalizedCandidate{Type: "refund"},
				Source:              bca,
			},
			wantType:     domain.TypeExpense,
			wantCategory: domain.CategoryOther,
			wantSource:   bca,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TotalAmount = decimal.NewFromInt(-100)

			got := Sanitize(tt.in, domain.BucketBusiness, today)

			if got.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Source = %+v, want %+v", got.Source, tt.wantSource)
			}
			if got.Destination != tt.wantDest {
				t.Errorf("Destination = %+v, want %+v", got.Destination, tt.wantDest)
			}
			if !got.TotalAmount.Equal(decimal.NewFromInt(100)) {
				t.Errorf("TotalAmount = %s, want 100", got.TotalAmount)
			}
			if got.Bucket != domain.BucketBusiness || got.Date != today {
				t.Errorf("Bucket = %s Date = %s", got.Bucket, got.Date)
			}
		})
	}
}
