package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// DefaultCashWalletName is proposed when an expense has no hint and the
// user has no wallets yet.
const DefaultCashWalletName = "Tunai"

var cashWalletNames = []string{"tunai", "cash", "dompet"}

// ResolveWallet maps a hint to a wallet for one side of a transaction.
// wallets must already be restricted to the active allocation bucket.
// It returns nil when no wallet applies.
func ResolveWallet(wallets []domain.Wallet, hint string, typ domain.TransactionType, role domain.WalletRole) *domain.WalletRef {
	hint = strings.TrimSpace(hint)

	if hint != "" {
		if w := findByContainment(wallets, hint); w != nil {
			return &domain.WalletRef{ID: w.ID, Name: w.Name}
		}
		return &domain.WalletRef{Name: capitalize(hint), IsNew: true}
	}

	if role == domain.RoleSource && typ == domain.TypeExpense {
		return defaultSourceWallet(wallets)
	}

	return nil
}

// ResolveWallets resolves both roles of n. Income whose only wallet came
// in as a destination is swapped so the money lands in the funding wallet.
// Destinations survive only on transfers.
func ResolveWallets(wallets []domain.Wallet, n domain.NormalizedCandidate) domain.ResolvedCandidate {
	return applyWalletRoles(domain.ResolvedCandidate{
		NormalizedCandidate: n,
		Source:              ResolveWallet(wallets, n.SourceWalletHint, n.Type, domain.RoleSource),
		Destination:         ResolveWallet(wallets, n.DestinationWalletHint, n.Type, domain.RoleDestination),
	})
}

// Sanitize re-normalizes a resolved candidate that may have been edited
// after Prepare and re-applies the wallet role rules. Wallet refs are kept
// as given.
func Sanitize(r domain.ResolvedCandidate, bucket domain.AllocationBucket, today civil.Date) domain.ResolvedCandidate {
	amount := r.TotalAmount
	var date string
	if r.Date.IsValid() {
		date = r.Date.String()
	}

	n := Normalize(domain.Candidate{
		Merchant:              r.Merchant,
		TotalAmount:           &amount,
		Date:                  date,
		Category:              r.Category,
		Type:                  string(r.Type),
		SourceWalletHint:      r.SourceWalletHint,
		DestinationWalletHint: r.DestinationWalletHint,
		Items:                 r.Items,
	}, bucket, today)

	return applyWalletRoles(domain.ResolvedCandidate{
		NormalizedCandidate: n,
		Source:              r.Source,
		Destination:         r.Destination,
	})
}

// applyWalletRoles swaps a destination-only income into the source slot
// and drops destinations from everything but transfers.
func applyWalletRoles(r domain.ResolvedCandidate) domain.ResolvedCandidate {
	if r.Type == domain.TypeIncome && r.Source == nil && r.Destination != nil {
		r.Source, r.Destination = r.Destination, nil
	}
	if r.Type != domain.TypeTransfer {
		r.Destination = nil
	}
	return r
}

// findByContainment returns the first wallet whose name contains the hint
// or is contained in it, ignoring case.
func findByContainment(wallets []domain.Wallet, hint string) *domain.Wallet {
	h := strings.ToLower(hint)
	for i := range wallets {
		name := strings.ToLower(strings.TrimSpace(wallets[i].Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, h) || strings.Contains(h, name) {
			return &wallets[i]
		}
	}
	return nil
}

func defaultSourceWallet(wallets []domain.Wallet) *domain.WalletRef {
	for _, w := range wallets {
		name := strings.ToLower(strings.TrimSpace(w.Name))
		for _, cash := range cashWalletNames {
			if name == cash {
				return &domain.WalletRef{ID: w.ID, Name: w.Name}
			}
		}
	}

	if len(wallets) > 0 {
		return &domain.WalletRef{ID: wallets[0].ID, Name: wallets[0].Name}
	}

	return &domain.WalletRef{Name: DefaultCashWalletName, IsNew: true}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
