package extraction

import (
	"strings"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// DefaultExpenseCategories are offered to every user for money going out.
var DefaultExpenseCategories = []string{
	"Makanan & Minuman",
	"Transportasi",
	"Belanja",
	"Tagihan",
	"Hiburan",
	"Kesehatan",
	"Pendidikan",
	"Rumah Tangga",
	domain.CategoryOther,
}

// DefaultIncomeCategories are offered to every user for money coming in.
var DefaultIncomeCategories = []string{
	"Gaji",
	"Bonus",
	"Penjualan",
	"Investasi",
	"Hadiah",
	domain.CategoryOther,
}

// BuildAllowedCategories returns the closed label set for prompts: the
// default expense and income lists, the user's budget category names and
// the transfer category, de-duplicated case-insensitively in that order.
func BuildAllowedCategories(custom []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, name)
	}

	for _, c := range DefaultExpenseCategories {
		add(c)
	}
	for _, c := range DefaultIncomeCategories {
		add(c)
	}
	for _, c := range custom {
		add(c)
	}
	add(domain.CategoryTransfer)

	return out
}
