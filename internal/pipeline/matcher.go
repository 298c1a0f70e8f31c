package pipeline

import (
	"strings"
	"time"
	"unicode"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// BillMatchThreshold is the lowest score that still links a bill. A
// two-word bill name matches on a single shared word.
const BillMatchThreshold = 0.4

// BillMatch is a pending bill the candidate is likely to settle.
type BillMatch struct {
	Bill  domain.Bill `json:"bill"`
	Score float64     `json:"score"`
}

// FindBestMatch scores c against the bills still pending in now's month
// and returns the best one at or above BillMatchThreshold, or nil. On equal
// scores the earlier bill wins.
func FindBestMatch(bills []domain.Bill, c domain.NormalizedCandidate, now time.Time) *BillMatch {
	search := searchText(c)

	var best *BillMatch
	for _, b := range bills {
		if !b.IsPending(now) {
			continue
		}
		score := ScoreBill(b.Name, search)
		if score < BillMatchThreshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &BillMatch{Bill: b, Score: score}
		}
	}
	return best
}

// ScoreBill returns the share of the bill name's words found in search,
// or 1.0 when the whole cleaned bill name occurs in search. search must
// already be cleaned.
func ScoreBill(billName, search string) float64 {
	name := cleanText(billName)
	billTokens := strings.Fields(name)
	if len(billTokens) == 0 {
		return 0
	}

	if strings.Contains(search, name) {
		return 1.0
	}

	present := make(map[string]bool)
	for _, tok := range strings.Fields(search) {
		present[tok] = true
	}

	hits := 0
	for _, tok := range billTokens {
		if present[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(billTokens))
}

// searchText joins the merchant and every item name into one cleaned string.
func searchText(c domain.NormalizedCandidate) string {
	parts := []string{c.Merchant}
	for _, it := range c.Items {
		parts = append(parts, it.Name)
	}
	return cleanText(strings.Join(parts, " "))
}

// cleanText lowercases s, drops punctuation and symbols, and collapses
// whitespace to single spaces.
func cleanText(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(stripped), " ")
}
