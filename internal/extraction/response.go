package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// ResponseShape names the layout the model used for its answer.
type ResponseShape string

const (
	ShapeSequence     ResponseShape = "sequence"
	ShapeTransactions ResponseShape = "transactions_key"
	ShapeData         ResponseShape = "data_key"
	ShapeSingle       ResponseShape = "single"
)

var errUnrecognizedShape = errors.New("unrecognized response shape")

// cleanModelJSON strips Markdown fences and any prose around the outermost
// JSON array or object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}

	return s
}

// decodeResponse parses model text into records and reports which shape
// the records came from. Numbers are kept as json.Number so amounts never
// pass through float64.
func decodeResponse(raw string) ([]map[string]interface{}, ResponseShape, error) {
	clean := cleanModelJSON(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("decodeResponse: unmarshal JSON: %w", err)
	}

	list, shape, err := unwrapResponse(parsed)
	if err != nil {
		return nil, "", fmt.Errorf("decodeResponse: %w", err)
	}

	records := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, m)
		}
	}
	return records, shape, nil
}

// unwrapResponse resolves every accepted layout to a list of elements.
func unwrapResponse(v interface{}) ([]interface{}, ResponseShape, error) {
	switch val := v.(type) {
	case []interface{}:
		return val, ShapeSequence, nil
	case map[string]interface{}:
		if list, ok := val["transactions"].([]interface{}); ok {
			return list, ShapeTransactions, nil
		}
		if list, ok := val["data"].([]interface{}); ok {
			return list, ShapeData, nil
		}
		return []interface{}{val}, ShapeSingle, nil
	default:
		return nil, "", fmt.Errorf("%w: %T", errUnrecognizedShape, v)
	}
}

// candidateFromRecord maps one raw record to a Candidate. Malformed fields
// are dropped rather than rejected; the normalizer fills the gaps.
func candidateFromRecord(m map[string]interface{}) domain.Candidate {
	c := domain.Candidate{
		Merchant:              getString(m, "merchant"),
		TotalAmount:           getDecimal(m, "total_amount"),
		Date:                  getString(m, "date"),
		Category:              getString(m, "category"),
		Type:                  getString(m, "type"),
		SourceWalletHint:      getHint(m, "source_wallet"),
		DestinationWalletHint: getHint(m, "destination_wallet"),
	}

	if items, ok := m["items"].([]interface{}); ok {
		for _, raw := range items {
			im, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			name := getString(im, "name")
			if name == "" {
				continue
			}
			price := decimal.Zero
			if p := getDecimal(im, "price"); p != nil {
				price = *p
			}
			c.Items = append(c.Items, domain.ItemCandidate{Name: name, Price: price})
		}
	}

	return c
}

func getString(m map[string]interface{}, key string) string {
	switch val := m[key].(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// getHint treats the model's textual spellings of "nothing" as absent.
func getHint(m map[string]interface{}, key string) string {
	s := getString(m, key)
	switch strings.ToLower(s) {
	case "null", "none", "-", "n/a":
		return ""
	}
	return s
}

// getDecimal accepts JSON numbers and numeric strings. Negative values are
// folded to their magnitude.
func getDecimal(m map[string]interface{}, key string) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)

	switch val := m[key].(type) {
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		d = decimal.NewFromFloat(val)
	case string:
		s, ok := amountString(val)
		if !ok {
			return nil
		}
		d, err = decimal.NewFromString(s)
	default:
		return nil
	}
	if err != nil {
		return nil
	}

	d = d.Abs()
	return &d
}

// idNumber matches Indonesian notation such as 20.000, 1.250.000,50 or 12,5.
var idNumber = regexp.MustCompile(`^(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)

// amountString cleans a textual amount for decimal parsing. Amounts with a
// rupiah prefix or Indonesian grouping use '.' for thousands and ',' for
// decimals.
func amountString(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "-")

	var currency bool
	lower := strings.ToLower(s)
	for _, prefix := range []string{"idr", "rp"} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			currency = true
			break
		}
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), ".")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", false
	}

	if currency || idNumber.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return s, true
}
