package bigquery

import (
	"math/big"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// numericScale is the number of fractional digits BigQuery NUMERIC keeps.
const numericScale = 9

func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func walletFromRow(r bq.WalletRow) domain.Wallet {
	return domain.Wallet{
		ID:             r.WalletID,
		UserID:         r.UserID,
		Name:           r.Name,
		Kind:           domain.WalletKind(r.Kind),
		InitialBalance: decimalFromRat(r.InitialBalance),
		Bucket:         domain.AllocationBucket(r.AllocationBucket),
		CreatedAt:      r.CreatedTS,
	}
}

func walletToRow(w domain.Wallet) bq.WalletRow {
	return bq.WalletRow{
		WalletID:         w.ID,
		UserID:           w.UserID,
		Name:             w.Name,
		Kind:             string(w.Kind),
		InitialBalance:   ratFromDecimal(w.InitialBalance),
		AllocationBucket: string(w.Bucket),
		CreatedTS:        w.CreatedAt,
	}
}

func headerToRow(h domain.TransactionHeader) bq.TransactionRow {
	return bq.TransactionRow{
		TransactionID:       h.ID,
		UserID:              h.UserID,
		Merchant:            h.Merchant,
		TotalAmount:         ratFromDecimal(h.TotalAmount),
		Type:                string(h.Type),
		Category:            h.Category,
		TransactionDate:     h.Date,
		WalletID:            nullString(h.WalletID),
		DestinationWalletID: nullString(h.DestinationWalletID),
		AllocationBucket:    string(h.Bucket),
		IsAIGenerated:       h.IsAIGenerated,
		AISource:            nullString(string(h.AISource)),
		CreatedTS:           h.CreatedAt,
	}
}

func itemsToRows(items []domain.LineItem) []bq.TransactionItemRow {
	rows := make([]bq.TransactionItemRow, 0, len(items))
	for i, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		rows = append(rows, bq.TransactionItemRow{
			ItemID:        it.ID,
			TransactionID: it.TransactionID,
			LineIndex:     int64(i),
			Name:          it.Name,
			Price:         ratFromDecimal(it.Price),
			Quantity:      qty,
		})
	}
	return rows
}

func billFromRow(r bq.BillRow) domain.Bill {
	b := domain.Bill{
		ID:     r.BillID,
		UserID: r.UserID,
		Name:   r.Name,
		Amount: decimalFromRat(r.Amount),
	}
	if r.LastPaidAt.Valid {
		t := r.LastPaidAt.Timestamp
		b.LastPaidAt = &t
	}
	return b
}

// maxRawTextLen keeps audit rows well below BigQuery's row size limit.
const maxRawTextLen = 100_000

func modelOutputToRow(out domain.ModelOutput) bq.ModelOutputRow {
	raw := out.RawText
	if len(raw) > maxRawTextLen {
		raw = raw[:maxRawTextLen]
	}
	errMsg := out.Error
	const maxErrLen = 2000
	if len(errMsg) > maxErrLen {
		errMsg = errMsg[:maxErrLen]
	}

	return bq.ModelOutputRow{
		OutputID:      out.ID,
		UserID:        out.UserID,
		Feature:       strings.ToUpper(string(out.Feature)),
		ModelName:     out.ModelName,
		RawText:       nullString(raw),
		ResponseShape: nullString(out.Shape),
		IsFallback:    out.Fallback,
		ErrorMessage:  nullString(errMsg),
		CreatedTS:     out.CreatedAt,
	}
}
