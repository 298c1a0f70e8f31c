package bigquery

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

func TestDecimalFromRat(t *testing.T) {
	tests := []struct {
		name string
		in   *big.Rat
		want string
	}{
		{"nil", nil, "0"},
		{"integer", big.NewRat(150000, 1), "150000"},
		{"fraction", big.NewRat(1, 4), "0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decimalFromRat(tt.in).String(); got != tt.want {
				t.Errorf("decimalFromRat() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHeaderToRow(t *testing.T) {
	h := domain.TransactionHeader{
		ID:            "tx1",
		UserID:        "u1",
		Merchant:      "kopi",
		TotalAmount:   decimal.RequireFromString("20000.50"),
		Type:          domain.TypeExpense,
		Category:      "Makanan & Minuman",
		Date:          civil.Date{Year: 2026, Month: 10, Day: 16},
		WalletID:      "w1",
		Bucket:        domain.BucketPersonal,
		IsAIGenerated: true,
		AISource:      domain.FeatureVoice,
	}

	row := headerToRow(h)

	if row.TotalAmount.Cmp(big.NewRat(400010, 20)) != 0 {
		t.Errorf("TotalAmount = %s, want 20000.5", row.TotalAmount.FloatString(2))
	}
	if !row.WalletID.Valid || row.WalletID.StringVal != "w1" {
		t.Errorf("WalletID = %+v", row.WalletID)
	}
	if row.DestinationWalletID.Valid {
		t.Error("DestinationWalletID should be NULL when empty")
	}
	if row.AISource.StringVal != "VOICE" {
		t.Errorf("AISource = %+v, want VOICE", row.AISource)
	}
}

func TestItemsToRows(t *testing.T) {
	rows := itemsToRows([]domain.LineItem{
		{ID: "i1", TransactionID: "tx1", Name: "Susu", Price: decimal.NewFromInt(20500), Quantity: 1},
		{ID: "i2", TransactionID: "tx1", Name: "Roti", Price: decimal.NewFromInt(25000)},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].LineIndex != 1 || rows[1].Quantity != 1 {
		t.Errorf("row[1] = %+v, want line index 1 and quantity 1", rows[1])
	}
}

func TestBillFromRow(t *testing.T) {
	paid := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	unpaid := billFromRow(bq.BillRow{BillID: "b1", Name: "Listrik", Amount: big.NewRat(150000, 1)})
	if unpaid.LastPaidAt != nil {
		t.Error("LastPaidAt should be nil for NULL timestamp")
	}
	if unpaid.Amount.String() != "150000" {
		t.Errorf("Amount = %s, want 150000", unpaid.Amount)
	}

	b := billFromRow(bq.BillRow{BillID: "b2", LastPaidAt: bigquery.NullTimestamp{Timestamp: paid, Valid: true}})
	if b.LastPaidAt == nil || !b.LastPaidAt.Equal(paid) {
		t.Errorf("LastPaidAt = %v, want %v", b.LastPaidAt, paid)
	}
}

func TestModelOutputToRow_Truncates(t *testing.T) {
	row := modelOutputToRow(domain.ModelOutput{
		ID:      "o1",
		Feature: "voice",
		RawText: strings.Repeat("x", maxRawTextLen+10),
		Error:   strings.Repeat("e", 3000),
	})

	if len(row.RawText.StringVal) != maxRawTextLen {
		t.Errorf("RawText length = %d, want %d", len(row.RawText.StringVal), maxRawTextLen)
	}
	if len(row.ErrorMessage.StringVal) != 2000 {
		t.Errorf("ErrorMessage length = %d, want 2000", len(row.ErrorMessage.StringVal))
	}
	if row.Feature != "VOICE" {
		t.Errorf("Feature = %q, want VOICE", row.Feature)
	}
	if row.ResponseShape.Valid {
		t.Error("ResponseShape should be NULL when empty")
	}
}

func TestBuildItemsInsert(t *testing.T) {
	ds := Dataset{ProjectID: "p", DatasetID: "finance"}
	sql, params := buildItemsInsert(ds, []bq.TransactionItemRow{
		{ItemID: "i1", TransactionID: "t", Name: "a", Price: big.NewRat(1, 1), Quantity: 1},
		{ItemID: "i2", TransactionID: "t", Name: "b", Price: big.NewRat(2, 1), Quantity: 1, LineIndex: 1},
	})

	if !strings.Contains(sql, "`p.finance.transaction_items`") {
		t.Errorf("sql missing table: %s", sql)
	}
	if !strings.Contains(sql, "@item_id_1") || strings.Count(sql, "(@item_id_") != 2 {
		t.Errorf("sql should have two value tuples: %s", sql)
	}
	if len(params) != 12 {
		t.Errorf("got %d params, want 12", len(params))
	}
}

func TestBuildCountAIGeneratedQuery(t *testing.T) {
	sql := buildCountAIGeneratedQuery(Dataset{ProjectID: "p", DatasetID: "finance"})

	if !strings.Contains(sql, "`p.finance.transactions`") {
		t.Errorf("sql missing table: %s", sql)
	}
	if strings.Contains(sql, "ai_source") {
		t.Errorf("usage must count every source, got filter: %s", sql)
	}
	for _, want := range []string{"is_ai_generated = TRUE", "created_ts >= @since", "user_id = @user_id"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q: %s", want, sql)
		}
	}
}

func TestTransactionRowMarshalJSON(t *testing.T) {
	row := bq.TransactionRow{TransactionID: "t1", TotalAmount: big.NewRat(41, 2)}
	b, err := row.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if !strings.Contains(string(b), `"total_amount":"20.50"`) {
		t.Errorf("json = %s, want total_amount 20.50", b)
	}
}
