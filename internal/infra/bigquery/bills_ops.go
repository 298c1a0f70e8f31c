package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// ListBillsWithClient returns every bill of the user in creation order.
func ListBillsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]domain.Bill, error) {
	q := client.Query(`
		SELECT
			bill_id,
			user_id,
			name,
			amount,
			last_paid_at
		FROM ` + ds.Table(billsTable) + `
		WHERE user_id = @user_id
		ORDER BY created_ts, bill_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readRows[bq.BillRow](ctx, q, "ListBillsWithClient")
	if err != nil {
		return nil, err
	}

	bills := make([]domain.Bill, 0, len(rows))
	for _, r := range rows {
		bills = append(bills, billFromRow(r))
	}
	return bills, nil
}

// MarkBillPaidWithClient sets last_paid_at on one of the user's bills.
func MarkBillPaidWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, billID string, paidAt time.Time) error {
	q := client.Query(`
		UPDATE ` + ds.Table(billsTable) + `
		SET last_paid_at = @paid_at
		WHERE bill_id = @bill_id
		  AND user_id = @user_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "paid_at", Value: paidAt},
		{Name: "bill_id", Value: billID},
		{Name: "user_id", Value: userID},
	}

	return runDML(ctx, q, "MarkBillPaidWithClient")
}
