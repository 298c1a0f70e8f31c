package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// InsertTransactionWithClient inserts a header and then its line items.
// The two statements are not atomic: a failure on the items leaves the
// header in place and is returned to the caller.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, h domain.TransactionHeader, items []domain.LineItem) error {
	row := headerToRow(h)

	q := client.Query(`
		INSERT INTO ` + ds.Table(transactionsTable) + ` (
			transaction_id, user_id, merchant, total_amount,
			type, category, transaction_date,
			wallet_id, destination_wallet_id, allocation_bucket,
			is_ai_generated, ai_source, created_ts
		)
		VALUES (
			@transaction_id, @user_id, @merchant, @total_amount,
			@type, @category, @transaction_date,
			@wallet_id, @destination_wallet_id, @allocation_bucket,
			@is_ai_generated, @ai_source, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "merchant", Value: row.Merchant},
		{Name: "total_amount", Value: row.TotalAmount},
		{Name: "type", Value: row.Type},
		{Name: "category", Value: row.Category},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "wallet_id", Value: row.WalletID},
		{Name: "destination_wallet_id", Value: row.DestinationWalletID},
		{Name: "allocation_bucket", Value: row.AllocationBucket},
		{Name: "is_ai_generated", Value: row.IsAIGenerated},
		{Name: "ai_source", Value: row.AISource},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q, "InsertTransactionWithClient"); err != nil {
		return err
	}

	return InsertTransactionItemsWithClient(ctx, client, ds, itemsToRows(items))
}

// InsertTransactionItemsWithClient inserts line items in one statement.
func InsertTransactionItemsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []bq.TransactionItemRow) error {
	if len(rows) == 0 {
		return nil
	}

	sql, params := buildItemsInsert(ds, rows)
	q := client.Query(sql)
	q.Parameters = params

	return runDML(ctx, q, "InsertTransactionItemsWithClient")
}

// buildItemsInsert renders a multi-row INSERT with one parameter set per row.
func buildItemsInsert(ds Dataset, rows []bq.TransactionItemRow) (string, []bigquery.QueryParameter) {
	var b strings.Builder
	b.WriteString("INSERT INTO " + ds.Table(transactionItemsTable) +
		" (item_id, transaction_id, line_index, name, price, quantity) VALUES ")

	params := make([]bigquery.QueryParameter, 0, len(rows)*6)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(@item_id_%d, @transaction_id_%d, @line_index_%d, @name_%d, @price_%d, @quantity_%d)", i, i, i, i, i, i)
		params = append(params,
			bigquery.QueryParameter{Name: fmt.Sprintf("item_id_%d", i), Value: r.ItemID},
			bigquery.QueryParameter{Name: fmt.Sprintf("transaction_id_%d", i), Value: r.TransactionID},
			bigquery.QueryParameter{Name: fmt.Sprintf("line_index_%d", i), Value: r.LineIndex},
			bigquery.QueryParameter{Name: fmt.Sprintf("name_%d", i), Value: r.Name},
			bigquery.QueryParameter{Name: fmt.Sprintf("price_%d", i), Value: r.Price},
			bigquery.QueryParameter{Name: fmt.Sprintf("quantity_%d", i), Value: r.Quantity},
		)
	}

	return b.String(), params
}

// QueryTransactionsByDateRangeWithClient lists the user's headers in one
// bucket with transaction_date between start and end, inclusive.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, bucket domain.AllocationBucket, start, end civil.Date) ([]*bq.TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			user_id,
			merchant,
			total_amount,
			type,
			category,
			transaction_date,
			wallet_id,
			destination_wallet_id,
			allocation_bucket,
			is_ai_generated,
			ai_source,
			created_ts
		FROM ` + ds.Table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND allocation_bucket = @bucket
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "bucket", Value: string(bucket)},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	rows, err := readRows[bq.TransactionRow](ctx, q, "QueryTransactionsByDateRangeWithClient")
	if err != nil {
		return nil, err
	}

	out := make([]*bq.TransactionRow, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

type countRow struct {
	Count int64 `bigquery:"cnt"`
}

// buildCountAIGeneratedQuery counts every AI-generated header regardless of
// ai_source: all feature limits share one daily total.
func buildCountAIGeneratedQuery(ds Dataset) string {
	return `
		SELECT COUNT(*) AS cnt
		FROM ` + ds.Table(transactionsTable) + `
		WHERE user_id = @user_id
		  AND is_ai_generated = TRUE
		  AND created_ts >= @since
	`
}

// CountAIGeneratedSinceWithClient counts the AI-generated headers the user
// created at or after since, across all sources.
func CountAIGeneratedSinceWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, since time.Time) (int, error) {
	q := client.Query(buildCountAIGeneratedQuery(ds))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: since},
	}

	rows, err := readRows[countRow](ctx, q, "CountAIGeneratedSinceWithClient")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0].Count), nil
}
