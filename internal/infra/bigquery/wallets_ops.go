package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// ListWalletsWithClient returns the user's wallets in one bucket, oldest first.
func ListWalletsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error) {
	q := client.Query(`
		SELECT
			wallet_id,
			user_id,
			name,
			kind,
			initial_balance,
			allocation_bucket,
			created_ts
		FROM ` + ds.Table(walletsTable) + `
		WHERE user_id = @user_id
		  AND allocation_bucket = @bucket
		ORDER BY created_ts, wallet_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "bucket", Value: string(bucket)},
	}

	rows, err := readRows[bq.WalletRow](ctx, q, "ListWalletsWithClient")
	if err != nil {
		return nil, err
	}

	wallets := make([]domain.Wallet, 0, len(rows))
	for _, r := range rows {
		wallets = append(wallets, walletFromRow(r))
	}
	return wallets, nil
}

// InsertWalletWithClient inserts a single wallet.
func InsertWalletWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, w domain.Wallet) error {
	if w.ID == "" || w.Name == "" {
		return fmt.Errorf("InsertWalletWithClient: wallet id and name are required")
	}
	row := walletToRow(w)

	q := client.Query(`
		INSERT INTO ` + ds.Table(walletsTable) + ` (
			wallet_id, user_id, name, kind,
			initial_balance, allocation_bucket, created_ts
		)
		VALUES (
			@wallet_id, @user_id, @name, @kind,
			@initial_balance, @allocation_bucket, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "wallet_id", Value: row.WalletID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "kind", Value: row.Kind},
		{Name: "initial_balance", Value: row.InitialBalance},
		{Name: "allocation_bucket", Value: row.AllocationBucket},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	return runDML(ctx, q, "InsertWalletWithClient")
}
