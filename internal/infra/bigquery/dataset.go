package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// Table names in the ledger dataset.
const (
	walletsTable          = "wallets"
	transactionsTable     = "transactions"
	transactionItemsTable = "transaction_items"
	billsTable            = "bills"
	budgetsTable          = "budgets"
	userProfilesTable     = "user_profiles"
	modelOutputsTable     = "model_outputs"
)

// Dataset locates the ledger tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the backquoted, fully qualified name of a table.
func (d Dataset) Table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}

// runDML runs a DML statement and waits for it to finish. DML is used
// instead of streaming inserts so rows can be updated right away.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}

// readRows runs q and collects every row into T.
func readRows[T any](ctx context.Context, q *bigquery.Query, op string) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iterating: %w", op, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
