package bigquery

import (
	"context"
	"strings"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// GetUserTierWithClient returns the tier on the user's profile, or "" when
// the user has no profile or no tier.
func GetUserTierWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) (string, error) {
	q := client.Query(`
		SELECT user_id, tier
		FROM ` + ds.Table(userProfilesTable) + `
		WHERE user_id = @user_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readRows[bq.UserProfileRow](ctx, q, "GetUserTierWithClient")
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || !rows[0].Tier.Valid {
		return "", nil
	}
	return rows[0].Tier.StringVal, nil
}

// ListBudgetCategoriesWithClient returns the distinct category names of
// the user's budgets in one bucket.
func ListBudgetCategoriesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, bucket domain.AllocationBucket) ([]string, error) {
	q := client.Query(`
		SELECT DISTINCT category
		FROM ` + ds.Table(budgetsTable) + `
		WHERE user_id = @user_id
		  AND allocation_bucket = @bucket
		  AND category IS NOT NULL
		ORDER BY category
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "bucket", Value: string(bucket)},
	}

	rows, err := readRows[bq.BudgetCategoryRow](ctx, q, "ListBudgetCategoriesWithClient")
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if name := strings.TrimSpace(r.Category); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}
