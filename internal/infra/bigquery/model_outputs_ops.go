package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// InsertModelOutputWithClient inserts a raw extraction answer into
// model_outputs. Uses DML INSERT to avoid streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, out domain.ModelOutput) error {
	row := modelOutputToRow(out)

	q := client.Query(`
		INSERT INTO ` + ds.Table(modelOutputsTable) + ` (
			output_id, user_id, feature, model_name,
			raw_text, response_shape, is_fallback,
			error_message, created_ts
		)
		VALUES (
			@output_id, @user_id, @feature, @model_name,
			@raw_text, @response_shape, @is_fallback,
			@error_message, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "user_id", Value: row.UserID},
		{Name: "feature", Value: row.Feature},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "response_shape", Value: row.ResponseShape},
		{Name: "is_fallback", Value: row.IsFallback},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	return runDML(ctx, q, "InsertModelOutputWithClient")
}
