package notionsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// BatchSize is the number of transactions mirrored between progress logs.
const BatchSize = 100

// Mirror copies committed transaction headers into a Notion database.
// Pages are keyed by the Transaction ID property, so mirroring is idempotent.
type Mirror struct {
	client     PageStore
	databaseID string
}

// NewMirror creates a mirror writing to databaseID.
func NewMirror(client PageStore, databaseID string) *Mirror {
	return &Mirror{client: client, databaseID: databaseID}
}

// MirrorTransactions creates one page per header that is not mirrored yet.
// Every header is attempted; failures are joined into the returned error.
func (m *Mirror) MirrorTransactions(ctx context.Context, headers []domain.TransactionHeader) error {
	log := logger.FromContext(ctx)

	var errs []error
	var created, skipped int
	for i, h := range headers {
		if i > 0 && i%BatchSize == 0 {
			log.Info().Int("processed", i).Int("total", len(headers)).Msg("Mirroring transactions to Notion")
		}

		exists, err := m.client.HasTransaction(ctx, m.databaseID, h.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", h.ID, err))
			continue
		}
		if exists {
			skipped++
			continue
		}

		pageID, err := m.client.CreatePage(ctx, m.databaseID, HeaderToNotionProperties(h))
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", h.ID).
				Msg("Failed to create Notion page")
			errs = append(errs, fmt.Errorf("transaction %s: %w", h.ID, err))
			continue
		}

		log.Debug().
			Str("transaction_id", h.ID).
			Str("page_id", string(pageID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("failed", len(errs)).
		Msg("Notion mirror completed")

	if len(errs) > 0 {
		return fmt.Errorf("MirrorTransactions: %w", errors.Join(errs...))
	}
	return nil
}

// TransactionQuerier reads stored transactions for a backfill.
type TransactionQuerier interface {
	QueryTransactionsByDateRange(ctx context.Context, userID string, bucket domain.AllocationBucket, start, end civil.Date) ([]*bq.TransactionRow, error)
}

// Backfill mirrors every stored transaction of a user and bucket between
// start and end, inclusive. Already mirrored transactions are skipped.
func Backfill(ctx context.Context, repo TransactionQuerier, m *Mirror, userID string, bucket domain.AllocationBucket, start, end time.Time) error {
	log := logger.FromContext(ctx)

	rows, err := repo.QueryTransactionsByDateRange(ctx, userID, bucket, civil.DateOf(start), civil.DateOf(end))
	if err != nil {
		return fmt.Errorf("Backfill: querying transactions: %w", err)
	}

	log.Info().Int("transaction_count", len(rows)).Msg("Retrieved transactions from BigQuery")

	headers := make([]domain.TransactionHeader, 0, len(rows))
	for _, row := range rows {
		headers = append(headers, RowToHeader(row))
	}

	if err := m.MirrorTransactions(ctx, headers); err != nil {
		return fmt.Errorf("Backfill: %w", err)
	}
	return nil
}
