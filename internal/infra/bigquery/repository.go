package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Re-export the shared interface so callers can depend on this package alone.
type Repository = bq.LedgerRepository

// LedgerRepository is the BigQuery implementation of Repository. It holds
// a shared client to avoid creating a new connection for each operation.
type LedgerRepository struct {
	client *bigquery.Client
	ds     Dataset
}

var _ Repository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a repository with its own BigQuery client.
func NewLedgerRepository(ctx context.Context, projectID, datasetID string) (*LedgerRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerRepository: creating client: %w", err)
	}
	return NewLedgerRepositoryWithClient(client, Dataset{ProjectID: projectID, DatasetID: datasetID}), nil
}

// NewLedgerRepositoryWithClient wraps an existing client.
func NewLedgerRepositoryWithClient(client *bigquery.Client, ds Dataset) *LedgerRepository {
	return &LedgerRepository{client: client, ds: ds}
}

// Close closes the BigQuery client connection.
func (r *LedgerRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client exposes the underlying client for migrations.
func (r *LedgerRepository) Client() *bigquery.Client {
	return r.client
}

func (r *LedgerRepository) ListWallets(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error) {
	return ListWalletsWithClient(ctx, r.client, r.ds, userID, bucket)
}

func (r *LedgerRepository) InsertWallet(ctx context.Context, w domain.Wallet) error {
	return InsertWalletWithClient(ctx, r.client, r.ds, w)
}

func (r *LedgerRepository) InsertTransaction(ctx context.Context, h domain.TransactionHeader, items []domain.LineItem) error {
	return InsertTransactionWithClient(ctx, r.client, r.ds, h, items)
}

func (r *LedgerRepository) QueryTransactionsByDateRange(ctx context.Context, userID string, bucket domain.AllocationBucket, start, end civil.Date) ([]*bq.TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, r.ds, userID, bucket, start, end)
}

func (r *LedgerRepository) ListBills(ctx context.Context, userID string) ([]domain.Bill, error) {
	return ListBillsWithClient(ctx, r.client, r.ds, userID)
}

func (r *LedgerRepository) MarkBillPaid(ctx context.Context, userID, billID string, paidAt time.Time) error {
	return MarkBillPaidWithClient(ctx, r.client, r.ds, userID, billID, paidAt)
}

func (r *LedgerRepository) ListBudgetCategories(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]string, error) {
	return ListBudgetCategoriesWithClient(ctx, r.client, r.ds, userID, bucket)
}

func (r *LedgerRepository) GetUserTier(ctx context.Context, userID string) (string, error) {
	return GetUserTierWithClient(ctx, r.client, r.ds, userID)
}

func (r *LedgerRepository) CountAIGeneratedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return CountAIGeneratedSinceWithClient(ctx, r.client, r.ds, userID, since)
}

func (r *LedgerRepository) InsertModelOutput(ctx context.Context, out domain.ModelOutput) error {
	return InsertModelOutputWithClient(ctx, r.client, r.ds, out)
}
