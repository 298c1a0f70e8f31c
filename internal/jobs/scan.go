package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// ImageFetcher reads a stored receipt image.
type ImageFetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// Ingester is the two-phase ingestion API the scan handler drives.
type Ingester interface {
	Prepare(ctx context.Context, req pipeline.Request) (*pipeline.Draft, error)
	Commit(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error)
}

// NewScanHandler returns a JobHandler that fetches the receipt, runs the
// SCAN pipeline and records the commit outcome on the job.
// Once Commit has been called the job is never retried.
func NewScanHandler(fetcher ImageFetcher, ingest Ingester) JobHandler {
	return func(ctx context.Context, job Job) error {
		scan, ok := job.(*ScanReceiptJob)
		if !ok {
			return Permanent(fmt.Errorf("ScanHandler: unsupported job type %q", job.GetType()))
		}

		log := logger.FromContext(ctx).With().Str("job_id", scan.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		img, err := fetcher.FetchFromGCS(ctx, scan.GCSURI)
		if err != nil {
			return fmt.Errorf("ScanHandler: fetching %s: %w", scan.GCSURI, err)
		}

		draft, err := ingest.Prepare(ctx, pipeline.Request{
			UserID:   scan.UserID,
			Bucket:   domain.ParseAllocationBucket(scan.Bucket),
			Feature:  domain.FeatureScan,
			Image:    img,
			MIMEType: scan.MIMEType,
		})
		if err != nil {
			if errors.Is(err, quota.ErrQuotaDenied) ||
				errors.Is(err, extraction.ErrImageExtraction) ||
				errors.Is(err, pipeline.ErrEmptyInput) {
				return Permanent(fmt.Errorf("ScanHandler: %w", err))
			}
			return fmt.Errorf("ScanHandler: %w", err)
		}

		res, err := ingest.Commit(ctx, draft, scan.LinkBill)
		if err != nil {
			return Permanent(fmt.Errorf("ScanHandler: %w", err))
		}

		scan.CommittedIDs = res.CommittedIDs
		scan.CommitErrors = nil
		for _, ce := range res.Errors {
			scan.CommitErrors = append(scan.CommitErrors, ce.Error())
		}
		scan.BillSettled = res.BillSettled

		log.Info().
			Int("committed", len(res.CommittedIDs)).
			Int("failed", len(res.Errors)).
			Msg("receipt scan committed")

		if len(res.CommittedIDs) == 0 && len(res.Errors) > 0 {
			return Permanent(fmt.Errorf("ScanHandler: nothing committed: %w", res.Errors[0]))
		}
		return nil
	}
}
