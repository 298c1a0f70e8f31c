package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/smart-ledger/internal/gcsuploader"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// InboxStorage is the part of Cloud Storage the inbox poller needs.
type InboxStorage interface {
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
	MoveObject(ctx context.Context, bucketName, src, dst string) (string, error)
}

// InboxPoller turns receipts dropped under inbox/ into scan jobs.
type InboxPoller struct {
	storage   InboxStorage
	publisher Publisher
	bucket    string
	linkBill  bool
	now       func() time.Time
}

// NewInboxPoller creates a poller for bucketName. linkBill is applied to
// every job it publishes.
func NewInboxPoller(storage InboxStorage, publisher Publisher, bucketName string, linkBill bool) *InboxPoller {
	return &InboxPoller{
		storage:   storage,
		publisher: publisher,
		bucket:    bucketName,
		linkBill:  linkBill,
		now:       time.Now,
	}
}

// PollOnce claims every inbox object and publishes one job per claimed
// object. Objects another worker claimed first are skipped.
func (p *InboxPoller) PollOnce(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	names, err := p.storage.ListObjects(ctx, p.bucket, gcsuploader.InboxPrefix)
	if err != nil {
		return 0, fmt.Errorf("PollOnce: %w", err)
	}

	published := 0
	var errs []error
	for _, name := range names {
		obj, ok := gcsuploader.ParseInboxObject(name)
		if !ok {
			log.Debug().Str("object", name).Msg("Ignoring object outside inbox layout")
			continue
		}

		uri, err := p.storage.MoveObject(ctx, p.bucket, name, gcsuploader.ClaimedName(name))
		if err != nil {
			log.Warn().Err(err).Str("object", name).Msg("Could not claim inbox object")
			continue
		}

		job := &ScanReceiptJob{
			UserID:    obj.UserID,
			Bucket:    obj.Bucket,
			GCSURI:    uri,
			MIMEType:  gcsuploader.ContentTypeForObject(name),
			LinkBill:  p.linkBill,
			CreatedAt: p.now(),
		}
		if err := p.publisher.PublishScanReceipt(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("PollOnce: publishing %s: %w", uri, err))
			continue
		}
		published++

		log.Info().
			Str("job_id", job.JobID).
			Str("user_id", job.UserID).
			Str("gcs_uri", uri).
			Msg("Queued inbox receipt")
	}

	return published, errors.Join(errs...)
}

// Run polls every interval until ctx is cancelled.
func (p *InboxPoller) Run(ctx context.Context, interval time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Inbox poll failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
