package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// ErrEmptyInput is returned when a request carries neither text nor image.
var ErrEmptyInput = errors.New("empty input")

// Request is one user submission. Bucket is the caller's active mode.
type Request struct {
	UserID   string
	Bucket   domain.AllocationBucket
	Feature  domain.FeatureClass
	Text     string
	Image    []byte
	MIMEType string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(r.Text) == "" && len(r.Image) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// Draft is a fully resolved batch awaiting confirmation.
type Draft struct {
	UserID     string                     `json:"user_id"`
	Bucket     domain.AllocationBucket    `json:"bucket"`
	Feature    domain.FeatureClass        `json:"feature"`
	Candidates []domain.ResolvedCandidate `json:"candidates"`
	BillMatch  *BillMatch                 `json:"bill_match,omitempty"`
	// Fallback is set when extraction failed and Candidates holds the
	// placeholder built from the input text.
	Fallback bool `json:"fallback"`
}

// Ingestor runs the ingestion pipeline.
type Ingestor struct {
	quota     QuotaChecker
	extractor Extractor
	store     LedgerStore
	outputs   ModelOutputStore
	locker    Locker
	mirror    Mirror
	now       func() time.Time
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithModelOutputs stores every raw extraction answer.
func WithModelOutputs(outputs ModelOutputStore) IngestorOption {
	return func(in *Ingestor) { in.outputs = outputs }
}

// WithLocker serializes commits per user and bucket.
func WithLocker(l Locker) IngestorOption {
	return func(in *Ingestor) { in.locker = l }
}

// WithMirror forwards committed headers to an external mirror.
func WithMirror(m Mirror) IngestorOption {
	return func(in *Ingestor) { in.mirror = m }
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) IngestorOption {
	return func(in *Ingestor) { in.now = now }
}

// NewIngestor wires the pipeline's collaborators.
func NewIngestor(q QuotaChecker, ex Extractor, store LedgerStore, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		quota:     q,
		extractor: ex,
		store:     store,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Prepare runs quota, extraction, normalization, wallet resolution and
// bill matching, and returns the batch without writing it.
func (in *Ingestor) Prepare(ctx context.Context, req Request) (*Draft, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("Prepare: %w", err)
	}
	if req.Feature == "" {
		req.Feature = domain.FeatureVoice
		if len(req.Image) > 0 {
			req.Feature = domain.FeatureScan
		}
	}
	if req.Bucket == "" {
		req.Bucket = domain.BucketPersonal
	}

	ctx = logger.WithUser(ctx, req.UserID, string(req.Feature), string(req.Bucket))

	state := &PipelineState{Request: req, Now: in.now()}
	p := NewPipeline(
		&CheckQuotaStep{Quota: in.quota},
		&LoadContextStep{Store: in.store},
		&ExtractStep{Extractor: in.extractor, Outputs: in.outputs},
		&NormalizeStep{},
		&ResolveWalletsStep{},
		&MatchBillStep{Store: in.store},
	)
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Prepare: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("candidates", len(state.Resolved)).
		Bool("fallback", state.Fallback).
		Bool("bill_matched", state.BillMatch != nil).
		Msg("draft prepared")

	return &Draft{
		UserID:     req.UserID,
		Bucket:     req.Bucket,
		Feature:    req.Feature,
		Candidates: state.Resolved,
		BillMatch:  state.BillMatch,
		Fallback:   state.Fallback,
	}, nil
}

// Commit writes a draft. When linkBill is set and the draft carries a bill
// match, the bill is marked paid once the first candidate is written.
// Partial failures are reported in the result, not as an error.
func (in *Ingestor) Commit(ctx context.Context, draft *Draft, linkBill bool) (*CommitResult, error) {
	if draft == nil || len(draft.Candidates) == 0 {
		return &CommitResult{}, nil
	}

	bucket := draft.Bucket
	if bucket == "" {
		bucket = domain.BucketPersonal
	}

	ctx = logger.WithUser(ctx, draft.UserID, string(draft.Feature), string(bucket))

	if in.locker != nil {
		release, err := in.locker.Acquire(ctx, CommitLockKey(draft.UserID, bucket))
		if err != nil {
			return nil, fmt.Errorf("Commit: acquiring lock: %w", err)
		}
		defer release()
	}

	// Drafts come back from the client and may have been edited.
	today := civil.DateOf(in.now())
	candidates := make([]domain.ResolvedCandidate, 0, len(draft.Candidates))
	for _, c := range draft.Candidates {
		candidates = append(candidates, Sanitize(c, bucket, today))
	}

	req := CommitRequest{
		UserID:     draft.UserID,
		Bucket:     bucket,
		Source:     draft.Feature,
		Candidates: candidates,
	}
	if linkBill && draft.BillMatch != nil {
		bill := draft.BillMatch.Bill
		req.Bill = &bill
	}

	res, err := NewWriter(in.store, in.now).Commit(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	if in.mirror != nil && len(res.Headers) > 0 {
		if err := in.mirror.MirrorTransactions(ctx, res.Headers); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("failed to mirror committed transactions")
		}
	}

	return res, nil
}

// Ingest prepares and commits in one call.
func (in *Ingestor) Ingest(ctx context.Context, req Request, linkBill bool) (*Draft, *CommitResult, error) {
	draft, err := in.Prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	res, err := in.Commit(ctx, draft, linkBill)
	if err != nil {
		return draft, nil, err
	}
	return draft, res, nil
}

// CommitLockKey is the lock key for commits of one user in one bucket.
func CommitLockKey(userID string, bucket domain.AllocationBucket) string {
	return "commit:" + userID + ":" + string(bucket)
}
