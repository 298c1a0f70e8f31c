package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

type MockFetcher struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockFetcher) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte("jpeg"), nil
}

type MockIngester struct {
	PrepareFunc func(ctx context.Context, req pipeline.Request) (*pipeline.Draft, error)
	CommitFunc  func(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error)

	lastRequest  pipeline.Request
	commitCalled bool
}

func (m *MockIngester) Prepare(ctx context.Context, req pipeline.Request) (*pipeline.Draft, error) {
	m.lastRequest = req
	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, req)
	}
	return &pipeline.Draft{UserID: req.UserID, Bucket: req.Bucket, Feature: req.Feature}, nil
}

func (m *MockIngester) Commit(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error) {
	m.commitCalled = true
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, draft, linkBill)
	}
	return &pipeline.CommitResult{CommittedIDs: []string{"tx-1"}}, nil
}

func newScanJob() *ScanReceiptJob {
	return &ScanReceiptJob{
		JobID:    "job-1",
		UserID:   "u1",
		Bucket:   "organization",
		GCSURI:   "gs://receipts/u1/a.jpg",
		MIMEType: "image/png",
		LinkBill: true,
	}
}

func TestScanHandler_Success(t *testing.T) {
	ingest := &MockIngester{
		CommitFunc: func(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error) {
			if !linkBill {
				t.Error("linkBill not forwarded")
			}
			return &pipeline.CommitResult{CommittedIDs: []string{"tx-1"}, BillSettled: true}, nil
		},
	}
	job := newScanJob()

	err := NewScanHandler(&MockFetcher{}, ingest)(context.Background(), job)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if ingest.lastRequest.Feature != domain.FeatureScan {
		t.Errorf("Feature = %s, want SCAN", ingest.lastRequest.Feature)
	}
	if ingest.lastRequest.Bucket != domain.BucketBusiness {
		t.Errorf("Bucket = %s, want BUSINESS", ingest.lastRequest.Bucket)
	}
	if ingest.lastRequest.MIMEType != "image/png" || string(ingest.lastRequest.Image) != "jpeg" {
		t.Errorf("image not forwarded: %+v", ingest.lastRequest)
	}
	if len(job.CommittedIDs) != 1 || !job.BillSettled {
		t.Errorf("job outcome = %+v", job)
	}
}

func TestScanHandler_Errors(t *testing.T) {
	fetchErr := errors.New("network")

	tests := []struct {
		name          string
		fetchErr      error
		prepareErr    error
		commitErr     error
		commitResult  *pipeline.CommitResult
		wantPermanent bool
		wantCommit    bool
	}{
		{name: "fetch failure is retryable", fetchErr: fetchErr},
		{name: "quota denial is permanent", prepareErr: &quota.DeniedError{Feature: domain.FeatureScan, Message: "habis"}, wantPermanent: true},
		{name: "unreadable image is permanent", prepareErr: extraction.ErrImageExtraction, wantPermanent: true},
		{name: "storage failure before commit is retryable", prepareErr: errors.New("bigquery unavailable")},
		{name: "commit error is permanent", commitErr: errors.New("lock"), wantPermanent: true, wantCommit: true},
		{
			name:          "nothing committed is permanent",
			commitResult:  &pipeline.CommitResult{Errors: []*pipeline.CommitError{{Index: 0, Merchant: "x", Err: errors.New("insert")}}},
			wantPermanent: true,
			wantCommit:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{
				FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
					if tt.fetchErr != nil {
						return nil, tt.fetchErr
					}
					return []byte("img"), nil
				},
			}
			ingest := &MockIngester{
				PrepareFunc: func(ctx context.Context, req pipeline.Request) (*pipeline.Draft, error) {
					if tt.prepareErr != nil {
						return nil, tt.prepareErr
					}
					return &pipeline.Draft{UserID: req.UserID}, nil
				},
				CommitFunc: func(ctx context.Context, draft *pipeline.Draft, linkBill bool) (*pipeline.CommitResult, error) {
					if tt.commitErr != nil {
						return nil, tt.commitErr
					}
					return tt.commitResult, nil
				},
			}
			job := newScanJob()

			err := NewScanHandler(fetcher, ingest)(context.Background(), job)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsPermanent(err); got != tt.wantPermanent {
				t.Errorf("IsPermanent() = %v, want %v (err: %v)", got, tt.wantPermanent, err)
			}
			if ingest.commitCalled != tt.wantCommit {
				t.Errorf("commit called = %v, want %v", ingest.commitCalled, tt.wantCommit)
			}
		})
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	base := errors.New("boom")
	err := Permanent(base)
	if !errors.Is(err, base) {
		t.Error("Permanent should unwrap to the original error")
	}
	if IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
}
