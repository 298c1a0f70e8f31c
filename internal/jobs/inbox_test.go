package jobs

import (
	"context"
	"errors"
	"testing"
)

type MockInboxStorage struct {
	ListObjectsFunc func(ctx context.Context, bucketName, prefix string) ([]string, error)
	MoveObjectFunc  func(ctx context.Context, bucketName, src, dst string) (string, error)
}

func (m *MockInboxStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, bucketName, prefix)
	}
	return nil, nil
}

func (m *MockInboxStorage) MoveObject(ctx context.Context, bucketName, src, dst string) (string, error) {
	if m.MoveObjectFunc != nil {
		return m.MoveObjectFunc(ctx, bucketName, src, dst)
	}
	return "gs://" + bucketName + "/" + dst, nil
}

type MockPublisher struct {
	PublishScanReceiptFunc func(ctx context.Context, job *ScanReceiptJob) error
	published              []*ScanReceiptJob
}

func (m *MockPublisher) PublishScanReceipt(ctx context.Context, job *ScanReceiptJob) error {
	if m.PublishScanReceiptFunc != nil {
		if err := m.PublishScanReceiptFunc(ctx, job); err != nil {
			return err
		}
	}
	m.published = append(m.published, job)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func TestInboxPoller_PollOnce(t *testing.T) {
	storage := &MockInboxStorage{
		ListObjectsFunc: func(ctx context.Context, bucketName, prefix string) ([]string, error) {
			if prefix != "inbox/" {
				t.Errorf("prefix = %q, want inbox/", prefix)
			}
			return []string{
				"inbox/u1/receipt.png",
				"inbox/u2/BUSINESS/invoice.jpg",
				"inbox/u3/",
				"inbox/stray.jpg",
				"inbox/u4/taken.jpg",
			}, nil
		},
		MoveObjectFunc: func(ctx context.Context, bucketName, src, dst string) (string, error) {
			if src == "inbox/u4/taken.jpg" {
				return "", errors.New("precondition failed")
			}
			return "gs://" + bucketName + "/" + dst, nil
		},
	}
	pub := &MockPublisher{}

	n, err := NewInboxPoller(storage, pub, "receipts-bkt", true).PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if n != 2 || len(pub.published) != 2 {
		t.Fatalf("published = %d (%d jobs), want 2", n, len(pub.published))
	}

	first := pub.published[0]
	if first.UserID != "u1" || first.Bucket != "" || first.MIMEType != "image/png" {
		t.Errorf("first job = %+v", first)
	}
	if first.GCSURI != "gs://receipts-bkt/claimed/u1/receipt.png" {
		t.Errorf("GCSURI = %q", first.GCSURI)
	}
	if !first.LinkBill {
		t.Error("LinkBill should be propagated")
	}

	second := pub.published[1]
	if second.UserID != "u2" || second.Bucket != "BUSINESS" || second.MIMEType != "image/jpeg" {
		t.Errorf("second job = %+v", second)
	}
}

func TestInboxPoller_Errors(t *testing.T) {
	listErr := &MockInboxStorage{
		ListObjectsFunc: func(ctx context.Context, bucketName, prefix string) ([]string, error) {
			return nil, errors.New("unavailable")
		},
	}
	if _, err := NewInboxPoller(listErr, &MockPublisher{}, "b", false).PollOnce(context.Background()); err == nil {
		t.Error("expected list error")
	}

	storage := &MockInboxStorage{
		ListObjectsFunc: func(ctx context.Context, bucketName, prefix string) ([]string, error) {
			return []string{"inbox/u1/a.jpg", "inbox/u1/b.jpg"}, nil
		},
	}
	pub := &MockPublisher{
		PublishScanReceiptFunc: func(ctx context.Context, job *ScanReceiptJob) error {
			if job.GCSURI == "gs://b/claimed/u1/a.jpg" {
				return errors.New("queue is closed")
			}
			return nil
		},
	}
	n, err := NewInboxPoller(storage, pub, "b", false).PollOnce(context.Background())
	if err == nil {
		t.Error("expected publish error to be reported")
	}
	if n != 1 {
		t.Errorf("published = %d, want 1", n)
	}
}
