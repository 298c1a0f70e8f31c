package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/smart-ledger/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.ScanReceiptJob{JobID: "j1", UserID: "u1", CommittedIDs: []string{"a"}}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	job.CommittedIDs[0] = "mutated"

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.CommittedIDs[0] != "a" {
		t.Errorf("stored job shares memory with caller: %v", got.CommittedIDs)
	}

	if err := s.SaveJob(ctx, &jobs.ScanReceiptJob{}); err == nil {
		t.Error("expected error for empty job id")
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.ScanReceiptJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
		{JobID: "d", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(3 * time.Minute)},
	} {
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"by user newest first", jobs.JobFilter{UserID: "u1"}, []string{"d", "b", "a"}},
		{"by status", jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted}, []string{"d", "a"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"d", "c"}},
		{"offset", jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("job[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_ = s.SaveJob(ctx, &jobs.ScanReceiptJob{JobID: "j1", Status: jobs.JobStatusPending})

	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}

	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
}
