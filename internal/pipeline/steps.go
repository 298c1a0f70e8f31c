package pipeline

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// PipelineStep represents a single step of ingestion.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request Request
	Now     time.Time

	Categories []string
	Wallets    []domain.Wallet

	Candidates []domain.Candidate
	RawOutput  string
	Shape      extraction.ResponseShape
	Fallback   bool

	Normalized []domain.NormalizedCandidate
	Resolved   []domain.ResolvedCandidate
	BillMatch  *BillMatch
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// CheckQuotaStep rejects the request when the user's daily quota for the
// feature is used up.
type CheckQuotaStep struct {
	Quota QuotaChecker
}

func (s *CheckQuotaStep) Execute(ctx context.Context, state *PipelineState) error {
	req := state.Request
	decision := s.Quota.Check(ctx, req.UserID, req.Feature)
	if !decision.Allowed {
		log := logger.FromContext(ctx)
		log.Info().
			Int("used", decision.Used).
			Int("limit", decision.Limit).
			Msg("quota denied")
		return decision.Err(req.Feature)
	}
	return nil
}

// LoadContextStep reads the user's categories and wallets for the bucket.
type LoadContextStep struct {
	Store LedgerStore
}

func (s *LoadContextStep) Execute(ctx context.Context, state *PipelineState) error {
	req := state.Request

	custom, err := s.Store.ListBudgetCategories(ctx, req.UserID, req.Bucket)
	if err != nil {
		// Defaults are enough to extract with.
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("failed to load budget categories")
	}
	state.Categories = extraction.BuildAllowedCategories(custom)

	wallets, err := s.Store.ListWallets(ctx, req.UserID, req.Bucket)
	if err != nil {
		return fmt.Errorf("LoadContextStep: listing wallets: %w", err)
	}
	state.Wallets = wallets
	return nil
}

// ExtractStep calls the extraction model and keeps its raw answer.
type ExtractStep struct {
	Extractor Extractor
	Outputs   ModelOutputStore
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	req := state.Request

	var extractErr error
	if len(req.Image) > 0 {
		res, err := s.Extractor.ExtractFromImage(ctx, req.Image, req.MIMEType, state.Categories)
		state.RawOutput, state.Shape = res.RawOutput, res.Shape
		if err == nil {
			state.Candidates = []domain.Candidate{res.Candidate}
		}
		extractErr = err
	} else {
		res := s.Extractor.ExtractFromText(ctx, req.Text, state.Categories)
		state.Candidates = res.Candidates
		state.RawOutput, state.Shape, state.Fallback = res.RawOutput, res.Shape, res.Fallback
		extractErr = res.Cause
	}

	s.record(ctx, state, extractErr)

	if len(req.Image) > 0 && extractErr != nil {
		return fmt.Errorf("ExtractStep: %w", extractErr)
	}
	return nil
}

// record stores the raw answer. Failing to store it never fails ingestion.
func (s *ExtractStep) record(ctx context.Context, state *PipelineState, extractErr error) {
	if s.Outputs == nil {
		return
	}

	out := domain.ModelOutput{
		ID:        uuid.NewString(),
		UserID:    state.Request.UserID,
		Feature:   state.Request.Feature,
		ModelName: s.Extractor.Model(),
		RawText:   state.RawOutput,
		Shape:     string(state.Shape),
		Fallback:  state.Fallback,
		CreatedAt: state.Now,
	}
	if extractErr != nil {
		out.Error = extractErr.Error()
	}

	if err := s.Outputs.InsertModelOutput(ctx, out); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("failed to store model output")
	}
}

// NormalizeStep fills defaults on every candidate.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Normalized = NormalizeAll(state.Candidates, state.Request.Bucket, civil.DateOf(state.Now))
	return nil
}

// ResolveWalletsStep resolves source and destination for every candidate.
type ResolveWalletsStep struct{}

func (s *ResolveWalletsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	state.Resolved = make([]domain.ResolvedCandidate, 0, len(state.Normalized))
	for i, n := range state.Normalized {
		r := ResolveWallets(state.Wallets, n)
		ev := log.Debug().Int("index", i).Str("type", string(r.Type))
		if r.Source != nil {
			ev = ev.Str("source", r.Source.Name).Bool("source_new", r.Source.IsNew)
		}
		if r.Destination != nil {
			ev = ev.Str("destination", r.Destination.Name).Bool("destination_new", r.Destination.IsNew)
		}
		ev.Msg("wallets resolved")
		state.Resolved = append(state.Resolved, r)
	}
	return nil
}

// MatchBillStep looks for a pending bill the first candidate settles.
type MatchBillStep struct {
	Store LedgerStore
}

func (s *MatchBillStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Normalized) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	bills, err := s.Store.ListBills(ctx, state.Request.UserID)
	if err != nil {
		// No suggestion is a valid outcome.
		log.Warn().Err(err).Msg("failed to list bills, skipping bill match")
		return nil
	}

	state.BillMatch = FindBestMatch(bills, state.Normalized[0], state.Now)
	if state.BillMatch != nil {
		log.Debug().
			Str("bill_id", state.BillMatch.Bill.ID).
			Float64("score", state.BillMatch.Score).
			Msg("bill matched")
	}
	return nil
}
