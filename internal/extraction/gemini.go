package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

// ErrImageExtraction is returned when a receipt photo cannot be turned
// into a candidate.
var ErrImageExtraction = errors.New("image extraction failed")

var errNoCandidates = errors.New("model returned no transactions")

// ContentGenerator is the subset of *genai.Models used for extraction.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// TextResult is the outcome of a free-text extraction. Candidates is never
// empty: on any failure it holds the single fallback candidate.
type TextResult struct {
	Candidates []domain.Candidate
	RawOutput  string
	Shape      ResponseShape
	Fallback   bool
	// Cause is why the fallback was used; nil otherwise.
	Cause error
}

// ImageResult is the outcome of a receipt extraction.
type ImageResult struct {
	Candidate domain.Candidate
	RawOutput string
	Shape     ResponseShape
}

// GeminiExtractor turns text and receipt photos into candidates using a
// Gemini model with deterministic decoding.
type GeminiExtractor struct {
	gen   ContentGenerator
	model string
	now   func() time.Time
}

// Option configures a GeminiExtractor.
type Option func(*GeminiExtractor)

// WithClock overrides the clock used for "today" in prompts and fallbacks.
func WithClock(now func() time.Time) Option {
	return func(e *GeminiExtractor) { e.now = now }
}

// NewGeminiExtractor wraps an existing content generator.
func NewGeminiExtractor(gen ContentGenerator, model string, opts ...Option) *GeminiExtractor {
	e := &GeminiExtractor{gen: gen, model: model, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewGeminiExtractorFromEnv creates a genai client from the standard
// GOOGLE_API_KEY / Vertex environment and wraps it.
func NewGeminiExtractorFromEnv(ctx context.Context, model string, opts ...Option) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractorFromEnv: create genai client: %w", err)
	}
	return NewGeminiExtractor(client.Models, model, opts...), nil
}

// Model returns the model name sent with every request.
func (e *GeminiExtractor) Model() string {
	return e.model
}

// ExtractFromText returns every transaction the model finds in text. It
// never fails: any model, transport or decoding problem, including an
// empty answer, yields the single fallback candidate.
func (e *GeminiExtractor) ExtractFromText(ctx context.Context, text string, categories []string) TextResult {
	log := logger.FromContext(ctx)
	today := e.today()

	prompt := BuildTextPrompt(today, text, categories)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	raw, err := e.generate(ctx, contents)
	if err != nil {
		log.Warn().Err(err).Msg("text extraction failed, using fallback")
		return fallbackResult(text, today, raw, err)
	}

	records, shape, err := decodeResponse(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw_output", raw).Msg("text extraction returned undecodable output, using fallback")
		return fallbackResult(text, today, raw, err)
	}

	candidates := make([]domain.Candidate, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, candidateFromRecord(r))
	}
	if len(candidates) == 0 {
		log.Warn().Str("shape", string(shape)).Msg("text extraction returned no transactions, using fallback")
		res := fallbackResult(text, today, raw, errNoCandidates)
		res.Shape = shape
		return res
	}

	log.Debug().
		Int("candidates", len(candidates)).
		Str("shape", string(shape)).
		Msg("text extraction completed")

	return TextResult{Candidates: candidates, RawOutput: raw, Shape: shape}
}

// ExtractFromImage reads one transaction from a receipt photo. When the
// model answers with a list, the first element is used.
func (e *GeminiExtractor) ExtractFromImage(ctx context.Context, image []byte, mimeType string, categories []string) (ImageResult, error) {
	if len(image) == 0 {
		return ImageResult{}, fmt.Errorf("ExtractFromImage: %w: empty image", ErrImageExtraction)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	prompt := BuildImagePrompt(e.today(), categories)
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	raw, err := e.generate(ctx, contents)
	if err != nil {
		return ImageResult{RawOutput: raw}, fmt.Errorf("ExtractFromImage: %w: %w", ErrImageExtraction, err)
	}

	records, shape, err := decodeResponse(raw)
	if err != nil {
		return ImageResult{RawOutput: raw}, fmt.Errorf("ExtractFromImage: %w: %w", ErrImageExtraction, err)
	}
	if len(records) == 0 {
		return ImageResult{RawOutput: raw, Shape: shape}, fmt.Errorf("ExtractFromImage: %w: %w", ErrImageExtraction, errNoCandidates)
	}

	return ImageResult{
		Candidate: candidateFromRecord(records[0]),
		RawOutput: raw,
		Shape:     shape,
	}, nil
}

func (e *GeminiExtractor) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := e.gen.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate content: nil response")
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return raw, nil
}

func (e *GeminiExtractor) today() civil.Date {
	return civil.DateOf(e.now())
}

// FallbackCandidate is recorded when text extraction cannot produce
// anything usable: the whole input becomes the merchant with zero amount.
func FallbackCandidate(text string, today civil.Date) domain.Candidate {
	zero := decimal.Zero
	return domain.Candidate{
		Merchant:    text,
		TotalAmount: &zero,
		Date:        today.String(),
		Category:    domain.CategoryOther,
		Type:        string(domain.TypeExpense),
	}
}

func fallbackResult(text string, today civil.Date, raw string, cause error) TextResult {
	return TextResult{
		Candidates: []domain.Candidate{FallbackCandidate(text, today)},
		RawOutput:  raw,
		Fallback:   true,
		Cause:      cause,
	}
}
