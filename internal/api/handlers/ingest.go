package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/gcsuploader"
	"github.com/dvloznov/smart-ledger/internal/jobs"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
)

// maxImageBytes bounds uploaded receipt images.
const maxImageBytes = 10 << 20

// ReceiptUploader stores receipt images.
type ReceiptUploader interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)
}

// IngestHandler handles the ingestion endpoints.
type IngestHandler struct {
	ingest    Ingester
	uploader  ReceiptUploader
	publisher jobs.Publisher
	bucket    string
	now       func() time.Time
}

// NewIngestHandler creates an ingestion handler. When uploader, publisher
// or bucket is missing, receipts are always processed synchronously.
func NewIngestHandler(ingest Ingester, uploader ReceiptUploader, publisher jobs.Publisher, bucket string) *IngestHandler {
	return &IngestHandler{
		ingest:    ingest,
		uploader:  uploader,
		publisher: publisher,
		bucket:    bucket,
		now:       time.Now,
	}
}

type textRequest struct {
	Text     string `json:"text"`
	LinkBill bool   `json:"link_bill"`
}

func (h *IngestHandler) textPipelineRequest(r *http.Request, text string) pipeline.Request {
	return pipeline.Request{
		UserID:  middleware.UserIDFromContext(r.Context()),
		Bucket:  middleware.BucketFromContext(r.Context()),
		Feature: domain.FeatureVoice,
		Text:    text,
	}
}

// PrepareText handles POST /api/ingest/text/prepare. It returns the draft
// without writing anything.
func (h *IngestHandler) PrepareText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.ingest.Prepare(r.Context(), h.textPipelineRequest(r, req.Text))
	if err != nil {
		writePipelineError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, draft)
}

// IngestText handles POST /api/ingest/text. It prepares and commits in one call.
func (h *IngestHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, res, err := h.ingest.Ingest(r.Context(), h.textPipelineRequest(r, req.Text), req.LinkBill)
	if err != nil {
		writePipelineError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, IngestResponse{Draft: draft, Result: res})
}

type commitRequest struct {
	Draft    *pipeline.Draft `json:"draft"`
	LinkBill bool            `json:"link_bill"`
}

// Commit handles POST /api/ingest/commit with a draft returned by a
// prepare call, possibly edited by the user.
func (h *IngestHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Draft == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	draft := req.Draft
	bucket := middleware.BucketFromContext(ctx)
	if draft.Bucket != "" && draft.Bucket != bucket {
		middleware.WriteError(w, http.StatusBadRequest, "Draft belongs to another mode")
		return
	}
	draft.UserID = middleware.UserIDFromContext(ctx)
	draft.Bucket = bucket
	if draft.Feature != domain.FeatureScan {
		draft.Feature = domain.FeatureVoice
	}

	res, err := h.ingest.Commit(ctx, draft, req.LinkBill)
	if err != nil {
		writePipelineError(w, logger.FromContext(ctx), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, IngestResponse{Draft: draft, Result: res})
}

// UploadReceipt handles POST /api/ingest/receipt. The body is the raw image.
// By default the image is stored and a scan job is enqueued (202); with
// ?mode=sync, or when no storage is configured, the receipt is processed
// inline.
func (h *IngestHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	contentType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Body must be an image")
		return
	}

	img, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}
	if len(img) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Image is required")
		return
	}

	linkBill, _ := strconv.ParseBool(r.URL.Query().Get("link_bill"))
	userID := middleware.UserIDFromContext(ctx)
	bucket := middleware.BucketFromContext(ctx)

	if r.URL.Query().Get("mode") == "sync" || h.uploader == nil || h.publisher == nil || h.bucket == "" {
		draft, res, err := h.ingest.Ingest(ctx, pipeline.Request{
			UserID:   userID,
			Bucket:   bucket,
			Feature:  domain.FeatureScan,
			Image:    img,
			MIMEType: contentType,
		}, linkBill)
		if err != nil {
			writePipelineError(w, log, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, IngestResponse{Draft: draft, Result: res})
		return
	}

	objectName := gcsuploader.ReceiptObjectName(userID, h.now(), contentType)
	gcsURI, err := h.uploader.UploadBytes(ctx, h.bucket, objectName, img, contentType)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload receipt")
		return
	}

	job := &jobs.ScanReceiptJob{
		UserID:   userID,
		Bucket:   string(bucket),
		GCSURI:   gcsURI,
		MIMEType: contentType,
		LinkBill: linkBill,
	}
	if err := h.publisher.PublishScanReceipt(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue scan job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scan job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("gcs_uri", gcsURI).Msg("Scan job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": gcsURI,
		"status":  string(job.Status),
	})
}
