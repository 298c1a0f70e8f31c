package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// UploadReader streams r into bucketName/objectName.
func UploadReader(ctx context.Context, client *storage.Client, bucketName, objectName string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadReader: copying to %s/%s: %w", bucketName, objectName, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadReader: finalizing %s/%s: %w", bucketName, objectName, err)
	}

	return nil
}

// UploadBytes uploads data and returns the object's gs:// URI.
func UploadBytes(ctx context.Context, client *storage.Client, bucketName, objectName string, data []byte, contentType string) (string, error) {
	if err := UploadReader(ctx, client, bucketName, objectName, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	return "gs://" + bucketName + "/" + objectName, nil
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
func UploadFile(ctx context.Context, client *storage.Client, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open %q: %w", filePath, err)
	}
	defer f.Close()

	return UploadReader(ctx, client, bucketName, objectName, f, MIMETypeForName(filePath))
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, client *storage.Client, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}
	return DownloadObject(ctx, client, bucketName, objectPath)
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.jpg" → "file.jpg"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

// ReceiptObjectName returns a fresh object name for a user's receipt image:
// receipts/<user>/<yyyy>/<mm>/<uuid><ext>.
func ReceiptObjectName(userID string, now time.Time, mimeType string) string {
	return fmt.Sprintf("receipts/%s/%04d/%02d/%s%s",
		userID, now.Year(), int(now.Month()), uuid.New().String(), ExtensionForMIME(mimeType))
}

// ExtensionForMIME maps the receipt image types Gemini accepts to a file
// extension. Unknown types get .jpg, matching the extractor's default.
func ExtensionForMIME(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	}
	return ".jpg"
}

// MIMETypeForName guesses an image MIME type from a file name.
func MIMETypeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "image/jpeg"
}
