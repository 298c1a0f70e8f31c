package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/smart-ledger/internal/gcs"
)

// Re-export interface from shared package.
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage through one shared client.
type GCSStorageService struct {
	client *storage.Client
}

var _ StorageService = (*GCSStorageService)(nil)

// NewGCSStorageService creates a storage client using Application Default Credentials.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: creating storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// UploadBytes delegates to UploadBytes with the shared client.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	return UploadBytes(ctx, s.client, bucketName, objectName, data, contentType)
}

// UploadFile delegates to UploadFile with the shared client.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, s.client, bucketName, objectName, filePath)
}

// FetchFromGCS delegates to FetchFromGCS with the shared client.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, s.client, gcsURI)
}

// ExtractFilenameFromGCSURI delegates to ExtractFilenameFromGCSURI.
func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

// ListObjects delegates to ListObjects with the shared client.
func (s *GCSStorageService) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	return ListObjects(ctx, s.client, bucketName, prefix)
}

// MoveObject delegates to MoveObject with the shared client.
func (s *GCSStorageService) MoveObject(ctx context.Context, bucketName, src, dst string) (string, error) {
	return MoveObject(ctx, s.client, bucketName, src, dst)
}
