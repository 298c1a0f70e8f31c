package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes writes data to a storage bucket under the given object name
	// and returns the object's gs:// URI.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)

	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string

	// ListObjects returns the names of all objects under prefix.
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)

	// MoveObject renames an object within a bucket and returns the new URI.
	MoveObject(ctx context.Context, bucketName, src, dst string) (string, error)
}
