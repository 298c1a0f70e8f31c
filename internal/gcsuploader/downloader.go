package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// maxObjectSize bounds receipt downloads; phone photos are far below it.
const maxObjectSize = 20 << 20

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// DownloadObject reads a whole object.
func DownloadObject(ctx context.Context, client *storage.Client, bucketName, objectName string) ([]byte, error) {
	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("DownloadObject: opening %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("DownloadObject: reading %s/%s: %w", bucketName, objectName, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("DownloadObject: %s/%s exceeds %d bytes", bucketName, objectName, maxObjectSize)
	}

	return data, nil
}
