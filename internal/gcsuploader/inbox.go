package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Object name prefixes used by the receipt inbox.
const (
	InboxPrefix   = "inbox/"
	ClaimedPrefix = "claimed/"
)

// InboxObject identifies a receipt dropped into the inbox as
// inbox/<user>/<file> or inbox/<user>/<allocation bucket>/<file>.
type InboxObject struct {
	Name   string
	UserID string
	Bucket string
}

// ParseInboxObject splits an inbox object name. It returns false for
// names outside the inbox and for "directory" placeholders.
func ParseInboxObject(name string) (InboxObject, bool) {
	if !strings.HasPrefix(name, InboxPrefix) || strings.HasSuffix(name, "/") {
		return InboxObject{}, false
	}
	parts := strings.Split(strings.TrimPrefix(name, InboxPrefix), "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return InboxObject{}, false
		}
		return InboxObject{Name: name, UserID: parts[0]}, true
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return InboxObject{}, false
		}
		return InboxObject{Name: name, UserID: parts[0], Bucket: parts[1]}, true
	}
	return InboxObject{}, false
}

// ClaimedName returns the object name an inbox object is moved to once a
// worker has picked it up.
func ClaimedName(inboxName string) string {
	return ClaimedPrefix + strings.TrimPrefix(inboxName, InboxPrefix)
}

// ListObjects returns the names of all objects under prefix.
func ListObjects(ctx context.Context, client *storage.Client, bucketName, prefix string) ([]string, error) {
	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListObjects: gs://%s/%s: %w", bucketName, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// MoveObject copies src to dst within bucketName and deletes src. The copy
// only succeeds if dst does not exist yet, so two workers cannot both claim
// the same object.
func MoveObject(ctx context.Context, client *storage.Client, bucketName, src, dst string) (string, error) {
	b := client.Bucket(bucketName)
	dstObj := b.Object(dst).If(storage.Conditions{DoesNotExist: true})

	if _, err := dstObj.CopierFrom(b.Object(src)).Run(ctx); err != nil {
		return "", fmt.Errorf("MoveObject: copying %s to %s: %w", src, dst, err)
	}
	if err := b.Object(src).Delete(ctx); err != nil {
		return "", fmt.Errorf("MoveObject: deleting %s: %w", src, err)
	}
	return fmt.Sprintf("gs://%s/%s", bucketName, dst), nil
}

// ContentTypeForObject guesses the image type of an inbox object.
func ContentTypeForObject(name string) string {
	return MIMETypeForName(path.Base(name))
}
