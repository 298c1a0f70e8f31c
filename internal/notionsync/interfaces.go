package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// PageStore is the part of a Notion database the mirror writes to.
type PageStore interface {
	// CreatePage adds a page with the given properties and returns its id.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (notionapi.ObjectID, error)

	// HasTransaction reports whether a page for transactionID exists.
	HasTransaction(ctx context.Context, databaseID, transactionID string) (bool, error)
}
