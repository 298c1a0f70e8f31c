package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionClient implements PageStore on top of the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

var _ PageStore = (*NotionClient)(nil)

// NewNotionClient creates a client authenticated with an integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a page in the database.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (notionapi.ObjectID, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("CreatePage: %w", err)
	}
	return page.ID, nil
}

// HasTransaction queries the database for a page whose Transaction ID
// property equals transactionID.
func (n *NotionClient) HasTransaction(ctx context.Context, databaseID, transactionID string) (bool, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), transactionQuery(transactionID))
	if err != nil {
		return false, fmt.Errorf("HasTransaction: %w", err)
	}
	return containsTransaction(resp.Results, transactionID), nil
}

// transactionQuery selects at most one page by its Transaction ID.
func transactionQuery(transactionID string) *notionapi.DatabaseQueryRequest {
	return &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: PropTransactionID,
			RichText: &notionapi.TextFilterCondition{Equals: transactionID},
		},
		PageSize: 1,
	}
}

// containsTransaction double-checks the filter result, since rich text
// equality in Notion ignores trailing annotations.
func containsTransaction(pages []notionapi.Page, transactionID string) bool {
	for _, page := range pages {
		if extractTransactionID(page) == transactionID {
			return true
		}
	}
	return false
}
