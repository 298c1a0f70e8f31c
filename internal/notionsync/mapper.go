package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/smart-ledger/internal/bigquery"
	"github.com/dvloznov/smart-ledger/internal/domain"
)

// Property names of the mirror database.
const (
	PropMerchant      = "Merchant"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropBucket        = "Bucket"
	PropWallet        = "Wallet"
	PropDestination   = "Destination Wallet"
	PropSource        = "Source"
	PropImportedAt    = "Imported At"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &d},
	}
}

func civilToTime(d civil.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// HeaderToNotionProperties converts a committed transaction header to the
// properties of one mirror page.
func HeaderToNotionProperties(h domain.TransactionHeader) notionapi.Properties {
	amount, _ := h.TotalAmount.Float64()

	props := notionapi.Properties{
		PropMerchant: notionapi.TitleProperty{
			Title: richText(h.Merchant),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(h.ID),
		},
		PropDate:   dateProperty(civilToTime(h.Date)),
		PropAmount: notionapi.NumberProperty{Number: amount},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(h.Type)},
		},
		PropBucket: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(h.Bucket)},
		},
	}

	if h.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: h.Category},
		}
	}
	if h.WalletID != "" {
		props[PropWallet] = notionapi.RichTextProperty{RichText: richText(h.WalletID)}
	}
	if h.DestinationWalletID != "" {
		props[PropDestination] = notionapi.RichTextProperty{RichText: richText(h.DestinationWalletID)}
	}
	if h.AISource != "" {
		props[PropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(h.AISource)},
		}
	}
	if !h.CreatedAt.IsZero() {
		props[PropImportedAt] = dateProperty(h.CreatedAt)
	}

	return props
}

// RowToHeader converts a stored transaction row back into a header.
func RowToHeader(row *bq.TransactionRow) domain.TransactionHeader {
	amount := decimal.Zero
	if row.TotalAmount != nil {
		if d, err := decimal.NewFromString(row.TotalAmount.FloatString(9)); err == nil {
			amount = d
		}
	}
	return domain.TransactionHeader{
		ID:                  row.TransactionID,
		UserID:              row.UserID,
		Merchant:            row.Merchant,
		TotalAmount:         amount,
		Type:                domain.TransactionType(row.Type),
		Category:            row.Category,
		Date:                row.TransactionDate,
		WalletID:            row.WalletID.StringVal,
		DestinationWalletID: row.DestinationWalletID.StringVal,
		Bucket:              domain.AllocationBucket(row.AllocationBucket),
		IsAIGenerated:       row.IsAIGenerated,
		AISource:            domain.FeatureClass(row.AISource.StringVal),
		CreatedAt:           row.CreatedTS,
	}
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
