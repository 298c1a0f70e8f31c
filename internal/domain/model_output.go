package domain

import "time"

// ModelOutput is the raw answer of the extraction model kept for audits.
type ModelOutput struct {
	ID        string
	UserID    string
	Feature   FeatureClass
	ModelName string
	RawText   string
	Shape     string
	Fallback  bool
	// Error is the extraction failure, empty on success.
	Error     string
	CreatedAt time.Time
}
