package ai

import "context"

// Extraction holds the structured fields pulled out of one raw search result.
// A nil field means the model could not find a value; downstream code must
// treat nil as unknown, never as zero.
type Extraction struct {
	Company     *string
	AnnualPay   *float64
	WeeklyHours *float64
	Remote      *bool
}

// Extractor turns unstructured posting text into an Extraction.
type Extractor interface {
	Extract(ctx context.Context, title, text string) (*Extraction, error)
}
