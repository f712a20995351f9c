// Package extraction turns captured photos, documents, dictation and pasted
// text into sales line items using a generative model.
package extraction

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedMedia is returned when a backend cannot read a media type
	ErrUnsupportedMedia = errors.New("unsupported media")
	// ErrEmptyInput is returned for empty files or blank text
	ErrEmptyInput = errors.New("empty input")
)

// LineItem is one product line read from a capture
type LineItem struct {
	SKU           string          `json:"sku"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes,omitempty"`
	LowConfidence bool            `json:"low_confidence"`
}

// Extractor defines the interface for line item extraction
type Extractor interface {
	// ExtractImage reads line items from a photo or document (JPEG, PNG, GIF, HEIC, PDF)
	ExtractImage(ctx context.Context, data []byte, contentType string) ([]LineItem, error)
	// ExtractAudio reads line items from a dictation recording
	ExtractAudio(ctx context.Context, data []byte, contentType string) ([]LineItem, error)
	// ExtractText reads line items from pasted text or a dictation transcript
	ExtractText(ctx context.Context, text string) ([]LineItem, error)
	// Close releases backend resources
	Close() error
}
