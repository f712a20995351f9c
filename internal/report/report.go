package report

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to items that arrive without a currency code
const DefaultCurrency = "AED"

// Source identifies the capture method that contributed items to a report
type Source string

const (
	SourceManual Source = "manual"
	SourceOCR    Source = "ocr"
	SourceSpeech Source = "speech"
	SourceUpload Source = "upload"
)

// Valid reports whether s is one of the known capture sources
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceOCR, SourceSpeech, SourceUpload:
		return true
	}
	return false
}

// SalesItem is one product line within a report
type SalesItem struct {
	SKU           string          `json:"sku"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes,omitempty"`
	LowConfidence bool            `json:"low_confidence,omitempty"` // set by AI extraction, cleared on manual edit
}

// LineTotal returns quantity * unit price
func (i SalesItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals holds the derived money fields of a report
type Totals struct {
	Gross     decimal.Decimal `json:"gross"`
	Discounts decimal.Decimal `json:"discounts"`
	Net       decimal.Decimal `json:"net"`
}

// Attachment references a stored capture artifact
type Attachment struct {
	Type string `json:"type"` // image, audio, document or text
	URL  string `json:"url"`
}

// DailyReport is one daily sales submission
type DailyReport struct {
	ID           string       `json:"report_id"`
	DateLocal    string       `json:"date_local"` // yyyy-mm-dd wall clock date, never converted
	TimeLocal    string       `json:"time_local"`
	Timezone     string       `json:"timezone"`
	StoreName    string       `json:"store_name"`
	SalesRepName string       `json:"sales_rep_name"`
	Items        []SalesItem  `json:"items"`
	Totals       Totals       `json:"totals"`
	Sources      []Source     `json:"sources"`
	Attachments  []Attachment `json:"attachments"`
	ShareMessage string       `json:"share_message"`
	CreatedAt    time.Time    `json:"created_at"`
}

// clone copies the slices so the returned value shares no backing arrays with r
func (r DailyReport) clone() DailyReport {
	r.Items = slices.Clone(r.Items)
	r.Sources = slices.Clone(r.Sources)
	r.Attachments = slices.Clone(r.Attachments)
	return r
}

// HasSource reports whether src already contributed to the report
func (r DailyReport) HasSource(src Source) bool {
	return slices.Contains(r.Sources, src)
}

// derive recomputes totals and the share message from the source fields
func derive(r DailyReport) DailyReport {
	r.Totals = ComputeTotals(r.Items, r.Totals.Discounts)
	r.ShareMessage = BuildShareMessage(r)
	return r
}
