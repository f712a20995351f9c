package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidChanges is returned when a change set fails field validation
var ErrInvalidChanges = errors.New("invalid changes")

// Changes is a partial update to a report. Nil fields are left untouched.
// The report ID, creation time and derived fields cannot be changed.
type Changes struct {
	DateLocal    *string          `json:"date_local,omitempty"`
	TimeLocal    *string          `json:"time_local,omitempty"`
	Timezone     *string          `json:"timezone,omitempty"`
	StoreName    *string          `json:"store_name,omitempty"`
	SalesRepName *string          `json:"sales_rep_name,omitempty"`
	Items        *[]SalesItem     `json:"items,omitempty"`
	Discounts    *decimal.Decimal `json:"discounts,omitempty"`
	Sources      *[]Source        `json:"sources,omitempty"`
	Attachments  *[]Attachment    `json:"-"` // set by captures only
}

// apply merges c over r. The result shares no slices with r or c.
func (c Changes) apply(r DailyReport) DailyReport {
	r = r.clone()
	if c.DateLocal != nil {
		r.DateLocal = *c.DateLocal
	}
	if c.TimeLocal != nil {
		r.TimeLocal = *c.TimeLocal
	}
	if c.Timezone != nil {
		r.Timezone = *c.Timezone
	}
	if c.StoreName != nil {
		r.StoreName = *c.StoreName
	}
	if c.SalesRepName != nil {
		r.SalesRepName = *c.SalesRepName
	}
	if c.Items != nil {
		r.Items = slices.Clone(*c.Items)
	}
	if c.Discounts != nil {
		r.Totals.Discounts = *c.Discounts
	}
	if c.Sources != nil {
		r.Sources = slices.Clone(*c.Sources)
	}
	if c.Attachments != nil {
		r.Attachments = slices.Clone(*c.Attachments)
	}
	return r
}

// Normalize validates item fields, fills the default currency and clamps
// negative discounts to zero, the way the editing surface does before committing.
func (c *Changes) Normalize() error {
	if c.Items != nil {
		items := slices.Clone(*c.Items)
		for i := range items {
			if err := normalizeItem(&items[i]); err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
		}
		c.Items = &items
	}
	if c.Discounts != nil && c.Discounts.IsNegative() {
		zero := decimal.Zero
		c.Discounts = &zero
	}
	if c.Sources != nil {
		for _, src := range *c.Sources {
			if !src.Valid() {
				return fmt.Errorf("%w: unknown source %q", ErrInvalidChanges, src)
			}
		}
	}
	return nil
}

func normalizeItem(item *SalesItem) error {
	item.ProductName = strings.TrimSpace(item.ProductName)
	if item.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidChanges)
	}
	if item.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidChanges)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidChanges)
	}
	item.Currency = strings.ToUpper(strings.TrimSpace(item.Currency))
	if item.Currency == "" {
		item.Currency = DefaultCurrency
	}
	return nil
}

// CaptureChanges builds the single update a capture provider commits:
// new items and attachments are appended and the source is added to the set.
func CaptureChanges(current DailyReport, items []SalesItem, source Source, attachments ...Attachment) Changes {
	merged := append(slices.Clone(current.Items), items...)
	sources := slices.Clone(current.Sources)
	if !slices.Contains(sources, source) {
		sources = append(sources, source)
	}
	c := Changes{
		Items:   &merged,
		Sources: &sources,
	}
	if len(attachments) > 0 {
		all := append(slices.Clone(current.Attachments), attachments...)
		c.Attachments = &all
	}
	return c
}
