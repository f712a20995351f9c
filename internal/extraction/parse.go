package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxQuantity bounds model quantities; anything larger is a misread, not a sale
const maxQuantity = math.MaxInt32

// rawItem mirrors what models actually send: quantities may be fractional and
// any field may be null or missing
type rawItem struct {
	SKU           string           `json:"sku"`
	ProductName   string           `json:"product_name"`
	Quantity      *float64         `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Currency      string           `json:"currency"`
	Notes         string           `json:"notes"`
	LowConfidence bool             `json:"low_confidence"`
}

// parseItemsJSON extracts the item list from a model response. It accepts
// {"items": [...]} or a bare array, with or without markdown fences or prose.
func parseItemsJSON(text string) ([]LineItem, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if objStart == -1 && arrStart == -1 {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw []rawItem
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		end := strings.LastIndex(text, "]")
		if end < arrStart {
			return nil, fmt.Errorf("invalid JSON array in response")
		}
		if err := json.Unmarshal([]byte(text[arrStart:end+1]), &raw); err != nil {
			return nil, fmt.Errorf("unmarshaling json: %w", err)
		}
	} else {
		end := strings.LastIndex(text, "}")
		if end < objStart {
			return nil, fmt.Errorf("invalid JSON object in response")
		}
		var envelope struct {
			Items []rawItem `json:"items"`
		}
		if err := json.Unmarshal([]byte(text[objStart:end+1]), &envelope); err != nil {
			return nil, fmt.Errorf("unmarshaling json: %w", err)
		}
		raw = envelope.Items
	}

	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		item, ok := r.normalize()
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// normalize cleans up one model line. Lines without a product name are dropped;
// anything that had to be guessed or repaired is flagged low confidence.
func (r rawItem) normalize() (LineItem, bool) {
	item := LineItem{
		SKU:           strings.TrimSpace(r.SKU),
		ProductName:   strings.TrimSpace(r.ProductName),
		Currency:      strings.ToUpper(strings.TrimSpace(r.Currency)),
		Notes:         strings.TrimSpace(r.Notes),
		LowConfidence: r.LowConfidence,
	}
	if item.ProductName == "" {
		return LineItem{}, false
	}
	if item.Currency == "" {
		item.Currency = "AED"
	}

	switch {
	case r.Quantity == nil:
		item.Quantity = 1
		item.LowConfidence = true
	case *r.Quantity < 0, math.IsNaN(*r.Quantity), *r.Quantity > maxQuantity:
		item.LowConfidence = true
	default:
		q := math.Round(*r.Quantity)
		if q != *r.Quantity {
			item.LowConfidence = true
		}
		item.Quantity = int(q)
	}

	switch {
	case r.UnitPrice == nil:
		item.UnitPrice = decimal.Zero
		item.LowConfidence = true
	case r.UnitPrice.IsNegative():
		item.UnitPrice = decimal.Zero
		item.LowConfidence = true
	default:
		item.UnitPrice = *r.UnitPrice
	}

	return item, true
}
