package report

import "github.com/shopspring/decimal"

// ComputeTotals sums quantity*unitPrice left to right and subtracts discounts.
// Net is not clamped; an over-discounted report has a negative net.
func ComputeTotals(items []SalesItem, discounts decimal.Decimal) Totals {
	gross := decimal.Zero
	for _, item := range items {
		gross = gross.Add(item.LineTotal())
	}
	return Totals{
		Gross:     gross,
		Discounts: discounts,
		Net:       gross.Sub(discounts),
	}
}
