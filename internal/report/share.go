package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var monthAbbrev = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// BuildShareMessage renders the plain-text summary sent to messaging apps.
// The net total is always suffixed with AED, whatever the item currencies are.
func BuildShareMessage(r DailyReport) string {
	var b strings.Builder
	b.WriteString(r.StoreName)
	b.WriteString("\n")
	b.WriteString(formatShareDate(r.DateLocal))
	b.WriteString(" \n\nSale Report\n\n")

	lines := make([]string, 0, len(r.Items))
	for i, item := range r.Items {
		currency := item.Currency
		if currency == "" {
			currency = DefaultCurrency
		}
		lines = append(lines, fmt.Sprintf("%d. %d %s %s %s",
			i+1, item.Quantity, item.ProductName, formatAmount(item.LineTotal()), currency))
	}
	b.WriteString(strings.Join(lines, "\n"))

	b.WriteString("\n\nTotal: ")
	b.WriteString(formatAmount(r.Totals.Net))
	b.WriteString(" AED")
	return b.String()
}

// formatShareDate turns yyyy-mm-dd into D-Mon-YYYY by splitting the string.
// Anything that does not split into a numeric day and a valid month is returned as-is.
func formatShareDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return date
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d-%s-%s", day, monthAbbrev[month-1], parts[0])
}

// formatAmount drops decimals for whole values and fixes everything else to two places
func formatAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}
