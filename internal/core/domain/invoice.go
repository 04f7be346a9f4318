package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineAmount returns quantity x rate rounded to cents.
func LineAmount(quantity, rate float64) float64 {
	amount, _ := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return amount
}

// Recalculate recomputes every item amount and the invoice total.
// Items without an id get one.
func (inv *Invoice) Recalculate() {
	inv.Items, inv.Total = RecalculateItems(inv.Items)
}

// RecalculateItems returns items with fresh amounts and their total.
func RecalculateItems(items []InvoiceItem) ([]InvoiceItem, float64) {
	out := make([]InvoiceItem, len(items))
	total := decimal.Zero
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		amount := decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Rate)).Round(2)
		item.Amount, _ = amount.Float64()
		total = total.Add(amount)
		out[i] = item
	}
	sum, _ := total.Float64()
	return out, sum
}

// SetQuantity changes the quantity of item i and recomputes the invoice.
func (inv *Invoice) SetQuantity(i int, quantity float64) error {
	if i < 0 || i >= len(inv.Items) {
		return fmt.Errorf("%w: item %d out of range", ErrInvalidRecord, i)
	}
	inv.Items[i].Quantity = quantity
	inv.Recalculate()
	return nil
}

// SetRate changes the rate of item i and recomputes the invoice.
func (inv *Invoice) SetRate(i int, rate float64) error {
	if i < 0 || i >= len(inv.Items) {
		return fmt.Errorf("%w: item %d out of range", ErrInvalidRecord, i)
	}
	inv.Items[i].Rate = rate
	inv.Recalculate()
	return nil
}

// InvoiceNumber formats a suggested invoice number: INV-YYYYMMDD-NNNN.
func InvoiceNumber(day time.Time, serial int) string {
	return fmt.Sprintf("INV-%s-%04d", day.Format("20060102"), serial%10000)
}

// NextInvoiceNumber suggests the number for the next invoice issued on day:
// one past the highest serial already used on that day.
func NextInvoiceNumber(existing []Invoice, day time.Time) string {
	prefix := "INV-" + day.Format("20060102") + "-"
	highest := 0
	for _, inv := range existing {
		suffix, ok := strings.CutPrefix(inv.InvoiceNumber, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return InvoiceNumber(day, highest+1)
}
