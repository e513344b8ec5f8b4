package domain

import "math"

// Totals is the monetary summary of an invoice. All values are cents.
type Totals struct {
	Subtotal   int64
	TaxAmount  int64
	Total      int64
	BalanceDue int64
}

// ItemAmount computes a line amount as quantity times unit rate,
// rounded half-up to the nearest cent.
func ItemAmount(quantity float64, unitRate int64) int64 {
	return roundHalfUp(quantity * float64(unitRate))
}

// ComputeTotals derives the invoice summary from its line items. Tax is
// computed on the subtotal in a single rounding step. BalanceDue may go
// negative when payments exceed the total; overpayment is preserved,
// not clamped.
func ComputeTotals(items []LineItem, taxRate float64, amountPaid int64) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Amount
	}

	taxAmount := roundHalfUp(float64(subtotal) * taxRate)
	total := subtotal + taxAmount

	return Totals{
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		Total:      total,
		BalanceDue: total - amountPaid,
	}
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
