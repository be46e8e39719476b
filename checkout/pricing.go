package checkout

import (
	"storefront-svc/models"

	"github.com/shopspring/decimal"
)

// Totals is the outcome of pricing a set of order lines.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
	// Clamped is set when the discount exceeded the subtotal and the total was floored at zero.
	Clamped bool
}

// Price computes subtotal = Σ unit price × quantity and final = max(0, subtotal − discount).
func Price(lines []models.OrderLine, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	final := subtotal.Sub(discount)
	clamped := false
	if final.IsNegative() {
		final = decimal.Zero
		clamped = true
	}

	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		FinalTotal: final,
		Clamped:    clamped,
	}
}
