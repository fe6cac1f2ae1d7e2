package takeoff

import (
	"github.com/shopspring/decimal"

	"github.com/brickline/estimator-backend/pkg/db/models"
)

// RollupQuantity computes the scalar quantity of a takeoff item from its
// measurement rows. Each row contributes
//
//	quantity_factor × length × width × height
//
// where a dimension left at zero counts as 1, not 0: an unknown dimension is
// a multiplicative identity, otherwise one missing measurement would zero the
// whole line. A row with all dimensions zero is a pure repeat count. An item
// with no rows rolls up to zero.
func RollupQuantity(details []models.TakeoffDetail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(effectiveQuantity(d))
	}
	return total
}

func effectiveQuantity(d models.TakeoffDetail) decimal.Decimal {
	q := d.QuantityFactor
	for _, dim := range []decimal.Decimal{d.Length, d.Width, d.Height} {
		if dim.IsPositive() {
			q = q.Mul(dim)
		}
	}
	return q
}
