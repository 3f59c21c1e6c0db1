package ledger

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(OptionMultiplier)

// Premium returns the signed cash effect of opening a trade:
//
//	STO: +(price * qty * multiplier) - commission
//	BTO: -(price * qty * multiplier + commission)
//
// Stock uses a multiplier of 1, so a stock purchase is BTO and a sale is STO.
// The result is rounded to cents.
func Premium(typ Type, side Side, qty, price, commission float64) float64 {
	base := Notional(typ, qty, price)
	c := decimal.NewFromFloat(commission)
	if side == STO {
		return base.Sub(c).Round(2).InexactFloat64()
	}
	return base.Add(c).Neg().Round(2).InexactFloat64()
}

// Notional is price * |qty| * multiplier as an exact decimal.
func Notional(typ Type, qty, price float64) decimal.Decimal {
	q := decimal.NewFromFloat(qty).Abs()
	v := decimal.NewFromFloat(price).Mul(q)
	if typ != Stock {
		v = v.Mul(hundred)
	}
	return v
}

// CollateralFor is the cash needed to secure qty short puts at strike.
func CollateralFor(strike, qty float64) float64 {
	return decimal.NewFromFloat(strike).
		Mul(hundred).
		Mul(decimal.NewFromFloat(qty).Abs()).
		Round(2).
		InexactFloat64()
}

// Value is price * |qty| * multiplier rounded to cents.
func Value(typ Type, qty, price float64) float64 {
	return Notional(typ, qty, price).Round(2).InexactFloat64()
}

// Cents rounds an amount to two decimal places.
func Cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sum adds amounts exactly and rounds the total to cents.
func Sum(vs ...float64) float64 {
	total := decimal.Zero
	for _, v := range vs {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
