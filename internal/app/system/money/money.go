// Package money computes order amounts with decimal arithmetic. Amounts are
// stored as float64 in MongoDB and rounded to cents on the way out.
package money

import (
	"github.com/shopspring/decimal"
)

// Line is a unit price and quantity.
type Line struct {
	Price    float64
	Quantity int
}

// Breakdown is a computed order total.
type Breakdown struct {
	Subtotal float64
	Shipping float64
	Tax      float64
	Discount float64
	Total    float64
}

// Cents rounds f to two decimal places.
func Cents(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

// Subtotal sums price*quantity over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Total computes subtotal + shipping + tax - discount. A discount larger than
// the rest clamps the total at zero.
func Total(lines []Line, shipping, tax, discount float64) Breakdown {
	sub := Subtotal(lines)
	total := sub.
		Add(decimal.NewFromFloat(shipping)).
		Add(decimal.NewFromFloat(tax)).
		Sub(decimal.NewFromFloat(discount))
	if total.IsNegative() {
		total = decimal.Zero
	}

	subF, _ := sub.Round(2).Float64()
	totalF, _ := total.Round(2).Float64()
	return Breakdown{
		Subtotal: subF,
		Shipping: Cents(shipping),
		Tax:      Cents(tax),
		Discount: Cents(discount),
		Total:    totalF,
	}
}

// Equal reports whether a and b are the same amount to the cent.
func Equal(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// RoundTenths rounds f to one decimal place, half away from zero.
func RoundTenths(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(1).Float64()
	return v
}
