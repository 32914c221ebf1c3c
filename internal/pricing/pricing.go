// Package pricing derives the cart and order money breakdown.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrMismatch = errors.New("price breakdown does not match items")

var (
	FreeShippingThreshold = decimal.NewFromInt(1000)
	FlatShipping          = decimal.NewFromInt(100)
	TaxRate               = decimal.NewFromFloat(0.18)
)

// Line is the minimum a priced line needs.
type Line struct {
	Price float64
	Qty   int
}

type Breakdown struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

// Compute returns the breakdown for lines. Shipping is waived from the
// threshold upwards, tax is rounded to two places.
func Compute(lines []Line) Breakdown {
	items := decimal.Zero
	for _, line := range lines {
		items = items.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	items = items.Round(2)
	return FromItems(items.InexactFloat64())
}

// FromItems derives shipping, tax and total from an items subtotal.
func FromItems(itemsPrice float64) Breakdown {
	items := decimal.NewFromFloat(itemsPrice).Round(2)

	shipping := FlatShipping
	if items.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := items.Mul(TaxRate).Round(2)
	total := items.Add(shipping).Add(tax).Round(2)

	return Breakdown{
		ItemsPrice:    items.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

// Verify checks a client-sent breakdown against the one derived from lines.
func Verify(lines []Line, claimed Breakdown) error {
	want := Compute(lines)
	fields := []struct {
		name        string
		got, expect float64
	}{
		{"itemsPrice", claimed.ItemsPrice, want.ItemsPrice},
		{"taxPrice", claimed.TaxPrice, want.TaxPrice},
		{"shippingPrice", claimed.ShippingPrice, want.ShippingPrice},
		{"totalPrice", claimed.TotalPrice, want.TotalPrice},
	}
	for _, f := range fields {
		if !decimal.NewFromFloat(f.got).Round(2).Equal(decimal.NewFromFloat(f.expect)) {
			return fmt.Errorf("%w: %s is %.2f, expected %.2f", ErrMismatch, f.name, f.got, f.expect)
		}
	}
	return nil
}
