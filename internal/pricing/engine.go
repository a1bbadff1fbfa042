// Package pricing derives the presentation totals of a cart. Every term is
// rounded to two decimals (half-up) before it is summed.
package pricing

import "github.com/shopspring/decimal"

// Places is the number of fraction digits on every monetary output.
const Places = 2

// Round rounds to two decimals, half away from zero. Monetary inputs are
// never negative, so this is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Format renders a monetary amount with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Convert turns a base-currency amount into the cart currency.
func Convert(base, rate decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(rate))
}

// Item describes a priced line in the cart currency.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// Discount is the coupon linked to a cart. Amount is already in the cart currency.
type Discount struct {
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Input bundles everything Compute needs.
type Input struct {
	Items      []Item
	Discount   Discount
	Shipment   decimal.Decimal
	VATRate    decimal.Decimal
	VATReverse bool
}

// Summary aggregates computed pricing components.
type Summary struct {
	ItemsCount  int
	Subtotal    decimal.Decimal
	SubtotalVAT decimal.Decimal
	Discount    decimal.Decimal
	DiscountVAT decimal.Decimal
	Shipment    decimal.Decimal
	ShipmentVAT decimal.Decimal
	VATAmount   decimal.Decimal
	Total       decimal.Decimal
	// TotalVAT equals Total: the total already includes VAT.
	TotalVAT    decimal.Decimal
	VATRate     decimal.Decimal
	VATReverse  bool
}

// VATPercentage returns the rate as a percentage, e.g. 21.00 for 0.21.
func (s Summary) VATPercentage() decimal.Decimal {
	return Round(s.VATRate.Mul(decimal.NewFromInt(100)))
}

// Compute calculates cart totals given the provided inputs.
//
// discount = round(rate*subtotal) + amount, capped at subtotal.
// shipment = the stored shipment price, charged even when the cart is empty.
// vat      = round((subtotal-discount+shipment)*rate), zero when reverse-charged.
// total    = subtotal - discount + shipment + vat.
func Compute(in Input) Summary {
	subtotal := decimal.Zero
	count := 0
	for _, it := range in.Items {
		if it.Qty <= 0 {
			continue
		}
		count += it.Qty
		subtotal = subtotal.Add(Round(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))))
	}
	subtotal = Round(subtotal)

	discount := Round(in.Discount.Rate.Mul(subtotal)).Add(Round(in.Discount.Amount))
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	shipment := Round(in.Shipment)
	if shipment.IsNegative() {
		shipment = decimal.Zero
	}

	net := subtotal.Sub(discount).Add(shipment)
	vat := decimal.Zero
	if !in.VATReverse {
		vat = Round(net.Mul(in.VATRate))
	}
	total := net.Add(vat)

	return Summary{
		ItemsCount:  count,
		Subtotal:    subtotal,
		SubtotalVAT: withVAT(subtotal, in.VATRate, in.VATReverse),
		Discount:    discount,
		DiscountVAT: withVAT(discount, in.VATRate, in.VATReverse),
		Shipment:    shipment,
		ShipmentVAT: withVAT(shipment, in.VATRate, in.VATReverse),
		VATAmount:   vat,
		Total:       total,
		TotalVAT:    total,
		VATRate:     in.VATRate,
		VATReverse:  in.VATReverse,
	}
}

func withVAT(amount, rate decimal.Decimal, reverse bool) decimal.Decimal {
	if reverse {
		return amount
	}
	return amount.Add(Round(amount.Mul(rate)))
}
