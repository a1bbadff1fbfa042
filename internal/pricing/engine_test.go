package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeEmptyCartIsZero(t *testing.T) {
	s := Compute(Input{VATRate: dec("0.21")})
	require.Equal(t, "0.00", Format(s.Subtotal))
	require.Equal(t, "0.00", Format(s.VATAmount))
	require.Equal(t, "0.00", Format(s.Total))
	require.Equal(t, 0, s.ItemsCount)
}

func TestComputeChargesStoredShipmentOnEmptyCart(t *testing.T) {
	s := Compute(Input{Shipment: dec("4.95"), VATRate: dec("0.21")})
	require.Equal(t, 0, s.ItemsCount)
	require.Equal(t, "4.95", Format(s.Shipment))
	require.Equal(t, "1.04", Format(s.VATAmount))
	require.Equal(t, "5.99", Format(s.Total))

	s = Compute(Input{Items: []Item{{Qty: 1, UnitPrice: dec("10.00")}}, Shipment: dec("4.95"), VATRate: dec("0.21")})
	require.Equal(t, "4.95", Format(s.Shipment))
	require.Equal(t, "18.09", Format(s.Total))
}

func TestComputeRateCouponOnHundred(t *testing.T) {
	s := Compute(Input{
		Items:    []Item{{Qty: 2, UnitPrice: dec("50.00")}},
		Discount: Discount{Rate: dec("0.1")},
		VATRate:  dec("0.21"),
	})
	require.Equal(t, "100.00", Format(s.Subtotal))
	require.Equal(t, "10.00", Format(s.Discount))
	require.Equal(t, "18.90", Format(s.VATAmount))
	require.Equal(t, "108.90", Format(s.Total))
	require.Equal(t, "121.00", Format(s.SubtotalVAT))
	require.Equal(t, "12.10", Format(s.DiscountVAT))
	require.Equal(t, 2, s.ItemsCount)
}

func TestComputeRateThenFixedCappedAtSubtotal(t *testing.T) {
	s := Compute(Input{
		Items:    []Item{{Qty: 1, UnitPrice: dec("20.00")}},
		Discount: Discount{Rate: dec("0.5"), Amount: dec("15.00")},
		Shipment: dec("4.95"),
		VATRate:  dec("0.21"),
	})
	require.Equal(t, "20.00", Format(s.Discount))
	require.Equal(t, "4.95", Format(s.Shipment))
	require.Equal(t, "1.04", Format(s.VATAmount))
	require.Equal(t, "5.99", Format(s.Total))
}

func TestComputeReverseChargeHasNoVAT(t *testing.T) {
	s := Compute(Input{
		Items:      []Item{{Qty: 3, UnitPrice: dec("9.99")}},
		Shipment:   dec("5.00"),
		VATRate:    dec("0.19"),
		VATReverse: true,
	})
	require.Equal(t, "29.97", Format(s.Subtotal))
	require.Equal(t, "0.00", Format(s.VATAmount))
	require.Equal(t, "34.97", Format(s.Total))
	require.Equal(t, Format(s.Subtotal), Format(s.SubtotalVAT))
	require.Equal(t, "19.00", Format(s.VATPercentage()))
}

func TestComputeRoundingLaw(t *testing.T) {
	cases := []Input{
		{Items: []Item{{Qty: 3, UnitPrice: dec("0.335")}}, VATRate: dec("0.21")},
		{Items: []Item{{Qty: 7, UnitPrice: dec("13.37")}}, Discount: Discount{Rate: dec("0.15")}, Shipment: dec("6.955"), VATRate: dec("0.09")},
		{Items: []Item{{Qty: 1, UnitPrice: dec("0.01")}}, Discount: Discount{Amount: dec("0.005")}, VATRate: dec("0.2")},
		{Items: []Item{{Qty: 2, UnitPrice: dec("19.995")}, {Qty: 1, UnitPrice: dec("4.444")}}, Shipment: dec("2.5"), VATRate: dec("0.2"), VATReverse: true},
	}
	for _, in := range cases {
		s := Compute(in)
		for _, term := range []decimal.Decimal{s.Subtotal, s.Discount, s.Shipment, s.VATAmount, s.Total} {
			require.False(t, term.IsNegative())
			require.True(t, term.Equal(Round(term)), "term %s not rounded", term)
		}
		want := s.Subtotal.Sub(s.Discount).Add(s.Shipment)
		if !in.VATReverse {
			want = want.Add(s.VATAmount)
		}
		require.True(t, want.Equal(s.Total))
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := Input{
		Items:    []Item{{Qty: 4, UnitPrice: dec("12.49")}},
		Discount: Discount{Rate: dec("0.1"), Amount: dec("1.00")},
		Shipment: dec("3.99"),
		VATRate:  dec("0.21"),
	}
	a, b := Compute(in), Compute(in)
	require.Equal(t, Format(a.Total), Format(b.Total))
	require.Equal(t, Format(a.VATAmount), Format(b.VATAmount))
}

func TestRoundIsHalfUp(t *testing.T) {
	require.Equal(t, "0.13", Format(Round(dec("0.125"))))
	require.Equal(t, "2.68", Format(Convert(dec("2.675"), dec("1"))))
	require.Equal(t, "5.85", Format(Convert(dec("4.95"), dec("1.1818"))))
}

func TestComputeTotalIsVATInclusive(t *testing.T) {
	in := Input{
		Items:    []Item{{Qty: 1, UnitPrice: dec("100.00")}},
		Shipment: dec("4.95"),
		VATRate:  dec("0.21"),
	}
	s := Compute(in)
	require.Equal(t, "121.00", Format(s.SubtotalVAT))
	require.Equal(t, "126.99", Format(s.Total))
	require.Equal(t, Format(s.Total), Format(s.TotalVAT))

	in.VATReverse = true
	s = Compute(in)
	require.Equal(t, "100.00", Format(s.SubtotalVAT))
	require.Equal(t, "104.95", Format(s.Total))
	require.Equal(t, Format(s.Total), Format(s.TotalVAT))
}
