package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/coupon"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/pricing"
)

// PricedLine is a cart line converted into the cart currency.
type PricedLine struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Priced is a cart with its totals derived at read time.
type Priced struct {
	Cart     db.Cart
	Currency geo.Currency
	// Coupon is the linked coupon in any state; it only discounts while active.
	Coupon  *db.Coupon
	Lines   []PricedLine
	Summary pricing.Summary
}

// Price loads the lines and coupon of cart and computes its totals.
func Price(ctx context.Context, q db.Querier, dir Directory, cart db.Cart) (Priced, error) {
	snap, err := dir.Snapshot(ctx)
	if err != nil {
		return Priced{}, fmt.Errorf("load geo directory: %w", err)
	}
	currency, ok := snap.CurrencyByID(db.UUIDValue(cart.CurrencyID))
	if !ok {
		return Priced{}, ConfigurationError(fmt.Errorf("currency %s", db.UUIDValue(cart.CurrencyID)))
	}

	rows, err := q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return Priced{}, fmt.Errorf("list cart items: %w", err)
	}
	out := Priced{Cart: cart, Currency: currency, Lines: make([]PricedLine, 0, len(rows))}
	items := make([]pricing.Item, 0, len(rows))
	for _, row := range rows {
		unit := pricing.Convert(db.Decimal(row.UnitPrice), currency.Rate)
		qty := int(row.Quantity)
		out.Lines = append(out.Lines, PricedLine{
			ID:          db.UUIDValue(row.ID),
			ProductID:   db.UUIDValue(row.ProductID),
			ProductName: row.ProductName,
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   pricing.Round(unit.Mul(decimal.NewFromInt(int64(qty)))),
		})
		items = append(items, pricing.Item{Qty: qty, UnitPrice: unit})
	}

	var discount pricing.Discount
	if cart.CouponID.Valid {
		row, err := q.GetCoupon(ctx, cart.CouponID)
		switch {
		case err == nil:
			out.Coupon = &row
			if row.State == db.EntityStateActive {
				discount = coupon.FromRow(row).Discount(currency.Rate)
			}
		case db.IsNotFound(err):
		default:
			return Priced{}, fmt.Errorf("load coupon: %w", err)
		}
	}

	out.Summary = pricing.Compute(pricing.Input{
		Items:      items,
		Discount:   discount,
		Shipment:   db.Decimal(cart.ShipmentPrice),
		VATRate:    db.Decimal(cart.VatRate),
		VATReverse: cart.VatReverse,
	})
	return out, nil
}

// LineView is the JSON shape of a cart line.
type LineView struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	LineTotal   string    `json:"line_total"`
}

// View is the JSON shape of a cart. Money fields carry two fraction digits.
type View struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	BillingID        *uuid.UUID `json:"billing_id"`
	ShippingID       *uuid.UUID `json:"shipping_id"`
	CouponID         *uuid.UUID `json:"coupon_id"`
	CouponCode       *string    `json:"coupon_code"`
	CurrencyID       uuid.UUID  `json:"currency_id"`
	CurrencyCode     string     `json:"currency_code"`
	ShipmentMethodID *uuid.UUID `json:"shipment_method_id"`
	VATRate          string     `json:"vat_rate"`
	VATReverse       bool       `json:"vat_reverse"`
	VATPercentage    string     `json:"vat_percentage"`
	VATAmount        string     `json:"vat_amount"`
	ItemsCount       int        `json:"items_count"`
	SubtotalPrice    string     `json:"subtotal_price"`
	SubtotalPriceVAT string     `json:"subtotal_price_vat"`
	DiscountPrice    string     `json:"discount_price"`
	DiscountPriceVAT string     `json:"discount_price_vat"`
	ShipmentPrice    string     `json:"shipment_price"`
	ShipmentPriceVAT string     `json:"shipment_price_vat"`
	TotalPrice       string     `json:"total_price"`
	// TotalPriceVAT mirrors TotalPrice, which is VAT-inclusive.
	TotalPriceVAT    string     `json:"total_price_vat"`
	Items            []LineView `json:"items"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// View renders p for clients.
func (p Priced) View() View {
	s := p.Summary
	v := View{
		ID:               db.UUIDValue(p.Cart.ID),
		UserID:           db.UUIDValue(p.Cart.UserID),
		BillingID:        db.UUIDPtr(p.Cart.BillingID),
		ShippingID:       db.UUIDPtr(p.Cart.ShippingID),
		CouponID:         db.UUIDPtr(p.Cart.CouponID),
		CurrencyID:       p.Currency.ID,
		CurrencyCode:     p.Currency.Code,
		ShipmentMethodID: db.UUIDPtr(p.Cart.ShipmentMethodID),
		VATRate:          s.VATRate.String(),
		VATReverse:       s.VATReverse,
		VATPercentage:    pricing.Format(s.VATPercentage()),
		VATAmount:        pricing.Format(s.VATAmount),
		ItemsCount:       s.ItemsCount,
		SubtotalPrice:    pricing.Format(s.Subtotal),
		SubtotalPriceVAT: pricing.Format(s.SubtotalVAT),
		DiscountPrice:    pricing.Format(s.Discount),
		DiscountPriceVAT: pricing.Format(s.DiscountVAT),
		ShipmentPrice:    pricing.Format(s.Shipment),
		ShipmentPriceVAT: pricing.Format(s.ShipmentVAT),
		TotalPrice:       pricing.Format(s.Total),
		TotalPriceVAT:    pricing.Format(s.TotalVAT),
		Items:            make([]LineView, 0, len(p.Lines)),
		CreatedAt:        p.Cart.CreatedAt.Time,
		UpdatedAt:        p.Cart.UpdatedAt.Time,
	}
	if p.Coupon != nil {
		code := p.Coupon.Code
		v.CouponCode = &code
	}
	for _, l := range p.Lines {
		v.Items = append(v.Items, LineView{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   pricing.Format(l.UnitPrice),
			LineTotal:   pricing.Format(l.LineTotal),
		})
	}
	return v
}
