// Package coupon resolves coupon codes to active discounts.
package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/obs"
	"github.com/noah-isme/backend-storefront/internal/pricing"
)

// ErrInvalidCoupon covers empty, unknown, inactive and deleted codes alike.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// Coupon is an active discount. Amount is in the store's base currency.
type Coupon struct {
	ID     uuid.UUID
	Code   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Finder is the slice of db.Querier the validator reads from.
type Finder interface {
	GetActiveCouponByCode(ctx context.Context, code string) (db.Coupon, error)
}

// Validate looks the code up exactly as given; matching is case-sensitive.
func Validate(ctx context.Context, q Finder, code string) (Coupon, error) {
	if code == "" {
		recordValidation("invalid")
		return Coupon{}, ErrInvalidCoupon
	}
	row, err := q.GetActiveCouponByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			recordValidation("invalid")
			return Coupon{}, fmt.Errorf("%w: %q", ErrInvalidCoupon, code)
		}
		recordValidation("error")
		return Coupon{}, fmt.Errorf("lookup coupon: %w", err)
	}
	recordValidation("valid")
	return FromRow(row), nil
}

// FromRow converts a stored coupon.
func FromRow(row db.Coupon) Coupon {
	return Coupon{
		ID:     db.UUIDValue(row.ID),
		Code:   row.Code,
		Rate:   db.Decimal(row.Rate),
		Amount: db.Decimal(row.Amount),
	}
}

// Discount expresses the coupon in the cart currency.
func (c Coupon) Discount(currencyRate decimal.Decimal) pricing.Discount {
	return pricing.Discount{
		Rate:   c.Rate,
		Amount: pricing.Convert(c.Amount, currencyRate),
	}
}

func recordValidation(result string) {
	if obs.CouponValidationTotal != nil {
		obs.CouponValidationTotal.WithLabelValues(result).Inc()
	}
}
