package coupon

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
)

func seedCoupon(t *testing.T, store *dbtest.Memory, code, rate string, state db.EntityState) db.Coupon {
	t.Helper()
	c, err := store.CreateCoupon(context.Background(), db.CreateCouponParams{
		Code:   code,
		Rate:   db.Numeric(decimal.RequireFromString(rate)),
		Amount: db.Numeric(decimal.Zero),
		State:  state,
	})
	require.NoError(t, err)
	return c
}

func TestValidateActiveCoupon(t *testing.T) {
	store := dbtest.New()
	row := seedCoupon(t, store, "10PERC", "0.1", db.EntityStateActive)

	c, err := Validate(context.Background(), store, "10PERC")
	require.NoError(t, err)
	require.Equal(t, db.UUIDValue(row.ID), c.ID)
	require.Equal(t, "0.10", c.Rate.StringFixed(2))
}

func TestValidateRejectsUnknownInactiveDeletedAndEmpty(t *testing.T) {
	store := dbtest.New()
	seedCoupon(t, store, "10PERC", "0.1", db.EntityStateActive)
	seedCoupon(t, store, "OLD", "0.2", db.EntityStateInactive)
	seedCoupon(t, store, "GONE", "0.3", db.EntityStateDeleted)

	for _, code := range []string{"", "INVALID", "10perc", "OLD", "GONE"} {
		_, err := Validate(context.Background(), store, code)
		require.ErrorIs(t, err, ErrInvalidCoupon, code)
	}
}

func TestDiscountConvertsFixedAmount(t *testing.T) {
	c := Coupon{Rate: decimal.Zero, Amount: decimal.RequireFromString("5.00")}
	d := c.Discount(decimal.RequireFromString("0.8571"))
	require.Equal(t, "4.29", d.Amount.StringFixed(2))
}
