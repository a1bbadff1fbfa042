package cart_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/locale"
)

var nlLocale = locale.Context{Country: "NL", Currency: "EUR"}

type env struct {
	store *dbtest.Memory
	fx    dbtest.Fixture
	svc   *cart.Service
	user  uuid.UUID
}

func setup(t *testing.T, extra ...func(*dbtest.Memory, dbtest.Fixture)) env {
	t.Helper()
	store := dbtest.New()
	fx := dbtest.Seed(t, store)
	for _, fn := range extra {
		fn(store, fx)
	}
	dir := geo.NewDirectory(store, nil, zerolog.Nop())
	return env{
		store: store,
		fx:    fx,
		svc:   cart.NewService(store, cart.NewEngine(dir, "NL")),
		user:  uuid.New(),
	}
}

func (e env) create(t *testing.T) cart.View {
	t.Helper()
	v, err := e.svc.Create(context.Background(), e.user, nlLocale, cart.Change{})
	require.NoError(t, err)
	return v
}

func (e env) patch(t *testing.T, id uuid.UUID, ch cart.Change) cart.View {
	t.Helper()
	v, err := e.svc.Patch(context.Background(), e.user, id, nlLocale, ch)
	require.NoError(t, err)
	return v
}

func (e env) billing(t *testing.T, country db.Country, opts dbtest.AddressOptions) uuid.UUID {
	t.Helper()
	return db.UUIDValue(dbtest.SeedAddress(t, e.store, e.user, db.AddressKindBilling, country, opts).ID)
}

func (e env) shipping(t *testing.T, country db.Country) uuid.UUID {
	t.Helper()
	return db.UUIDValue(dbtest.SeedAddress(t, e.store, e.user, db.AddressKindShipping, country, dbtest.AddressOptions{}).ID)
}

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus)
	require.Equal(t, code, appErr.Code)
}

func TestCreateWithoutAddressUsesLocale(t *testing.T) {
	e := setup(t)
	v := e.create(t)

	require.Equal(t, "0.21", v.VATRate)
	require.Equal(t, "21.00", v.VATPercentage)
	require.False(t, v.VATReverse)
	require.Equal(t, "EUR", v.CurrencyCode)
	require.Equal(t, "0.00", v.SubtotalPrice)
	require.Equal(t, "4.95", v.ShipmentPrice)
	require.Equal(t, "5.99", v.TotalPrice)
	require.Equal(t, 0, v.ItemsCount)
	require.Nil(t, v.BillingID)
	require.NotNil(t, v.ShipmentMethodID)
	require.Equal(t, db.UUIDValue(e.fx.EuropeStandard.ID), *v.ShipmentMethodID)

	gb, err := e.svc.Create(context.Background(), e.user, locale.Context{Country: "GB"}, cart.Change{})
	require.NoError(t, err)
	require.Equal(t, "GBP", gb.CurrencyCode)
	require.Equal(t, "0.2", gb.VATRate)
}

func TestCreateWithUntaxedLocaleFallsBackToStore(t *testing.T) {
	e := setup(t)
	e.svc.Engine.Store = nlLocale
	rq := httptest.NewRequest(http.MethodGet, "/api/v1/carts", nil)
	rq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	lc := locale.NewResolver("NL", "EUR").Resolve(rq)
	require.Equal(t, "US", lc.Country)

	v, err := e.svc.Create(context.Background(), e.user, lc, cart.Change{})
	require.NoError(t, err)
	require.Equal(t, "EUR", v.CurrencyCode)
	require.Equal(t, "0.21", v.VATRate)
	require.Equal(t, db.UUIDValue(e.fx.EuropeStandard.ID), *v.ShipmentMethodID)

	v, err = e.svc.Patch(context.Background(), e.user, v.ID, locale.Context{Country: "ZZ", Currency: "XXX"}, cart.Change{})
	require.NoError(t, err)
	require.Equal(t, "EUR", v.CurrencyCode)
	require.Equal(t, "0.21", v.VATRate)
}

func TestCreateWithBrokenStoreLocaleIsConfigurationError(t *testing.T) {
	e := setup(t)
	e.svc.Engine.Store = locale.Context{Country: "US"}
	_, err := e.svc.Create(context.Background(), e.user, locale.Context{Country: "US"}, cart.Change{})
	requireAppError(t, err, http.StatusConflict, "CONFIGURATION_ERROR")
	require.ErrorIs(t, err, cart.ErrConfiguration)

	list, err := e.svc.List(context.Background(), e.user, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestBillingDestinationForIndividualAndBusiness(t *testing.T) {
	e := setup(t)
	c := e.create(t)

	nl := e.billing(t, e.fx.NL, dbtest.AddressOptions{})
	v := e.patch(t, c.ID, cart.Change{BillingID: common.Some(nl)})
	require.False(t, v.VATReverse)
	require.Equal(t, "0.21", v.VATRate)
	require.Equal(t, nl, *v.BillingID)

	deBusiness := e.billing(t, e.fx.DE, dbtest.AddressOptions{Company: "Acme GmbH", VAT: "DE123456789"})
	v = e.patch(t, c.ID, cart.Change{BillingID: common.Some(deBusiness)})
	require.True(t, v.VATReverse)
	require.Equal(t, "0.19", v.VATRate)

	nlBusiness := e.billing(t, e.fx.NL, dbtest.AddressOptions{Company: "Acme BV"})
	v = e.patch(t, c.ID, cart.Change{BillingID: common.Some(nlBusiness)})
	require.False(t, v.VATReverse, "domestic business is not reverse-charged")
	require.Equal(t, "0.21", v.VATRate)
}

func TestBillingTakesPriorityOverShipping(t *testing.T) {
	e := setup(t)
	c := e.create(t)
	gb := e.shipping(t, e.fx.GB)
	de := e.billing(t, e.fx.DE, dbtest.AddressOptions{})

	v := e.patch(t, c.ID, cart.Change{ShippingID: common.Some(gb)})
	require.Equal(t, "GBP", v.CurrencyCode)
	require.Equal(t, "0.2", v.VATRate)

	v = e.patch(t, c.ID, cart.Change{BillingID: common.Some(de)})
	require.Equal(t, "EUR", v.CurrencyCode)
	require.Equal(t, "0.19", v.VATRate)

	v = e.patch(t, c.ID, cart.Change{BillingID: common.Null[uuid.UUID]()})
	require.Nil(t, v.BillingID)
	require.Equal(t, "GBP", v.CurrencyCode)

	v = e.patch(t, c.ID, cart.Change{ShippingID: common.Null[uuid.UUID]()})
	require.Equal(t, "EUR", v.CurrencyCode)
	require.Equal(t, "0.21", v.VATRate)
}

func TestCurrencySwitchConvertsLinesAndShipment(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	_, err := e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: db.UUIDValue(e.fx.Widget.ID), Quantity: 1})
	require.NoError(t, err)

	v := e.patch(t, c.ID, cart.Change{ShippingID: common.Some(e.shipping(t, e.fx.GB))})
	require.Equal(t, "GBP", v.CurrencyCode)
	require.Equal(t, "42.50", v.Items[0].UnitPrice)
	require.Equal(t, "42.50", v.SubtotalPrice)
	require.Equal(t, "4.21", v.ShipmentPrice)
	// (42.50 + 4.21) * 0.20 = 9.342
	require.Equal(t, "9.34", v.VATAmount)
	require.Equal(t, "56.05", v.TotalPrice)
}

func TestCouponScenarios(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	_, err := e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: db.UUIDValue(e.fx.Widget.ID), Quantity: 2})
	require.NoError(t, err)

	t.Run("rate coupon on a hundred", func(t *testing.T) {
		v := e.patch(t, c.ID, cart.Change{CouponCode: common.Some("10PERC")})
		require.Equal(t, "100.00", v.SubtotalPrice)
		require.Equal(t, "10.00", v.DiscountPrice)
		require.Equal(t, "4.95", v.ShipmentPrice)
		// (100 - 10 + 4.95) * 0.21 = 19.9395
		require.Equal(t, "19.94", v.VATAmount)
		require.Equal(t, "114.89", v.TotalPrice)
		require.Equal(t, "10PERC", *v.CouponCode)
		require.Equal(t, db.UUIDValue(e.fx.TenPercent.ID), *v.CouponID)
	})

	t.Run("invalid code leaves the cart untouched", func(t *testing.T) {
		before, err := e.svc.Get(ctx, e.user, c.ID)
		require.NoError(t, err)

		for _, code := range []string{"INVALID", "10perc", ""} {
			_, err := e.svc.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{CouponCode: common.Some(code)})
			requireAppError(t, err, http.StatusBadRequest, "INVALID_COUPON")
		}

		de := e.billing(t, e.fx.DE, dbtest.AddressOptions{})
		_, err = e.svc.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{
			BillingID:  common.Some(de),
			CouponCode: common.Some("INVALID"),
		})
		requireAppError(t, err, http.StatusBadRequest, "INVALID_COUPON")

		after, err := e.svc.Get(ctx, e.user, c.ID)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("inactive coupon stops discounting but stays linked", func(t *testing.T) {
		e.store.SetCouponState(e.fx.TenPercent.ID, db.EntityStateInactive)
		defer e.store.SetCouponState(e.fx.TenPercent.ID, db.EntityStateActive)

		v, err := e.svc.Get(ctx, e.user, c.ID)
		require.NoError(t, err)
		require.Equal(t, "10PERC", *v.CouponCode)
		require.Equal(t, "0.00", v.DiscountPrice)
	})

	t.Run("clearing always succeeds", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			v := e.patch(t, c.ID, cart.Change{CouponCode: common.Null[string]()})
			require.Nil(t, v.CouponID)
			require.Nil(t, v.CouponCode)
			require.Equal(t, "0.00", v.DiscountPrice)
		}
	})

	t.Run("fixed amount is converted", func(t *testing.T) {
		v := e.patch(t, c.ID, cart.Change{
			CouponCode: common.Some("FIVEOFF"),
			ShippingID: common.Some(e.shipping(t, e.fx.GB)),
		})
		require.Equal(t, "GBP", v.CurrencyCode)
		require.Equal(t, "85.00", v.SubtotalPrice)
		require.Equal(t, "4.25", v.DiscountPrice)
	})
}

func TestRepriceIsIdempotent(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	_, err := e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: db.UUIDValue(e.fx.Gadget.ID), Quantity: 3})
	require.NoError(t, err)
	e.patch(t, c.ID, cart.Change{
		BillingID:  common.Some(e.billing(t, e.fx.NL, dbtest.AddressOptions{})),
		CouponCode: common.Some("10PERC"),
	})

	first := e.patch(t, c.ID, cart.Change{})
	second := e.patch(t, c.ID, cart.Change{})
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	require.Equal(t, first, second)
}

func TestShipmentMethodSelection(t *testing.T) {
	e := setup(t)
	c := e.create(t)
	quick := db.UUIDValue(e.fx.NetherlandsQuick.ID)
	standard := db.UUIDValue(e.fx.EuropeStandard.ID)

	v := e.patch(t, c.ID, cart.Change{ShipmentMethodID: common.Some(quick)})
	require.Equal(t, quick, *v.ShipmentMethodID)

	v = e.patch(t, c.ID, cart.Change{ShipmentMethodID: common.Null[uuid.UUID]()})
	require.Equal(t, quick, *v.ShipmentMethodID, "current method kept while eligible")

	v = e.patch(t, c.ID, cart.Change{ShipmentMethodID: common.Some(uuid.New())})
	require.Equal(t, quick, *v.ShipmentMethodID)

	v = e.patch(t, c.ID, cart.Change{BillingID: common.Some(e.billing(t, e.fx.DE, dbtest.AddressOptions{}))})
	require.Equal(t, standard, *v.ShipmentMethodID, "falls back to cheapest once ineligible")

	e.store.SetShipmentMethodState(e.fx.EuropeStandard.ID, db.EntityStateInactive)
	v = e.patch(t, c.ID, cart.Change{})
	require.Nil(t, v.ShipmentMethodID)
	require.Equal(t, "0.00", v.ShipmentPrice)
}

func TestOwnershipIsReportedAsNotFound(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	stranger := uuid.New()

	_, err := e.svc.Get(ctx, stranger, c.ID)
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
	_, err = e.svc.Patch(ctx, stranger, c.ID, nlLocale, cart.Change{})
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
	require.ErrorIs(t, e.svc.Delete(ctx, stranger, c.ID), cart.ErrNotFound)

	foreign := db.UUIDValue(dbtest.SeedAddress(t, e.store, stranger, db.AddressKindBilling, e.fx.DE, dbtest.AddressOptions{}).ID)
	_, err = e.svc.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{BillingID: common.Some(foreign)})
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
	require.ErrorIs(t, err, cart.ErrAddressNotFound)

	shipping := e.shipping(t, e.fx.GB)
	_, err = e.svc.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{BillingID: common.Some(shipping)})
	require.ErrorIs(t, err, cart.ErrAddressNotFound, "a shipping address is not a billing address")

	after, err := e.svc.Get(ctx, e.user, c.ID)
	require.NoError(t, err)
	require.Nil(t, after.BillingID)
}

func TestUnsupportedDestinationRollsBack(t *testing.T) {
	var xx db.Country
	e := setup(t, func(store *dbtest.Memory, fx dbtest.Fixture) {
		var err error
		xx, err = store.CreateCountry(context.Background(), db.CreateCountryParams{Code: "XX", Name: "Nowhere", CurrencyID: fx.GBP.ID})
		require.NoError(t, err)
	})
	c := e.create(t)

	_, err := e.svc.Patch(context.Background(), e.user, c.ID, nlLocale, cart.Change{BillingID: common.Some(e.billing(t, xx, dbtest.AddressOptions{}))})
	requireAppError(t, err, http.StatusConflict, "CONFIGURATION_ERROR")

	after, err := e.svc.Get(context.Background(), e.user, c.ID)
	require.NoError(t, err)
	require.Nil(t, after.BillingID)
	require.Equal(t, "EUR", after.CurrencyCode)
}

func TestStoreFailureLeavesPriorConfiguration(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	e.patch(t, c.ID, cart.Change{CouponCode: common.Some("10PERC")})

	boom := errors.New("connection reset")
	e.store.Fail = func(method string) error {
		if method == "UpdateCartConfiguration" {
			return boom
		}
		return nil
	}
	_, err := e.svc.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{
		CouponCode: common.Null[string](),
		ShippingID: common.Some(e.shipping(t, e.fx.GB)),
	})
	require.ErrorIs(t, err, boom)
	e.store.Fail = nil

	after, err := e.svc.Get(ctx, e.user, c.ID)
	require.NoError(t, err)
	require.Equal(t, "10PERC", *after.CouponCode)
	require.Nil(t, after.ShippingID)
}

func TestItems(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c := e.create(t)
	widget := db.UUIDValue(e.fx.Widget.ID)

	_, err := e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: widget, Quantity: 1})
	require.NoError(t, err)
	v, err := e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: widget, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	require.Equal(t, 3, v.ItemsCount)
	require.Equal(t, "150.00", v.Items[0].LineTotal)

	v, err = e.svc.UpdateItem(ctx, e.user, c.ID, v.Items[0].ID, cart.QuantityInput{Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "50.00", v.SubtotalPrice)

	_, err = e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: widget})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
	_, err = e.svc.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: uuid.New(), Quantity: 1})
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")

	v, err = e.svc.RemoveItem(ctx, e.user, c.ID, v.Items[0].ID)
	require.NoError(t, err)
	require.Empty(t, v.Items)
	require.Equal(t, "0.00", v.SubtotalPrice)
	require.Equal(t, "4.95", v.ShipmentPrice)
	require.Equal(t, "5.99", v.TotalPrice)

	_, err = e.svc.RemoveItem(ctx, e.user, c.ID, uuid.New())
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestListAndDelete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	first := e.create(t)
	second := e.create(t)

	list, err := e.svc.List(ctx, e.user, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)

	require.NoError(t, e.svc.Delete(ctx, e.user, first.ID))
	_, err = e.svc.Get(ctx, e.user, first.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}
