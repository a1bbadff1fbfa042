package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/db"
)

// Fixture is a small storefront: two currencies, three European countries,
// two products, a couple of coupons and shipment methods.
type Fixture struct {
	EUR, GBP         db.Currency
	Europe           db.Region
	NL, DE, GB       db.Country
	Widget, Gadget   db.Product
	TenPercent       db.Coupon
	FiveOff          db.Coupon
	EuropeStandard   db.ShipmentMethod
	NetherlandsQuick db.ShipmentMethod
}

func money(s string) pgtype.Numeric { return db.Numeric(decimal.RequireFromString(s)) }

// Seed populates store with the fixture.
func Seed(t testing.TB, store db.Querier) Fixture {
	t.Helper()
	ctx := context.Background()
	var (
		f   Fixture
		err error
	)
	f.EUR, err = store.CreateCurrency(ctx, db.CreateCurrencyParams{Code: "EUR", Symbol: "€", Rate: money("1")})
	require.NoError(t, err)
	f.GBP, err = store.CreateCurrency(ctx, db.CreateCurrencyParams{Code: "GBP", Symbol: "£", Rate: money("0.85")})
	require.NoError(t, err)
	f.Europe, err = store.CreateRegion(ctx, "Europe")
	require.NoError(t, err)

	country := func(code, name string, cur db.Currency) db.Country {
		c, err := store.CreateCountry(ctx, db.CreateCountryParams{
			Code: code, Name: name, CurrencyID: cur.ID, RegionID: f.Europe.ID,
		})
		require.NoError(t, err)
		return c
	}
	f.NL = country("NL", "Netherlands", f.EUR)
	f.DE = country("DE", "Germany", f.EUR)
	f.GB = country("GB", "United Kingdom", f.GBP)

	f.Widget, err = store.CreateProduct(ctx, db.CreateProductParams{Name: "Widget", UnitPrice: money("50.00")})
	require.NoError(t, err)
	f.Gadget, err = store.CreateProduct(ctx, db.CreateProductParams{Name: "Gadget", UnitPrice: money("12.50")})
	require.NoError(t, err)

	f.TenPercent, err = store.CreateCoupon(ctx, db.CreateCouponParams{Code: "10PERC", Rate: money("0.1"), Amount: money("0"), State: db.EntityStateActive})
	require.NoError(t, err)
	f.FiveOff, err = store.CreateCoupon(ctx, db.CreateCouponParams{Code: "FIVEOFF", Rate: money("0"), Amount: money("5.00"), State: db.EntityStateActive})
	require.NoError(t, err)

	f.EuropeStandard, err = store.CreateShipmentMethod(ctx, db.CreateShipmentMethodParams{Name: "Europe standard", UnitPrice: money("4.95"), RegionID: f.Europe.ID})
	require.NoError(t, err)
	f.NetherlandsQuick, err = store.CreateShipmentMethod(ctx, db.CreateShipmentMethodParams{Name: "NL next day", UnitPrice: money("9.95"), CountryID: f.NL.ID})
	require.NoError(t, err)
	return f
}

// AddressOptions tweaks SeedAddress.
type AddressOptions struct {
	Company string
	VAT     string
}

// SeedAddress stores an address of the given kind in country for user.
func SeedAddress(t testing.TB, store db.Querier, user uuid.UUID, kind db.AddressKind, country db.Country, opts AddressOptions) db.Address {
	t.Helper()
	arg := db.CreateAddressParams{
		UserID:    db.UUID(user),
		Kind:      kind,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "Damrak 1",
		City:      "Amsterdam",
		ZipCode:   "1012LG",
		CountryID: country.ID,
	}
	if opts.Company != "" {
		arg.Company = db.Text(opts.Company)
	}
	if opts.VAT != "" {
		arg.Vat = db.Text(opts.VAT)
	}
	a, err := store.CreateAddress(context.Background(), arg)
	require.NoError(t, err)
	return a
}
