package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/coupon"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/locale"
	"github.com/noah-isme/backend-storefront/internal/obs"
	"github.com/noah-isme/backend-storefront/internal/shipment"
	"github.com/noah-isme/backend-storefront/internal/vat"
)

// Reprice triggers, used as the metric label.
const (
	TriggerCreate  = "create"
	TriggerPatch   = "patch"
	TriggerAddress = "address"
)

// Directory supplies reference data.
type Directory interface {
	Snapshot(ctx context.Context) (*geo.Snapshot, error)
}

// Change lists the inputs a caller wants to modify. Fields left unset keep the
// cart's current value. An explicit null clears billing, shipping and coupon;
// a null shipment_method_id means no preference.
type Change struct {
	BillingID        common.Optional[uuid.UUID] `json:"billing_id"`
	ShippingID       common.Optional[uuid.UUID] `json:"shipping_id"`
	CouponCode       common.Optional[string]    `json:"coupon_code"`
	ShipmentMethodID common.Optional[uuid.UUID] `json:"shipment_method_id"`
}

// Destination is the resolved context VAT and shipment decisions are made for.
type Destination struct {
	Source   string
	Country  geo.Country
	Currency geo.Currency
	Business bool
}

// Engine recomputes the derived configuration of a cart: currency, VAT rate,
// reverse-charge flag, shipment method and price, and coupon link.
type Engine struct {
	Geo         Directory
	HomeCountry string
	// Rates backs the per-country overrides held in the directory.
	Rates vat.RateSource
	// Store is the seller's own locale. It replaces a caller locale whose
	// country is unknown or carries no VAT rate.
	Store locale.Context
}

// NewEngine constructs an Engine using the built-in standard rate table. The
// store locale defaults to the home country in its own currency.
func NewEngine(dir Directory, homeCountry string) *Engine {
	return &Engine{
		Geo:         dir,
		HomeCountry: homeCountry,
		Rates:       vat.StandardRates,
		Store:       locale.Context{Country: strings.ToUpper(strings.TrimSpace(homeCountry))},
	}
}

func (e *Engine) resolver(snap *geo.Snapshot) vat.Resolver {
	return vat.Resolver{Home: e.HomeCountry, Rates: vat.Chain{snap, e.Rates}}
}

// Reprice applies ch to cart and persists the recomputed configuration through
// q. It must run inside the caller's unit of work with the cart row locked;
// any error leaves the caller to roll back.
func (e *Engine) Reprice(ctx context.Context, q db.Querier, cart db.Cart, ch Change, lc locale.Context, trigger string) (db.Cart, error) {
	ctx, span := obs.StartSpan(ctx, "cart.reprice")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.id", db.UUIDValue(cart.ID).String()),
		attribute.String("cart.reprice.trigger", trigger),
	)

	updated, err := e.reprice(ctx, q, cart, ch, lc)
	result := "ok"
	if err != nil {
		result = "error"
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			result = strings.ToLower(appErr.Code)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	if obs.CartRepriceTotal != nil {
		obs.CartRepriceTotal.WithLabelValues(trigger, result).Inc()
	}
	if err != nil {
		return db.Cart{}, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("cart_id", db.UUIDValue(updated.ID).String()).
		Str("trigger", trigger).
		Str("vat_rate", db.Decimal(updated.VatRate).String()).
		Bool("vat_reverse", updated.VatReverse).
		Msg("cart repriced")
	return updated, nil
}

func (e *Engine) reprice(ctx context.Context, q db.Querier, cart db.Cart, ch Change, lc locale.Context) (db.Cart, error) {
	// Coupon validation precedes every other read and write.
	couponID := cart.CouponID
	if ch.CouponCode.Set {
		couponID = pgtype.UUID{}
		if ch.CouponCode.Value != nil {
			c, err := coupon.Validate(ctx, q, *ch.CouponCode.Value)
			if err != nil {
				if errors.Is(err, coupon.ErrInvalidCoupon) {
					return db.Cart{}, invalidCoupon(err)
				}
				return db.Cart{}, err
			}
			couponID = db.UUID(c.ID)
		}
	}

	billingID := db.UUIDPtr(cart.BillingID)
	if ch.BillingID.Set {
		billingID = ch.BillingID.Value
	}
	shippingID := db.UUIDPtr(cart.ShippingID)
	if ch.ShippingID.Set {
		shippingID = ch.ShippingID.Value
	}

	snap, err := e.Geo.Snapshot(ctx)
	if err != nil {
		return db.Cart{}, fmt.Errorf("load geo directory: %w", err)
	}
	owner := db.UUIDValue(cart.UserID)
	var dest Destination
	switch {
	case billingID != nil:
		dest, err = e.addressDestination(ctx, q, snap, owner, *billingID, db.AddressKindBilling)
	case shippingID != nil:
		dest, err = e.addressDestination(ctx, q, snap, owner, *shippingID, db.AddressKindShipping)
	default:
		dest, err = e.LocaleDestination(snap, lc)
	}
	if err != nil {
		return db.Cart{}, err
	}
	// A billing id alongside a shipping id still has to belong to the caller.
	if billingID != nil && shippingID != nil {
		if _, err := e.address(ctx, q, owner, *shippingID, db.AddressKindShipping); err != nil {
			return db.Cart{}, err
		}
	}

	tax, err := e.resolver(snap).Resolve(dest.Country.Code, dest.Business)
	if err != nil {
		return db.Cart{}, ConfigurationError(err)
	}

	eligible, err := shipment.Eligible(ctx, q, shipment.Destination{CountryID: dest.Country.ID, RegionID: dest.Country.RegionID})
	if err != nil {
		return db.Cart{}, err
	}
	var requested *uuid.UUID
	if ch.ShipmentMethodID.Set {
		requested = ch.ShipmentMethodID.Value
	}
	selected := shipment.Select(eligible, requested, db.UUIDPtr(cart.ShipmentMethodID))
	var methodID pgtype.UUID
	if selected != nil {
		methodID = db.UUID(selected.ID)
	}

	updated, err := q.UpdateCartConfiguration(ctx, db.UpdateCartConfigurationParams{
		ID:               cart.ID,
		BillingID:        db.NullUUID(billingID),
		ShippingID:       db.NullUUID(shippingID),
		CouponID:         couponID,
		ShipmentMethodID: methodID,
		CurrencyID:       db.UUID(dest.Currency.ID),
		VatRate:          db.Numeric(tax.Rate),
		VatReverse:       tax.ReverseCharge,
		ShipmentPrice:    db.Numeric(shipment.Price(selected, dest.Currency.Rate)),
	})
	if err != nil {
		return db.Cart{}, storeError("update cart configuration", err)
	}
	return updated, nil
}

func (e *Engine) address(ctx context.Context, q db.Querier, owner, id uuid.UUID, kind db.AddressKind) (db.Address, error) {
	addr, err := q.GetAddress(ctx, db.GetAddressParams{ID: db.UUID(id), UserID: db.UUID(owner), Kind: kind})
	if err != nil {
		if db.IsNotFound(err) {
			return db.Address{}, addressNotFound(kind)
		}
		return db.Address{}, fmt.Errorf("load %s address: %w", kind, err)
	}
	return addr, nil
}

func (e *Engine) addressDestination(ctx context.Context, q db.Querier, snap *geo.Snapshot, owner, id uuid.UUID, kind db.AddressKind) (Destination, error) {
	addr, err := e.address(ctx, q, owner, id, kind)
	if err != nil {
		return Destination{}, err
	}
	country, ok := snap.CountryByID(db.UUIDValue(addr.CountryID))
	if !ok {
		return Destination{}, ConfigurationError(fmt.Errorf("country %s", db.UUIDValue(addr.CountryID)))
	}
	currency, ok := snap.CurrencyByID(country.CurrencyID)
	if !ok {
		return Destination{}, ConfigurationError(fmt.Errorf("currency for country %s", country.Code))
	}
	return Destination{
		Source:   string(kind),
		Country:  country,
		Currency: currency,
		Business: addr.Company.Valid && strings.TrimSpace(addr.Company.String) != "",
	}, nil
}

// LocaleDestination resolves the caller's locale. A locale country that is
// unknown or has no VAT rate yields the store locale instead; only a broken
// store locale is a configuration error. An explicit currency wins over the
// country's own when it is known.
func (e *Engine) LocaleDestination(snap *geo.Snapshot, lc locale.Context) (Destination, error) {
	if dest, err := localeDestination(snap, lc); err == nil {
		if _, err := e.resolver(snap).Resolve(dest.Country.Code, false); err == nil {
			return dest, nil
		}
	}
	dest, err := localeDestination(snap, e.Store)
	if err != nil {
		return Destination{}, err
	}
	if _, err := e.resolver(snap).Resolve(dest.Country.Code, false); err != nil {
		return Destination{}, ConfigurationError(err)
	}
	return dest, nil
}

func localeDestination(snap *geo.Snapshot, lc locale.Context) (Destination, error) {
	country, ok := snap.CountryByCode(lc.Country)
	if !ok {
		return Destination{}, ConfigurationError(fmt.Errorf("locale country %q", lc.Country))
	}
	currency, ok := snap.CurrencyByCode(lc.Currency)
	if !ok {
		currency, ok = snap.CurrencyByID(country.CurrencyID)
		if !ok {
			return Destination{}, ConfigurationError(fmt.Errorf("currency for country %s", country.Code))
		}
	}
	return Destination{Source: "locale", Country: country, Currency: currency}, nil
}
