// Package shipment lists the shipment methods a destination is eligible for
// and picks one for a cart.
package shipment

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/pricing"
)

// Method is a carrier/price tier in the store's base currency.
type Method struct {
	ID        uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
}

// Destination carries the identifiers that drive eligibility.
type Destination struct {
	CountryID uuid.UUID
	RegionID  *uuid.UUID
}

// MethodLister is the slice of db.Querier the selector reads from.
type MethodLister interface {
	ListEligibleShipmentMethods(ctx context.Context, arg db.ListEligibleShipmentMethodsParams) ([]db.ShipmentMethod, error)
}

// Eligible returns the active methods for dest ordered by unit price, then id.
func Eligible(ctx context.Context, q MethodLister, dest Destination) ([]Method, error) {
	rows, err := q.ListEligibleShipmentMethods(ctx, db.ListEligibleShipmentMethodsParams{
		CountryID: db.UUID(dest.CountryID),
		RegionID:  db.NullUUID(dest.RegionID),
	})
	if err != nil {
		return nil, fmt.Errorf("list shipment methods: %w", err)
	}
	methods := make([]Method, 0, len(rows))
	for _, row := range rows {
		methods = append(methods, Method{
			ID:        db.UUIDValue(row.ID),
			Name:      row.Name,
			UnitPrice: db.Decimal(row.UnitPrice),
		})
	}
	sortMethods(methods)
	return methods, nil
}

func sortMethods(methods []Method) {
	sort.SliceStable(methods, func(i, j int) bool {
		if c := methods[i].UnitPrice.Cmp(methods[j].UnitPrice); c != 0 {
			return c < 0
		}
		return bytes.Compare(methods[i].ID[:], methods[j].ID[:]) < 0
	})
}

// Select picks the requested method if eligible, else the current one if it is
// still eligible, else the cheapest (lowest id on ties). Nil when nothing ships.
func Select(eligible []Method, requested, current *uuid.UUID) *Method {
	if len(eligible) == 0 {
		return nil
	}
	find := func(id *uuid.UUID) *Method {
		if id == nil {
			return nil
		}
		for i := range eligible {
			if eligible[i].ID == *id {
				m := eligible[i]
				return &m
			}
		}
		return nil
	}
	if m := find(requested); m != nil {
		return m
	}
	if m := find(current); m != nil {
		return m
	}
	sorted := append([]Method(nil), eligible...)
	sortMethods(sorted)
	return &sorted[0]
}

// Price converts the selected method's price into the cart currency.
func Price(selected *Method, currencyRate decimal.Decimal) decimal.Decimal {
	if selected == nil {
		return decimal.Zero
	}
	return pricing.Convert(selected.UnitPrice, currencyRate)
}
