package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, unit_price)
VALUES ($1, $2)
RETURNING id, name, unit_price, state, created_at
`

type CreateProductParams struct {
	Name      string         `json:"name"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Name, arg.UnitPrice)
	var i Product
	err := row.Scan(&i.ID, &i.Name, &i.UnitPrice, &i.State, &i.CreatedAt)
	return i, err
}

const getProduct = `-- name: GetProduct :one
SELECT id, name, unit_price, state, created_at FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(&i.ID, &i.Name, &i.UnitPrice, &i.State, &i.CreatedAt)
	return i, err
}

const createCoupon = `-- name: CreateCoupon :one
INSERT INTO coupons (code, rate, amount, state)
VALUES ($1, $2, $3, $4)
RETURNING id, code, rate, amount, state, created_at
`

type CreateCouponParams struct {
	Code   string         `json:"code"`
	Rate   pgtype.Numeric `json:"rate"`
	Amount pgtype.Numeric `json:"amount"`
	State  EntityState    `json:"state"`
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, createCoupon, arg.Code, arg.Rate, arg.Amount, arg.State)
	return scanCoupon(row)
}

const getActiveCouponByCode = `-- name: GetActiveCouponByCode :one
SELECT id, code, rate, amount, state, created_at
FROM coupons
WHERE code = $1 AND state = 'active'
`

func (q *Queries) GetActiveCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRow(ctx, getActiveCouponByCode, code)
	return scanCoupon(row)
}

const getCoupon = `-- name: GetCoupon :one
SELECT id, code, rate, amount, state, created_at FROM coupons WHERE id = $1
`

func (q *Queries) GetCoupon(ctx context.Context, id pgtype.UUID) (Coupon, error) {
	row := q.db.QueryRow(ctx, getCoupon, id)
	return scanCoupon(row)
}

func scanCoupon(row rowScanner) (Coupon, error) {
	var i Coupon
	err := row.Scan(&i.ID, &i.Code, &i.Rate, &i.Amount, &i.State, &i.CreatedAt)
	return i, err
}

const createShipmentMethod = `-- name: CreateShipmentMethod :one
INSERT INTO shipment_methods (name, unit_price, country_id, region_id)
VALUES ($1, $2, $3, $4)
RETURNING id, name, unit_price, country_id, region_id, state, created_at
`

type CreateShipmentMethodParams struct {
	Name      string         `json:"name"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	CountryID pgtype.UUID    `json:"country_id"`
	RegionID  pgtype.UUID    `json:"region_id"`
}

func (q *Queries) CreateShipmentMethod(ctx context.Context, arg CreateShipmentMethodParams) (ShipmentMethod, error) {
	row := q.db.QueryRow(ctx, createShipmentMethod, arg.Name, arg.UnitPrice, arg.CountryID, arg.RegionID)
	return scanShipmentMethod(row)
}

const getShipmentMethod = `-- name: GetShipmentMethod :one
SELECT id, name, unit_price, country_id, region_id, state, created_at
FROM shipment_methods
WHERE id = $1
`

func (q *Queries) GetShipmentMethod(ctx context.Context, id pgtype.UUID) (ShipmentMethod, error) {
	row := q.db.QueryRow(ctx, getShipmentMethod, id)
	return scanShipmentMethod(row)
}

// A method without country or region ships worldwide. A country-bound method
// matches only that country; a region-bound method matches any country in it.
const listEligibleShipmentMethods = `-- name: ListEligibleShipmentMethods :many
SELECT id, name, unit_price, country_id, region_id, state, created_at
FROM shipment_methods
WHERE state = 'active'
  AND (
    (country_id IS NULL AND region_id IS NULL)
    OR country_id = $1
    OR (country_id IS NULL AND region_id = $2)
  )
ORDER BY unit_price, id
`

type ListEligibleShipmentMethodsParams struct {
	CountryID pgtype.UUID `json:"country_id"`
	RegionID  pgtype.UUID `json:"region_id"`
}

func (q *Queries) ListEligibleShipmentMethods(ctx context.Context, arg ListEligibleShipmentMethodsParams) ([]ShipmentMethod, error) {
	rows, err := q.db.Query(ctx, listEligibleShipmentMethods, arg.CountryID, arg.RegionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShipmentMethod
	for rows.Next() {
		i, err := scanShipmentMethod(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanShipmentMethod(row rowScanner) (ShipmentMethod, error) {
	var i ShipmentMethod
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.UnitPrice,
		&i.CountryID,
		&i.RegionID,
		&i.State,
		&i.CreatedAt,
	)
	return i, err
}
