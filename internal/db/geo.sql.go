package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createCurrency = `-- name: CreateCurrency :one
INSERT INTO currencies (code, symbol, rate)
VALUES ($1, $2, $3)
RETURNING id, code, symbol, rate, created_at
`

type CreateCurrencyParams struct {
	Code   string         `json:"code"`
	Symbol string         `json:"symbol"`
	Rate   pgtype.Numeric `json:"rate"`
}

func (q *Queries) CreateCurrency(ctx context.Context, arg CreateCurrencyParams) (Currency, error) {
	row := q.db.QueryRow(ctx, createCurrency, arg.Code, arg.Symbol, arg.Rate)
	return scanCurrency(row)
}

const listCurrencies = `-- name: ListCurrencies :many
SELECT id, code, symbol, rate, created_at FROM currencies ORDER BY code
`

func (q *Queries) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := q.db.Query(ctx, listCurrencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Currency
	for rows.Next() {
		i, err := scanCurrency(rows)
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

func scanCurrency(row rowScanner) (Currency, error) {
	var i Currency
	err := row.Scan(&i.ID, &i.Code, &i.Symbol, &i.Rate, &i.CreatedAt)
	return i, err
}

const createRegion = `-- name: CreateRegion :one
INSERT INTO regions (name) VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateRegion(ctx context.Context, name string) (Region, error) {
	row := q.db.QueryRow(ctx, createRegion, name)
	var i Region
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const listRegions = `-- name: ListRegions :many
SELECT id, name, created_at FROM regions ORDER BY name
`

func (q *Queries) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := q.db.Query(ctx, listRegions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Region
	for rows.Next() {
		var i Region
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCountry = `-- name: CreateCountry :one
INSERT INTO countries (code, name, currency_id, region_id, vat_rate, vat_required)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, code, name, currency_id, region_id, vat_rate, vat_required, created_at
`

type CreateCountryParams struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	CurrencyID  pgtype.UUID    `json:"currency_id"`
	RegionID    pgtype.UUID    `json:"region_id"`
	VatRate     pgtype.Numeric `json:"vat_rate"`
	VatRequired bool           `json:"vat_required"`
}

func (q *Queries) CreateCountry(ctx context.Context, arg CreateCountryParams) (Country, error) {
	row := q.db.QueryRow(ctx, createCountry,
		arg.Code,
		arg.Name,
		arg.CurrencyID,
		arg.RegionID,
		arg.VatRate,
		arg.VatRequired,
	)
	return scanCountry(row)
}

const listCountries = `-- name: ListCountries :many
SELECT id, code, name, currency_id, region_id, vat_rate, vat_required, created_at
FROM countries
ORDER BY code
`

func (q *Queries) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := q.db.Query(ctx, listCountries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Country
	for rows.Next() {
		i, err := scanCountry(rows)
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

func scanCountry(row rowScanner) (Country, error) {
	var i Country
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Name,
		&i.CurrencyID,
		&i.RegionID,
		&i.VatRate,
		&i.VatRequired,
		&i.CreatedAt,
	)
	return i, err
}
