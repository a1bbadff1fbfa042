package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const addressColumns = `id, user_id, kind, first_name, last_name, email, phone, company, vat,
    address, city, state, zip_code, country_id, created_at, updated_at`

const createAddress = `-- name: CreateAddress :one
INSERT INTO addresses (
    user_id, kind, first_name, last_name, email, phone, company, vat,
    address, city, state, zip_code, country_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + addressColumns

type CreateAddressParams struct {
	UserID    pgtype.UUID `json:"user_id"`
	Kind      AddressKind `json:"kind"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Phone     pgtype.Text `json:"phone"`
	Company   pgtype.Text `json:"company"`
	Vat       pgtype.Text `json:"vat"`
	Address   string      `json:"address"`
	City      string      `json:"city"`
	State     pgtype.Text `json:"state"`
	ZipCode   string      `json:"zip_code"`
	CountryID pgtype.UUID `json:"country_id"`
}

func (q *Queries) CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, createAddress,
		arg.UserID,
		arg.Kind,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.Vat,
		arg.Address,
		arg.City,
		arg.State,
		arg.ZipCode,
		arg.CountryID,
	)
	return scanAddress(row)
}

const getAddress = `-- name: GetAddress :one
SELECT ` + addressColumns + `
FROM addresses
WHERE id = $1 AND user_id = $2 AND kind = $3
`

type GetAddressParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
	Kind   AddressKind `json:"kind"`
}

func (q *Queries) GetAddress(ctx context.Context, arg GetAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, getAddress, arg.ID, arg.UserID, arg.Kind)
	return scanAddress(row)
}

const getAddressForUpdate = getAddress + `FOR UPDATE
`

func (q *Queries) GetAddressForUpdate(ctx context.Context, arg GetAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, getAddressForUpdate, arg.ID, arg.UserID, arg.Kind)
	return scanAddress(row)
}

const listAddresses = `-- name: ListAddresses :many
SELECT ` + addressColumns + `
FROM addresses
WHERE user_id = $1 AND kind = $2
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4
`

type ListAddressesParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Kind   AddressKind `json:"kind"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListAddresses(ctx context.Context, arg ListAddressesParams) ([]Address, error) {
	rows, err := q.db.Query(ctx, listAddresses, arg.UserID, arg.Kind, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Address
	for rows.Next() {
		i, err := scanAddress(rows)
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

const countAddresses = `-- name: CountAddresses :one
SELECT count(*) FROM addresses WHERE user_id = $1 AND kind = $2
`

type CountAddressesParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Kind   AddressKind `json:"kind"`
}

func (q *Queries) CountAddresses(ctx context.Context, arg CountAddressesParams) (int64, error) {
	row := q.db.QueryRow(ctx, countAddresses, arg.UserID, arg.Kind)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateAddress = `-- name: UpdateAddress :one
UPDATE addresses
SET first_name = $2,
    last_name = $3,
    email = $4,
    phone = $5,
    company = $6,
    vat = $7,
    address = $8,
    city = $9,
    state = $10,
    zip_code = $11,
    country_id = $12,
    updated_at = now()
WHERE id = $1
RETURNING ` + addressColumns

type UpdateAddressParams struct {
	ID        pgtype.UUID `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Phone     pgtype.Text `json:"phone"`
	Company   pgtype.Text `json:"company"`
	Vat       pgtype.Text `json:"vat"`
	Address   string      `json:"address"`
	City      string      `json:"city"`
	State     pgtype.Text `json:"state"`
	ZipCode   string      `json:"zip_code"`
	CountryID pgtype.UUID `json:"country_id"`
}

func (q *Queries) UpdateAddress(ctx context.Context, arg UpdateAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, updateAddress,
		arg.ID,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.Vat,
		arg.Address,
		arg.City,
		arg.State,
		arg.ZipCode,
		arg.CountryID,
	)
	return scanAddress(row)
}

const addressHasOrders = `-- name: AddressHasOrders :one
SELECT EXISTS (
    SELECT 1 FROM orders WHERE billing_id = $1 OR shipping_id = $1
)
`

func (q *Queries) AddressHasOrders(ctx context.Context, addressID pgtype.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, addressHasOrders, addressID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

func scanAddress(row rowScanner) (Address, error) {
	var i Address
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Kind,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.Phone,
		&i.Company,
		&i.Vat,
		&i.Address,
		&i.City,
		&i.State,
		&i.ZipCode,
		&i.CountryID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
