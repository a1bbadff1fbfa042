package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const cartColumns = `id, user_id, billing_id, shipping_id, coupon_id, shipment_method_id, currency_id,
    vat_rate, vat_reverse, shipment_price, created_at, updated_at`

const createCart = `-- name: CreateCart :one
INSERT INTO carts (user_id, currency_id, vat_rate, vat_reverse)
VALUES ($1, $2, $3, $4)
RETURNING ` + cartColumns

type CreateCartParams struct {
	UserID     pgtype.UUID    `json:"user_id"`
	CurrencyID pgtype.UUID    `json:"currency_id"`
	VatRate    pgtype.Numeric `json:"vat_rate"`
	VatReverse bool           `json:"vat_reverse"`
}

func (q *Queries) CreateCart(ctx context.Context, arg CreateCartParams) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, arg.UserID, arg.CurrencyID, arg.VatRate, arg.VatReverse)
	return scanCart(row)
}

const getCart = `-- name: GetCart :one
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1 AND user_id = $2
`

type GetCartParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) GetCart(ctx context.Context, arg GetCartParams) (Cart, error) {
	row := q.db.QueryRow(ctx, getCart, arg.ID, arg.UserID)
	return scanCart(row)
}

const getCartForUpdate = getCart + `FOR UPDATE
`

func (q *Queries) GetCartForUpdate(ctx context.Context, arg GetCartParams) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartForUpdate, arg.ID, arg.UserID)
	return scanCart(row)
}

const listCartsByUser = `-- name: ListCartsByUser :many
SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2
`

type ListCartsByUserParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Limit  int32       `json:"limit"`
}

func (q *Queries) ListCartsByUser(ctx context.Context, arg ListCartsByUserParams) ([]Cart, error) {
	rows, err := q.db.Query(ctx, listCartsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCarts(rows)
}

// Rows are locked in id order so concurrent fan-outs cannot deadlock.
const listCartsByAddressForUpdate = `-- name: ListCartsByAddressForUpdate :many
SELECT ` + cartColumns + `
FROM carts
WHERE billing_id = $1 OR shipping_id = $1
ORDER BY id
FOR UPDATE
`

func (q *Queries) ListCartsByAddressForUpdate(ctx context.Context, addressID pgtype.UUID) ([]Cart, error) {
	rows, err := q.db.Query(ctx, listCartsByAddressForUpdate, addressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCarts(rows)
}

const updateCartConfiguration = `-- name: UpdateCartConfiguration :one
UPDATE carts
SET billing_id = $2,
    shipping_id = $3,
    coupon_id = $4,
    shipment_method_id = $5,
    currency_id = $6,
    vat_rate = $7,
    vat_reverse = $8,
    shipment_price = $9,
    updated_at = now()
WHERE id = $1
RETURNING ` + cartColumns

type UpdateCartConfigurationParams struct {
	ID               pgtype.UUID    `json:"id"`
	BillingID        pgtype.UUID    `json:"billing_id"`
	ShippingID       pgtype.UUID    `json:"shipping_id"`
	CouponID         pgtype.UUID    `json:"coupon_id"`
	ShipmentMethodID pgtype.UUID    `json:"shipment_method_id"`
	CurrencyID       pgtype.UUID    `json:"currency_id"`
	VatRate          pgtype.Numeric `json:"vat_rate"`
	VatReverse       bool           `json:"vat_reverse"`
	ShipmentPrice    pgtype.Numeric `json:"shipment_price"`
}

func (q *Queries) UpdateCartConfiguration(ctx context.Context, arg UpdateCartConfigurationParams) (Cart, error) {
	row := q.db.QueryRow(ctx, updateCartConfiguration,
		arg.ID,
		arg.BillingID,
		arg.ShippingID,
		arg.CouponID,
		arg.ShipmentMethodID,
		arg.CurrencyID,
		arg.VatRate,
		arg.VatReverse,
		arg.ShipmentPrice,
	)
	return scanCart(row)
}

const deleteCart = `-- name: DeleteCart :execrows
DELETE FROM carts WHERE id = $1 AND user_id = $2
`

type DeleteCartParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) DeleteCart(ctx context.Context, arg DeleteCartParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCart, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listCartItems = `-- name: ListCartItems :many
SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, p.name, p.unit_price, ci.created_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id
`

type ListCartItemsRow struct {
	ID          pgtype.UUID        `json:"id"`
	CartID      pgtype.UUID        `json:"cart_id"`
	ProductID   pgtype.UUID        `json:"product_id"`
	Quantity    int32              `json:"quantity"`
	ProductName string             `json:"product_name"`
	UnitPrice   pgtype.Numeric     `json:"unit_price"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]ListCartItemsRow, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCartItemsRow
	for rows.Next() {
		var i ListCartItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.ProductID,
			&i.Quantity,
			&i.ProductName,
			&i.UnitPrice,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const addCartItem = `-- name: AddCartItem :one
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING id, cart_id, product_id, quantity, created_at
`

type AddCartItemParams struct {
	CartID    pgtype.UUID `json:"cart_id"`
	ProductID pgtype.UUID `json:"product_id"`
	Quantity  int32       `json:"quantity"`
}

func (q *Queries) AddCartItem(ctx context.Context, arg AddCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, addCartItem, arg.CartID, arg.ProductID, arg.Quantity)
	var i CartItem
	err := row.Scan(&i.ID, &i.CartID, &i.ProductID, &i.Quantity, &i.CreatedAt)
	return i, err
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items SET quantity = $3
WHERE id = $1 AND cart_id = $2
RETURNING id, cart_id, product_id, quantity, created_at
`

type UpdateCartItemQuantityParams struct {
	ID       pgtype.UUID `json:"id"`
	CartID   pgtype.UUID `json:"cart_id"`
	Quantity int32       `json:"quantity"`
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.CartID, arg.Quantity)
	var i CartItem
	err := row.Scan(&i.ID, &i.CartID, &i.ProductID, &i.Quantity, &i.CreatedAt)
	return i, err
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     pgtype.UUID `json:"id"`
	CartID pgtype.UUID `json:"cart_id"`
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type cartRows interface {
	rowScanner
	Next() bool
	Err() error
}

func collectCarts(rows cartRows) ([]Cart, error) {
	var items []Cart
	for rows.Next() {
		i, err := scanCart(rows)
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

func scanCart(row rowScanner) (Cart, error) {
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.BillingID,
		&i.ShippingID,
		&i.CouponID,
		&i.ShipmentMethodID,
		&i.CurrencyID,
		&i.VatRate,
		&i.VatReverse,
		&i.ShipmentPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
