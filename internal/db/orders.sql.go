package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, billing_id, shipping_id, currency_code, currency_rate, coupon_code,
    shipment_method, vat_rate, vat_reverse, vat_number, subtotal_price, discount_price, shipment_price,
    vat_amount, total_price, status, created_at, updated_at`

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    user_id, billing_id, shipping_id, currency_code, currency_rate, coupon_code, shipment_method,
    vat_rate, vat_reverse, vat_number, subtotal_price, discount_price, shipment_price, vat_amount, total_price
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID         pgtype.UUID    `json:"user_id"`
	BillingID      pgtype.UUID    `json:"billing_id"`
	ShippingID     pgtype.UUID    `json:"shipping_id"`
	CurrencyCode   string         `json:"currency_code"`
	CurrencyRate   pgtype.Numeric `json:"currency_rate"`
	CouponCode     pgtype.Text    `json:"coupon_code"`
	ShipmentMethod pgtype.Text    `json:"shipment_method"`
	VatRate        pgtype.Numeric `json:"vat_rate"`
	VatReverse     bool           `json:"vat_reverse"`
	VatNumber      pgtype.Text    `json:"vat_number"`
	SubtotalPrice  pgtype.Numeric `json:"subtotal_price"`
	DiscountPrice  pgtype.Numeric `json:"discount_price"`
	ShipmentPrice  pgtype.Numeric `json:"shipment_price"`
	VatAmount      pgtype.Numeric `json:"vat_amount"`
	TotalPrice     pgtype.Numeric `json:"total_price"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.BillingID,
		arg.ShippingID,
		arg.CurrencyCode,
		arg.CurrencyRate,
		arg.CouponCode,
		arg.ShipmentMethod,
		arg.VatRate,
		arg.VatReverse,
		arg.VatNumber,
		arg.SubtotalPrice,
		arg.DiscountPrice,
		arg.ShipmentPrice,
		arg.VatAmount,
		arg.TotalPrice,
	)
	return scanOrder(row)
}

const createOrderLine = `-- name: CreateOrderLine :one
INSERT INTO order_lines (order_id, product_id, product_name, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, product_name, unit_price, quantity, line_total
`

type CreateOrderLineParams struct {
	OrderID     pgtype.UUID    `json:"order_id"`
	ProductID   pgtype.UUID    `json:"product_id"`
	ProductName string         `json:"product_name"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	LineTotal   pgtype.Numeric `json:"line_total"`
}

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	row := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID,
		arg.ProductID,
		arg.ProductName,
		arg.UnitPrice,
		arg.Quantity,
		arg.LineTotal,
	)
	return scanOrderLine(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND user_id = $2
`

type GetOrderParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.UserID)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`

type ListOrdersByUserParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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

const countOrdersByUser = `-- name: CountOrdersByUser :one
SELECT count(*) FROM orders WHERE user_id = $1
`

func (q *Queries) CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total
FROM order_lines
WHERE order_id = $1
ORDER BY product_name, id
`

func (q *Queries) ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		i, err := scanOrderLine(rows)
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID `json:"id"`
	Status OrderStatus `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	return scanOrder(row)
}

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.BillingID,
		&i.ShippingID,
		&i.CurrencyCode,
		&i.CurrencyRate,
		&i.CouponCode,
		&i.ShipmentMethod,
		&i.VatRate,
		&i.VatReverse,
		&i.VatNumber,
		&i.SubtotalPrice,
		&i.DiscountPrice,
		&i.ShipmentPrice,
		&i.VatAmount,
		&i.TotalPrice,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanOrderLine(row rowScanner) (OrderLine, error) {
	var i OrderLine
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.UnitPrice,
		&i.Quantity,
		&i.LineTotal,
	)
	return i, err
}
