package dbtest

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/db"
)

func (m *Memory) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	if err := m.begin("CreateOrder"); err != nil {
		return db.Order{}, err
	}
	defer m.mu.Unlock()
	if !arg.BillingID.Valid || !exists(m.st.addresses, arg.BillingID) {
		return db.Order{}, fkViolation("orders_billing_id_fkey")
	}
	if !exists(m.st.addresses, arg.ShippingID) {
		return db.Order{}, fkViolation("orders_shipping_id_fkey")
	}
	now := m.stamp()
	o := db.Order{
		ID:             newID(),
		UserID:         arg.UserID,
		BillingID:      arg.BillingID,
		ShippingID:     arg.ShippingID,
		CurrencyCode:   arg.CurrencyCode,
		CurrencyRate:   arg.CurrencyRate,
		CouponCode:     arg.CouponCode,
		ShipmentMethod: arg.ShipmentMethod,
		VatRate:        arg.VatRate,
		VatReverse:     arg.VatReverse,
		VatNumber:      arg.VatNumber,
		SubtotalPrice:  arg.SubtotalPrice,
		DiscountPrice:  arg.DiscountPrice,
		ShipmentPrice:  arg.ShipmentPrice,
		VatAmount:      arg.VatAmount,
		TotalPrice:     arg.TotalPrice,
		Status:         db.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.st.orders[o.ID.Bytes] = o
	return o, nil
}

func (m *Memory) CreateOrderLine(_ context.Context, arg db.CreateOrderLineParams) (db.OrderLine, error) {
	if err := m.begin("CreateOrderLine"); err != nil {
		return db.OrderLine{}, err
	}
	defer m.mu.Unlock()
	if !exists(m.st.orders, arg.OrderID) {
		return db.OrderLine{}, fkViolation("order_lines_order_id_fkey")
	}
	line := db.OrderLine{
		ID:          newID(),
		OrderID:     arg.OrderID,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		UnitPrice:   arg.UnitPrice,
		Quantity:    arg.Quantity,
		LineTotal:   arg.LineTotal,
	}
	m.st.orderLines[line.ID.Bytes] = line
	return line, nil
}

func (m *Memory) GetOrder(_ context.Context, arg db.GetOrderParams) (db.Order, error) {
	if err := m.begin("GetOrder"); err != nil {
		return db.Order{}, err
	}
	defer m.mu.Unlock()
	o, ok := m.st.orders[arg.ID.Bytes]
	if !ok || o.UserID.Bytes != arg.UserID.Bytes {
		return db.Order{}, errNoRows
	}
	return o, nil
}

func (m *Memory) GetOrderForUpdate(_ context.Context, id pgtype.UUID) (db.Order, error) {
	if err := m.begin("GetOrderForUpdate"); err != nil {
		return db.Order{}, err
	}
	defer m.mu.Unlock()
	o, ok := m.st.orders[id.Bytes]
	if !ok {
		return db.Order{}, errNoRows
	}
	return o, nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error) {
	if err := m.begin("ListOrdersByUser"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.Order
	for _, o := range m.st.orders {
		if o.UserID.Bytes == arg.UserID.Bytes {
			out = append(out, o)
		}
	}
	sortByCreated(out, func(o db.Order) time.Time { return o.CreatedAt.Time }, func(o db.Order) pgtype.UUID { return o.ID }, true)
	return page(out, arg.Limit, arg.Offset), nil
}

func (m *Memory) CountOrdersByUser(_ context.Context, userID pgtype.UUID) (int64, error) {
	if err := m.begin("CountOrdersByUser"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.st.orders {
		if o.UserID.Bytes == userID.Bytes {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListOrderLines(_ context.Context, orderID pgtype.UUID) ([]db.OrderLine, error) {
	if err := m.begin("ListOrderLines"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.OrderLine
	for _, l := range m.st.orderLines {
		if l.OrderID.Bytes == orderID.Bytes {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return bytes.Compare(out[i].ID.Bytes[:], out[j].ID.Bytes[:]) < 0
	})
	return out, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, arg db.UpdateOrderStatusParams) (db.Order, error) {
	if err := m.begin("UpdateOrderStatus"); err != nil {
		return db.Order{}, err
	}
	defer m.mu.Unlock()
	o, ok := m.st.orders[arg.ID.Bytes]
	if !ok {
		return db.Order{}, errNoRows
	}
	o.Status = arg.Status
	o.UpdatedAt = m.stamp()
	m.st.orders[o.ID.Bytes] = o
	return o, nil
}
