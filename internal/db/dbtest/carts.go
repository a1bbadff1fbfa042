package dbtest

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/db"
)

func (m *Memory) CreateCart(_ context.Context, arg db.CreateCartParams) (db.Cart, error) {
	if err := m.begin("CreateCart"); err != nil {
		return db.Cart{}, err
	}
	defer m.mu.Unlock()
	if !arg.CurrencyID.Valid || !exists(m.st.currencies, arg.CurrencyID) {
		return db.Cart{}, fkViolation("carts_currency_id_fkey")
	}
	now := m.stamp()
	c := db.Cart{
		ID:            newID(),
		UserID:        arg.UserID,
		CurrencyID:    arg.CurrencyID,
		VatRate:       arg.VatRate,
		VatReverse:    arg.VatReverse,
		ShipmentPrice: db.Numeric(decimal.Zero),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.st.carts[c.ID.Bytes] = c
	return c, nil
}

func (m *Memory) getCart(arg db.GetCartParams) (db.Cart, error) {
	c, ok := m.st.carts[arg.ID.Bytes]
	if !ok || c.UserID.Bytes != arg.UserID.Bytes {
		return db.Cart{}, errNoRows
	}
	return c, nil
}

func (m *Memory) GetCart(_ context.Context, arg db.GetCartParams) (db.Cart, error) {
	if err := m.begin("GetCart"); err != nil {
		return db.Cart{}, err
	}
	defer m.mu.Unlock()
	return m.getCart(arg)
}

func (m *Memory) GetCartForUpdate(_ context.Context, arg db.GetCartParams) (db.Cart, error) {
	if err := m.begin("GetCartForUpdate"); err != nil {
		return db.Cart{}, err
	}
	defer m.mu.Unlock()
	return m.getCart(arg)
}

func (m *Memory) ListCartsByUser(_ context.Context, arg db.ListCartsByUserParams) ([]db.Cart, error) {
	if err := m.begin("ListCartsByUser"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.Cart
	for _, c := range m.st.carts {
		if c.UserID.Bytes == arg.UserID.Bytes {
			out = append(out, c)
		}
	}
	sortByCreated(out, func(c db.Cart) time.Time { return c.CreatedAt.Time }, func(c db.Cart) pgtype.UUID { return c.ID }, true)
	return page(out, arg.Limit, 0), nil
}

func (m *Memory) ListCartsByAddressForUpdate(_ context.Context, addressID pgtype.UUID) ([]db.Cart, error) {
	if err := m.begin("ListCartsByAddressForUpdate"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.Cart
	for _, c := range m.st.carts {
		if (c.BillingID.Valid && c.BillingID.Bytes == addressID.Bytes) ||
			(c.ShippingID.Valid && c.ShippingID.Bytes == addressID.Bytes) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID.Bytes[:], out[j].ID.Bytes[:]) < 0 })
	return out, nil
}

func (m *Memory) UpdateCartConfiguration(_ context.Context, arg db.UpdateCartConfigurationParams) (db.Cart, error) {
	if err := m.begin("UpdateCartConfiguration"); err != nil {
		return db.Cart{}, err
	}
	defer m.mu.Unlock()
	c, ok := m.st.carts[arg.ID.Bytes]
	if !ok {
		return db.Cart{}, errNoRows
	}
	switch {
	case !exists(m.st.addresses, arg.BillingID):
		return db.Cart{}, fkViolation("carts_billing_id_fkey")
	case !exists(m.st.addresses, arg.ShippingID):
		return db.Cart{}, fkViolation("carts_shipping_id_fkey")
	case !exists(m.st.coupons, arg.CouponID):
		return db.Cart{}, fkViolation("carts_coupon_id_fkey")
	case !exists(m.st.methods, arg.ShipmentMethodID):
		return db.Cart{}, fkViolation("carts_shipment_method_id_fkey")
	case !arg.CurrencyID.Valid || !exists(m.st.currencies, arg.CurrencyID):
		return db.Cart{}, fkViolation("carts_currency_id_fkey")
	}
	if db.Decimal(arg.ShipmentPrice).IsNegative() {
		return db.Cart{}, checkViolation("carts_shipment_price_check")
	}
	c.BillingID = arg.BillingID
	c.ShippingID = arg.ShippingID
	c.CouponID = arg.CouponID
	c.ShipmentMethodID = arg.ShipmentMethodID
	c.CurrencyID = arg.CurrencyID
	c.VatRate = arg.VatRate
	c.VatReverse = arg.VatReverse
	c.ShipmentPrice = arg.ShipmentPrice
	c.UpdatedAt = m.stamp()
	m.st.carts[c.ID.Bytes] = c
	return c, nil
}

func (m *Memory) DeleteCart(_ context.Context, arg db.DeleteCartParams) (int64, error) {
	if err := m.begin("DeleteCart"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	if _, err := m.getCart(db.GetCartParams{ID: arg.ID, UserID: arg.UserID}); err != nil {
		return 0, nil
	}
	delete(m.st.carts, arg.ID.Bytes)
	for id, item := range m.st.cartItems {
		if item.CartID.Bytes == arg.ID.Bytes {
			delete(m.st.cartItems, id)
		}
	}
	return 1, nil
}

func (m *Memory) ListCartItems(_ context.Context, cartID pgtype.UUID) ([]db.ListCartItemsRow, error) {
	if err := m.begin("ListCartItems"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var items []db.CartItem
	for _, item := range m.st.cartItems {
		if item.CartID.Bytes == cartID.Bytes {
			items = append(items, item)
		}
	}
	sortByCreated(items, func(i db.CartItem) time.Time { return i.CreatedAt.Time }, func(i db.CartItem) pgtype.UUID { return i.ID }, false)
	out := make([]db.ListCartItemsRow, 0, len(items))
	for _, item := range items {
		p := m.st.products[item.ProductID.Bytes]
		out = append(out, db.ListCartItemsRow{
			ID:          item.ID,
			CartID:      item.CartID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ProductName: p.Name,
			UnitPrice:   p.UnitPrice,
			CreatedAt:   item.CreatedAt,
		})
	}
	return out, nil
}

func (m *Memory) AddCartItem(_ context.Context, arg db.AddCartItemParams) (db.CartItem, error) {
	if err := m.begin("AddCartItem"); err != nil {
		return db.CartItem{}, err
	}
	defer m.mu.Unlock()
	if !exists(m.st.carts, arg.CartID) {
		return db.CartItem{}, fkViolation("cart_items_cart_id_fkey")
	}
	if !arg.ProductID.Valid || !exists(m.st.products, arg.ProductID) {
		return db.CartItem{}, fkViolation("cart_items_product_id_fkey")
	}
	if arg.Quantity <= 0 {
		return db.CartItem{}, checkViolation("cart_items_quantity_check")
	}
	for id, item := range m.st.cartItems {
		if item.CartID.Bytes == arg.CartID.Bytes && item.ProductID.Bytes == arg.ProductID.Bytes {
			item.Quantity += arg.Quantity
			m.st.cartItems[id] = item
			return item, nil
		}
	}
	item := db.CartItem{ID: newID(), CartID: arg.CartID, ProductID: arg.ProductID, Quantity: arg.Quantity, CreatedAt: m.stamp()}
	m.st.cartItems[item.ID.Bytes] = item
	return item, nil
}

func (m *Memory) UpdateCartItemQuantity(_ context.Context, arg db.UpdateCartItemQuantityParams) (db.CartItem, error) {
	if err := m.begin("UpdateCartItemQuantity"); err != nil {
		return db.CartItem{}, err
	}
	defer m.mu.Unlock()
	item, ok := m.st.cartItems[arg.ID.Bytes]
	if !ok || item.CartID.Bytes != arg.CartID.Bytes {
		return db.CartItem{}, errNoRows
	}
	if arg.Quantity <= 0 {
		return db.CartItem{}, checkViolation("cart_items_quantity_check")
	}
	item.Quantity = arg.Quantity
	m.st.cartItems[item.ID.Bytes] = item
	return item, nil
}

func (m *Memory) DeleteCartItem(_ context.Context, arg db.DeleteCartItemParams) (int64, error) {
	if err := m.begin("DeleteCartItem"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	item, ok := m.st.cartItems[arg.ID.Bytes]
	if !ok || item.CartID.Bytes != arg.CartID.Bytes {
		return 0, nil
	}
	delete(m.st.cartItems, arg.ID.Bytes)
	return 1, nil
}
