package db

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

type EntityState string

const (
	EntityStateActive   EntityState = "active"
	EntityStateInactive EntityState = "inactive"
	EntityStateDeleted  EntityState = "deleted"
)

func (e *EntityState) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = EntityState(s)
	case string:
		*e = EntityState(s)
	default:
		return fmt.Errorf("unsupported scan type for EntityState: %T", src)
	}
	return nil
}

type AddressKind string

const (
	AddressKindBilling  AddressKind = "billing"
	AddressKindShipping AddressKind = "shipping"
)

func (e *AddressKind) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = AddressKind(s)
	case string:
		*e = AddressKind(s)
	default:
		return fmt.Errorf("unsupported scan type for AddressKind: %T", src)
	}
	return nil
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type Address struct {
	ID        pgtype.UUID        `json:"id"`
	UserID    pgtype.UUID        `json:"user_id"`
	Kind      AddressKind        `json:"kind"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Email     string             `json:"email"`
	Phone     pgtype.Text        `json:"phone"`
	Company   pgtype.Text        `json:"company"`
	Vat       pgtype.Text        `json:"vat"`
	Address   string             `json:"address"`
	City      string             `json:"city"`
	State     pgtype.Text        `json:"state"`
	ZipCode   string             `json:"zip_code"`
	CountryID pgtype.UUID        `json:"country_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type AppSetting struct {
	ID        int16              `json:"id"`
	Banner    pgtype.Text        `json:"banner"`
	CachedAt  pgtype.Timestamptz `json:"cached_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Cart struct {
	ID               pgtype.UUID        `json:"id"`
	UserID           pgtype.UUID        `json:"user_id"`
	BillingID        pgtype.UUID        `json:"billing_id"`
	ShippingID       pgtype.UUID        `json:"shipping_id"`
	CouponID         pgtype.UUID        `json:"coupon_id"`
	ShipmentMethodID pgtype.UUID        `json:"shipment_method_id"`
	CurrencyID       pgtype.UUID        `json:"currency_id"`
	VatRate          pgtype.Numeric     `json:"vat_rate"`
	VatReverse       bool               `json:"vat_reverse"`
	ShipmentPrice    pgtype.Numeric     `json:"shipment_price"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type CartItem struct {
	ID        pgtype.UUID        `json:"id"`
	CartID    pgtype.UUID        `json:"cart_id"`
	ProductID pgtype.UUID        `json:"product_id"`
	Quantity  int32              `json:"quantity"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Country struct {
	ID          pgtype.UUID        `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	CurrencyID  pgtype.UUID        `json:"currency_id"`
	RegionID    pgtype.UUID        `json:"region_id"`
	VatRate     pgtype.Numeric     `json:"vat_rate"`
	VatRequired bool               `json:"vat_required"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type Coupon struct {
	ID        pgtype.UUID        `json:"id"`
	Code      string             `json:"code"`
	Rate      pgtype.Numeric     `json:"rate"`
	Amount    pgtype.Numeric     `json:"amount"`
	State     EntityState        `json:"state"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Currency struct {
	ID        pgtype.UUID        `json:"id"`
	Code      string             `json:"code"`
	Symbol    string             `json:"symbol"`
	Rate      pgtype.Numeric     `json:"rate"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type DomainEvent struct {
	ID          pgtype.UUID        `json:"id"`
	Topic       string             `json:"topic"`
	AggregateID pgtype.UUID        `json:"aggregate_id"`
	Payload     []byte             `json:"payload"`
	OccurredAt  pgtype.Timestamptz `json:"occurred_at"`
}

type Order struct {
	ID             pgtype.UUID        `json:"id"`
	UserID         pgtype.UUID        `json:"user_id"`
	BillingID      pgtype.UUID        `json:"billing_id"`
	ShippingID     pgtype.UUID        `json:"shipping_id"`
	CurrencyCode   string             `json:"currency_code"`
	CurrencyRate   pgtype.Numeric     `json:"currency_rate"`
	CouponCode     pgtype.Text        `json:"coupon_code"`
	ShipmentMethod pgtype.Text        `json:"shipment_method"`
	VatRate        pgtype.Numeric     `json:"vat_rate"`
	VatReverse     bool               `json:"vat_reverse"`
	VatNumber      pgtype.Text        `json:"vat_number"`
	SubtotalPrice  pgtype.Numeric     `json:"subtotal_price"`
	DiscountPrice  pgtype.Numeric     `json:"discount_price"`
	ShipmentPrice  pgtype.Numeric     `json:"shipment_price"`
	VatAmount      pgtype.Numeric     `json:"vat_amount"`
	TotalPrice     pgtype.Numeric     `json:"total_price"`
	Status         OrderStatus        `json:"status"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type OrderLine struct {
	ID          pgtype.UUID    `json:"id"`
	OrderID     pgtype.UUID    `json:"order_id"`
	ProductID   pgtype.UUID    `json:"product_id"`
	ProductName string         `json:"product_name"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	LineTotal   pgtype.Numeric `json:"line_total"`
}

type Product struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	UnitPrice pgtype.Numeric     `json:"unit_price"`
	State     EntityState        `json:"state"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Region struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type ShipmentMethod struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	UnitPrice pgtype.Numeric     `json:"unit_price"`
	CountryID pgtype.UUID        `json:"country_id"`
	RegionID  pgtype.UUID        `json:"region_id"`
	State     EntityState        `json:"state"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
