package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	AddCartItem(ctx context.Context, arg AddCartItemParams) (CartItem, error)
	AddressHasOrders(ctx context.Context, addressID pgtype.UUID) (bool, error)
	CountAddresses(ctx context.Context, arg CountAddressesParams) (int64, error)
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error)
	CreateCart(ctx context.Context, arg CreateCartParams) (Cart, error)
	CreateCountry(ctx context.Context, arg CreateCountryParams) (Country, error)
	CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error)
	CreateCurrency(ctx context.Context, arg CreateCurrencyParams) (Currency, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error)
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	CreateRegion(ctx context.Context, name string) (Region, error)
	CreateShipmentMethod(ctx context.Context, arg CreateShipmentMethodParams) (ShipmentMethod, error)
	DeleteCart(ctx context.Context, arg DeleteCartParams) (int64, error)
	DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error)
	GetActiveCouponByCode(ctx context.Context, code string) (Coupon, error)
	GetAddress(ctx context.Context, arg GetAddressParams) (Address, error)
	GetAddressForUpdate(ctx context.Context, arg GetAddressParams) (Address, error)
	GetAppSettings(ctx context.Context) (AppSetting, error)
	GetCart(ctx context.Context, arg GetCartParams) (Cart, error)
	GetCartForUpdate(ctx context.Context, arg GetCartParams) (Cart, error)
	GetCoupon(ctx context.Context, id pgtype.UUID) (Coupon, error)
	GetOrder(ctx context.Context, arg GetOrderParams) (Order, error)
	GetOrderForUpdate(ctx context.Context, id pgtype.UUID) (Order, error)
	GetProduct(ctx context.Context, id pgtype.UUID) (Product, error)
	GetShipmentMethod(ctx context.Context, id pgtype.UUID) (ShipmentMethod, error)
	InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error)
	ListAddresses(ctx context.Context, arg ListAddressesParams) ([]Address, error)
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]ListCartItemsRow, error)
	ListCartsByAddressForUpdate(ctx context.Context, addressID pgtype.UUID) ([]Cart, error)
	ListCartsByUser(ctx context.Context, arg ListCartsByUserParams) ([]Cart, error)
	ListCountries(ctx context.Context) ([]Country, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	ListEligibleShipmentMethods(ctx context.Context, arg ListEligibleShipmentMethodsParams) ([]ShipmentMethod, error)
	ListOrderLines(ctx context.Context, orderID pgtype.UUID) ([]OrderLine, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	ListRegions(ctx context.Context) ([]Region, error)
	UpdateAddress(ctx context.Context, arg UpdateAddressParams) (Address, error)
	UpdateAppSettings(ctx context.Context, arg UpdateAppSettingsParams) (AppSetting, error)
	UpdateCartConfiguration(ctx context.Context, arg UpdateCartConfigurationParams) (Cart, error)
	UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
}

var _ Querier = (*Queries)(nil)
