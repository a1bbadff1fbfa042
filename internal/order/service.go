// Package order turns a priced cart into an immutable order and drives the
// order status lifecycle.
package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/obs"
	"github.com/noah-isme/backend-storefront/internal/pricing"
	"github.com/noah-isme/backend-storefront/internal/vat"
)

var (
	// ErrNotFound covers missing orders and orders owned by someone else.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

// CreateInput identifies the cart to check out.
type CreateInput struct {
	CartID uuid.UUID `json:"cart_id" validate:"required"`
}

// StatusInput is the admin status change payload.
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// LineView is the JSON shape of an order line.
type LineView struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	LineTotal   string    `json:"line_total"`
}

// View is the JSON shape of an order.
type View struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	BillingID      uuid.UUID  `json:"billing_id"`
	ShippingID     *uuid.UUID `json:"shipping_id"`
	Status         string     `json:"status"`
	CurrencyCode   string     `json:"currency_code"`
	CurrencyRate   string     `json:"currency_rate"`
	CouponCode     *string    `json:"coupon_code"`
	ShipmentMethod *string    `json:"shipment_method"`
	VATRate        string     `json:"vat_rate"`
	VATReverse     bool       `json:"vat_reverse"`
	VATNumber      *string    `json:"vat_number"`
	SubtotalPrice  string     `json:"subtotal_price"`
	DiscountPrice  string     `json:"discount_price"`
	ShipmentPrice  string     `json:"shipment_price"`
	VATAmount      string     `json:"vat_amount"`
	TotalPrice     string     `json:"total_price"`
	Lines          []LineView `json:"lines,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toView(o db.Order, lines []db.OrderLine) View {
	v := View{
		ID:             db.UUIDValue(o.ID),
		UserID:         db.UUIDValue(o.UserID),
		BillingID:      db.UUIDValue(o.BillingID),
		ShippingID:     db.UUIDPtr(o.ShippingID),
		Status:         string(o.Status),
		CurrencyCode:   o.CurrencyCode,
		CurrencyRate:   db.Decimal(o.CurrencyRate).String(),
		CouponCode:     db.TextPtr(o.CouponCode),
		ShipmentMethod: db.TextPtr(o.ShipmentMethod),
		VATRate:        db.Decimal(o.VatRate).String(),
		VATReverse:     o.VatReverse,
		VATNumber:      db.TextPtr(o.VatNumber),
		SubtotalPrice:  pricing.Format(db.Decimal(o.SubtotalPrice)),
		DiscountPrice:  pricing.Format(db.Decimal(o.DiscountPrice)),
		ShipmentPrice:  pricing.Format(db.Decimal(o.ShipmentPrice)),
		VATAmount:      pricing.Format(db.Decimal(o.VatAmount)),
		TotalPrice:     pricing.Format(db.Decimal(o.TotalPrice)),
		CreatedAt:      o.CreatedAt.Time,
		UpdatedAt:      o.UpdatedAt.Time,
	}
	for _, l := range lines {
		v.Lines = append(v.Lines, LineView{
			ProductID:   db.UUIDValue(l.ProductID),
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   pricing.Format(db.Decimal(l.UnitPrice)),
			LineTotal:   pricing.Format(db.Decimal(l.LineTotal)),
		})
	}
	return v
}

// Service encapsulates order operations.
type Service struct {
	Store db.Store
	Geo   cart.Directory
	Bus   *events.Bus
}

// NewService constructs a Service.
func NewService(store db.Store, dir cart.Directory, bus *events.Bus) *Service {
	return &Service{Store: store, Geo: dir, Bus: bus}
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Geo == nil {
		return errors.New("order service not configured")
	}
	return nil
}

func notFound() error {
	return common.NotFound("order not found", ErrNotFound)
}

// Create checks out the caller's cart: totals, lines and references are
// frozen onto a new order and the cart is removed.
func (s *Service) Create(ctx context.Context, user uuid.UUID, in CreateInput) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	if err := common.ValidateStruct(in); err != nil {
		return View{}, err
	}
	ctx, span := obs.StartSpan(ctx, "order.create")
	defer span.End()

	var (
		out   db.Order
		lines []db.OrderLine
		ev    db.DomainEvent
	)
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		c, err := q.GetCartForUpdate(ctx, db.GetCartParams{ID: db.UUID(in.CartID), UserID: db.UUID(user)})
		if err != nil {
			if db.IsNotFound(err) {
				return common.NotFound("cart not found", cart.ErrNotFound)
			}
			return fmt.Errorf("lock cart: %w", err)
		}
		if !c.BillingID.Valid {
			return common.Validation("a billing address is required to place an order", nil).
				WithDetails(map[string]string{"billing_id": "required"})
		}
		billing, err := q.GetAddress(ctx, db.GetAddressParams{ID: c.BillingID, UserID: c.UserID, Kind: db.AddressKindBilling})
		if err != nil {
			if db.IsNotFound(err) {
				return common.NotFound("billing address not found", cart.ErrAddressNotFound)
			}
			return fmt.Errorf("load billing address: %w", err)
		}
		vatNumber, err := s.businessVATNumber(ctx, billing)
		if err != nil {
			return err
		}

		priced, err := cart.Price(ctx, q, s.Geo, c)
		if err != nil {
			return err
		}
		if priced.Summary.ItemsCount == 0 {
			return common.Validation("cart is empty", nil).WithDetails(map[string]string{"items": "required"})
		}
		var couponCode pgtype.Text
		if priced.Coupon != nil && priced.Coupon.State == db.EntityStateActive {
			couponCode = db.Text(priced.Coupon.Code)
		}
		var methodName pgtype.Text
		if c.ShipmentMethodID.Valid {
			m, err := q.GetShipmentMethod(ctx, c.ShipmentMethodID)
			if err != nil && !db.IsNotFound(err) {
				return fmt.Errorf("load shipment method: %w", err)
			}
			methodName = db.Text(m.Name)
		}

		sum := priced.Summary
		out, err = q.CreateOrder(ctx, db.CreateOrderParams{
			UserID:         c.UserID,
			BillingID:      c.BillingID,
			ShippingID:     c.ShippingID,
			CurrencyCode:   priced.Currency.Code,
			CurrencyRate:   db.Numeric(priced.Currency.Rate),
			CouponCode:     couponCode,
			ShipmentMethod: methodName,
			VatRate:        db.Numeric(sum.VATRate),
			VatReverse:     sum.VATReverse,
			VatNumber:      db.Text(vatNumber),
			SubtotalPrice:  db.Numeric(sum.Subtotal),
			DiscountPrice:  db.Numeric(sum.Discount),
			ShipmentPrice:  db.Numeric(sum.Shipment),
			VatAmount:      db.Numeric(sum.VATAmount),
			TotalPrice:     db.Numeric(sum.Total),
		})
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return common.Conflict("REFERENCE_CONFLICT", "a referenced record no longer exists", err)
			}
			return fmt.Errorf("create order: %w", err)
		}
		for _, l := range priced.Lines {
			line, err := q.CreateOrderLine(ctx, db.CreateOrderLineParams{
				OrderID:     out.ID,
				ProductID:   db.UUID(l.ProductID),
				ProductName: l.ProductName,
				UnitPrice:   db.Numeric(l.UnitPrice),
				Quantity:    int32(l.Quantity),
				LineTotal:   db.Numeric(l.LineTotal),
			})
			if err != nil {
				return fmt.Errorf("create order line: %w", err)
			}
			lines = append(lines, line)
		}
		if _, err := q.DeleteCart(ctx, db.DeleteCartParams{ID: c.ID, UserID: c.UserID}); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		ev, err = s.Bus.Record(ctx, q, events.TopicOrderCreated, out.ID, events.OrderCreated{
			OrderID:      db.UUIDValue(out.ID).String(),
			UserID:       user.String(),
			Email:        billing.Email,
			CurrencyCode: out.CurrencyCode,
			TotalPrice:   pricing.Format(sum.Total),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return View{}, err
	}
	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.Inc()
	}
	zerolog.Ctx(ctx).Info().
		Str("order_id", db.UUIDValue(out.ID).String()).
		Str("total", pricing.Format(db.Decimal(out.TotalPrice))).
		Str("currency", out.CurrencyCode).
		Msg("order created")
	_ = s.Bus.Publish(ctx, ev)
	return toView(out, lines), nil
}

// businessVATNumber returns the normalized VAT id of a business billing
// address, or "" for individuals.
func (s *Service) businessVATNumber(ctx context.Context, billing db.Address) (string, error) {
	if !billing.Company.Valid || strings.TrimSpace(billing.Company.String) == "" {
		return "", nil
	}
	snap, err := s.Geo.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("load geo directory: %w", err)
	}
	country, ok := snap.CountryByID(db.UUIDValue(billing.CountryID))
	if !ok {
		return "", cart.ConfigurationError(fmt.Errorf("country %s", db.UUIDValue(billing.CountryID)))
	}
	if err := vat.ValidateNumber(country.Code, billing.Vat.String); err != nil {
		return "", common.NewAppError("INVALID_VAT_NUMBER", "business billing address needs a valid VAT number", http.StatusBadRequest, err).
			WithDetails(map[string]string{"vat": "format"})
	}
	return vat.NormalizeNumber(billing.Vat.String), nil
}

// Get returns one of the caller's orders with its lines.
func (s *Service) Get(ctx context.Context, user, id uuid.UUID) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	o, err := s.Store.GetOrder(ctx, db.GetOrderParams{ID: db.UUID(id), UserID: db.UUID(user)})
	if err != nil {
		if db.IsNotFound(err) {
			return View{}, notFound()
		}
		return View{}, fmt.Errorf("get order: %w", err)
	}
	lines, err := s.Store.ListOrderLines(ctx, o.ID)
	if err != nil {
		return View{}, fmt.Errorf("list order lines: %w", err)
	}
	return toView(o, lines), nil
}

// List returns a page of the caller's orders, newest first, without lines.
func (s *Service) List(ctx context.Context, user uuid.UUID, page, perPage int) ([]View, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 {
		perPage = 20
	}
	total, err := s.Store.CountOrdersByUser(ctx, db.UUID(user))
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Store.ListOrdersByUser(ctx, db.ListOrdersByUserParams{
		UserID: db.UUID(user),
		Limit:  int32(perPage),
		Offset: int32(common.Offset(page, perPage)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, o := range rows {
		out = append(out, toView(o, nil))
	}
	return out, total, nil
}

// UpdateStatus moves an order through its lifecycle on behalf of an admin.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, in StatusInput) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	if err := common.ValidateStruct(in); err != nil {
		return View{}, err
	}
	target, ok := ParseStatus(in.Status)
	if !ok {
		return View{}, common.Validation("unsupported status", nil).WithDetails(map[string]string{"status": "oneof"})
	}

	var (
		from db.OrderStatus
		out  db.Order
		ev   db.DomainEvent
	)
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		current, err := q.GetOrderForUpdate(ctx, db.UUID(id))
		if err != nil {
			if db.IsNotFound(err) {
				return notFound()
			}
			return fmt.Errorf("lock order: %w", err)
		}
		from = current.Status
		if !CanTransition(current.Status, target) {
			return common.Conflict("INVALID_STATE", fmt.Sprintf("cannot move order from %s to %s", current.Status, target), ErrInvalidTransition)
		}
		out, err = q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: current.ID, Status: target})
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		var email string
		if billing, err := q.GetAddress(ctx, db.GetAddressParams{ID: out.BillingID, UserID: out.UserID, Kind: db.AddressKindBilling}); err == nil {
			email = billing.Email
		} else if !db.IsNotFound(err) {
			return fmt.Errorf("load billing address: %w", err)
		}
		ev, err = s.Bus.Record(ctx, q, events.TopicOrderStatusChanged, out.ID, events.OrderStatusChanged{
			OrderID: db.UUIDValue(out.ID).String(),
			Email:   email,
			From:    string(from),
			To:      string(target),
		})
		return err
	})
	if err != nil {
		return View{}, err
	}
	if obs.OrderStatusTransitions != nil {
		obs.OrderStatusTransitions.WithLabelValues(string(from), string(target)).Inc()
	}
	_ = s.Bus.Publish(ctx, ev)
	return toView(out, nil), nil
}
