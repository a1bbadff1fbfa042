package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/db/dbtest"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/geo"
	"github.com/noah-isme/backend-storefront/internal/locale"
	"github.com/noah-isme/backend-storefront/internal/order"
)

var nlLocale = locale.Context{Country: "NL", Currency: "EUR"}

type recorder struct {
	mu  sync.Mutex
	got []db.DomainEvent
}

func (r *recorder) Notify(_ context.Context, ev db.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Topic)
	}
	return out
}

type env struct {
	store  *dbtest.Memory
	fx     dbtest.Fixture
	carts  *cart.Service
	orders *order.Service
	sent   *recorder
	user   uuid.UUID
}

func setup(t *testing.T) env {
	t.Helper()
	store := dbtest.New()
	fx := dbtest.Seed(t, store)
	dir := geo.NewDirectory(store, nil, zerolog.Nop())
	sent := &recorder{}
	bus := &events.Bus{Notifiers: []events.Notifier{sent}, Logger: zerolog.Nop()}
	return env{
		store:  store,
		fx:     fx,
		carts:  cart.NewService(store, cart.NewEngine(dir, "NL")),
		orders: order.NewService(store, dir, bus),
		sent:   sent,
		user:   uuid.New(),
	}
}

// cartWith creates a cart billed to a new address in country holding two widgets.
func (e env) cartWith(t *testing.T, country db.Country, opts dbtest.AddressOptions) (cart.View, db.Address) {
	t.Helper()
	ctx := context.Background()
	billing := dbtest.SeedAddress(t, e.store, e.user, db.AddressKindBilling, country, opts)
	c, err := e.carts.Create(ctx, e.user, nlLocale, cart.Change{BillingID: common.Some(db.UUIDValue(billing.ID))})
	require.NoError(t, err)
	c, err = e.carts.AddItem(ctx, e.user, c.ID, cart.ItemInput{ProductID: db.UUIDValue(e.fx.Widget.ID), Quantity: 2})
	require.NoError(t, err)
	return c, billing
}

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.HTTPStatus)
	require.Equal(t, code, appErr.Code)
}

func TestCreateFreezesCartTotals(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c, billing := e.cartWith(t, e.fx.NL, dbtest.AddressOptions{})
	require.Equal(t, "126.99", c.TotalPrice)

	o, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: c.ID})
	require.NoError(t, err)
	require.Equal(t, "pending", o.Status)
	require.Equal(t, "EUR", o.CurrencyCode)
	require.Equal(t, "100.00", o.SubtotalPrice)
	require.Equal(t, "4.95", o.ShipmentPrice)
	require.Equal(t, "22.04", o.VATAmount)
	require.Equal(t, c.TotalPrice, o.TotalPrice)
	require.Equal(t, "0.21", o.VATRate)
	require.Equal(t, "Europe standard", *o.ShipmentMethod)
	require.Nil(t, o.VATNumber)
	require.Len(t, o.Lines, 1)
	require.Equal(t, "100.00", o.Lines[0].LineTotal)
	require.Equal(t, db.UUIDValue(billing.ID), o.BillingID)

	_, err = e.carts.Get(ctx, e.user, c.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)

	locked, err := e.store.AddressHasOrders(ctx, billing.ID)
	require.NoError(t, err)
	require.True(t, locked)

	evs := e.store.Events()
	require.Len(t, evs, 1)
	var payload events.OrderCreated
	require.NoError(t, json.Unmarshal(evs[0].Payload, &payload))
	require.Equal(t, "ada@example.com", payload.Email)
	require.Equal(t, "126.99", payload.TotalPrice)
	require.Equal(t, []string{events.TopicOrderCreated}, e.sent.topics())

	got, err := e.orders.Get(ctx, e.user, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.TotalPrice, got.TotalPrice)
	require.Len(t, got.Lines, 1)
}

func TestCreateKeepsAppliedCouponCode(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c, _ := e.cartWith(t, e.fx.NL, dbtest.AddressOptions{})
	_, err := e.carts.Patch(ctx, e.user, c.ID, nlLocale, cart.Change{CouponCode: common.Some("10PERC")})
	require.NoError(t, err)

	o, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: c.ID})
	require.NoError(t, err)
	require.Equal(t, "10PERC", *o.CouponCode)
	require.Equal(t, "10.00", o.DiscountPrice)
	require.Equal(t, "114.89", o.TotalPrice)
}

func TestCreateRejectsIncompleteCarts(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	noBilling, err := e.carts.Create(ctx, e.user, nlLocale, cart.Change{})
	require.NoError(t, err)
	_, err = e.orders.Create(ctx, e.user, order.CreateInput{CartID: noBilling.ID})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
	_, err = e.carts.Get(ctx, e.user, noBilling.ID)
	require.NoError(t, err, "a rejected checkout keeps the cart")

	billing := dbtest.SeedAddress(t, e.store, e.user, db.AddressKindBilling, e.fx.NL, dbtest.AddressOptions{})
	empty, err := e.carts.Create(ctx, e.user, nlLocale, cart.Change{BillingID: common.Some(db.UUIDValue(billing.ID))})
	require.NoError(t, err)
	_, err = e.orders.Create(ctx, e.user, order.CreateInput{CartID: empty.ID})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = e.orders.Create(ctx, uuid.New(), order.CreateInput{CartID: empty.ID})
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = e.orders.Create(ctx, e.user, order.CreateInput{})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
	require.Empty(t, e.store.Events())
}

func TestCreateValidatesBusinessVATNumber(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	bad, _ := e.cartWith(t, e.fx.DE, dbtest.AddressOptions{Company: "Acme GmbH", VAT: "INVALID-VAT"})
	_, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: bad.ID})
	requireAppError(t, err, http.StatusBadRequest, "INVALID_VAT_NUMBER")

	good, _ := e.cartWith(t, e.fx.NL, dbtest.AddressOptions{Company: "Acme BV", VAT: "nl123456789b01"})
	o, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: good.ID})
	require.NoError(t, err)
	require.Equal(t, "NL123456789B01", *o.VATNumber)
	require.False(t, o.VATReverse)

	reverse, _ := e.cartWith(t, e.fx.DE, dbtest.AddressOptions{Company: "Acme GmbH", VAT: "DE123456789"})
	o, err = e.orders.Create(ctx, e.user, order.CreateInput{CartID: reverse.ID})
	require.NoError(t, err)
	require.True(t, o.VATReverse)
	require.Equal(t, "0.00", o.VATAmount)
	require.Equal(t, "104.95", o.TotalPrice)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	c, _ := e.cartWith(t, e.fx.NL, dbtest.AddressOptions{})
	o, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: c.ID})
	require.NoError(t, err)

	paid, err := e.orders.UpdateStatus(ctx, o.ID, order.StatusInput{Status: "PAID"})
	require.NoError(t, err)
	require.Equal(t, "paid", paid.Status)

	_, err = e.orders.UpdateStatus(ctx, o.ID, order.StatusInput{Status: "pending"})
	requireAppError(t, err, http.StatusConflict, "INVALID_STATE")
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = e.orders.UpdateStatus(ctx, o.ID, order.StatusInput{Status: "lost"})
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = e.orders.UpdateStatus(ctx, uuid.New(), order.StatusInput{Status: "paid"})
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = e.orders.UpdateStatus(ctx, o.ID, order.StatusInput{Status: "shipped"})
	require.NoError(t, err)
	refunded, err := e.orders.UpdateStatus(ctx, o.ID, order.StatusInput{Status: "refunded"})
	require.NoError(t, err)
	require.Equal(t, "refunded", refunded.Status)

	require.Equal(t, []string{
		events.TopicOrderCreated,
		events.TopicOrderStatusChanged,
		events.TopicOrderStatusChanged,
		events.TopicOrderStatusChanged,
	}, e.sent.topics())
	evs := e.store.Events()
	var last events.OrderStatusChanged
	require.NoError(t, json.Unmarshal(evs[len(evs)-1].Payload, &last))
	require.Equal(t, events.OrderStatusChanged{OrderID: o.ID.String(), Email: "ada@example.com", From: "shipped", To: "refunded"}, last)
}

func TestListIsPaginatedAndScoped(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c, _ := e.cartWith(t, e.fx.NL, dbtest.AddressOptions{})
		_, err := e.orders.Create(ctx, e.user, order.CreateInput{CartID: c.ID})
		require.NoError(t, err)
	}
	page, total, err := e.orders.List(ctx, e.user, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	require.Empty(t, page[0].Lines)

	_, err = e.orders.Get(ctx, uuid.New(), page[0].ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to db.OrderStatus
		ok       bool
	}{
		{db.OrderStatusPending, db.OrderStatusPaid, true},
		{db.OrderStatusPending, db.OrderStatusCancelled, true},
		{db.OrderStatusPending, db.OrderStatusShipped, false},
		{db.OrderStatusPaid, db.OrderStatusCancelled, true},
		{db.OrderStatusShipped, db.OrderStatusCancelled, false},
		{db.OrderStatusShipped, db.OrderStatusRefunded, true},
		{db.OrderStatusRefunded, db.OrderStatusPaid, false},
		{db.OrderStatusCancelled, db.OrderStatusPaid, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, order.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
