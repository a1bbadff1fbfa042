// Package dbtest provides an in-memory db.Store for service tests. Units of
// work are serialized and rolled back as a whole when fn fails, matching the
// row-locking transactions of the Postgres store.
package dbtest

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/db"
)

type key = [16]byte

type state struct {
	currencies map[key]db.Currency
	regions    map[key]db.Region
	countries  map[key]db.Country
	products   map[key]db.Product
	coupons    map[key]db.Coupon
	methods    map[key]db.ShipmentMethod
	addresses  map[key]db.Address
	carts      map[key]db.Cart
	cartItems  map[key]db.CartItem
	orders     map[key]db.Order
	orderLines map[key]db.OrderLine
	events     []db.DomainEvent
	settings   db.AppSetting
}

func newState() *state {
	return &state{
		currencies: map[key]db.Currency{},
		regions:    map[key]db.Region{},
		countries:  map[key]db.Country{},
		products:   map[key]db.Product{},
		coupons:    map[key]db.Coupon{},
		methods:    map[key]db.ShipmentMethod{},
		addresses:  map[key]db.Address{},
		carts:      map[key]db.Cart{},
		cartItems:  map[key]db.CartItem{},
		orders:     map[key]db.Order{},
		orderLines: map[key]db.OrderLine{},
		settings:   db.AppSetting{ID: 1},
	}
}

func cloneMap[V any](in map[key]V) map[key]V {
	out := make(map[key]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		currencies: cloneMap(s.currencies),
		regions:    cloneMap(s.regions),
		countries:  cloneMap(s.countries),
		products:   cloneMap(s.products),
		coupons:    cloneMap(s.coupons),
		methods:    cloneMap(s.methods),
		addresses:  cloneMap(s.addresses),
		carts:      cloneMap(s.carts),
		cartItems:  cloneMap(s.cartItems),
		orders:     cloneMap(s.orders),
		orderLines: cloneMap(s.orderLines),
		events:     append([]db.DomainEvent(nil), s.events...),
		settings:   s.settings,
	}
}

// Memory implements db.Store.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	tick int64

	// Now stamps created_at/updated_at. Successive rows get strictly increasing times.
	Now func() time.Time
	// Fail, when set, is consulted before every query; a non-nil error is returned as-is.
	Fail func(method string) error
}

// New returns an empty store.
func New() *Memory {
	return &Memory{st: newState(), Now: time.Now}
}

var _ db.Store = (*Memory)(nil)

// WithinTx implements db.TxManager.
func (m *Memory) WithinTx(ctx context.Context, fn func(db.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	err := fn(m)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
	}
	return err
}

// Events returns the persisted domain events.
func (m *Memory) Events() []db.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.DomainEvent(nil), m.st.events...)
}

func (m *Memory) begin(method string) error {
	m.mu.Lock()
	if m.Fail != nil {
		if err := m.Fail(method); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	return nil
}

func (m *Memory) stamp() pgtype.Timestamptz {
	m.tick++
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return pgtype.Timestamptz{Time: now().Add(time.Duration(m.tick) * time.Microsecond), Valid: true}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint", ConstraintName: constraint}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint", ConstraintName: constraint}
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", Message: "violates check constraint", ConstraintName: constraint}
}

func exists[V any](m map[key]V, id pgtype.UUID) bool {
	if !id.Valid {
		return true
	}
	_, ok := m[id.Bytes]
	return ok
}

func sortByCreated[V any](items []V, created func(V) time.Time, id func(V) pgtype.UUID, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := created(items[i]), created(items[j])
		if !a.Equal(b) {
			if desc {
				return a.After(b)
			}
			return a.Before(b)
		}
		ai, bi := id(items[i]).Bytes, id(items[j]).Bytes
		return bytes.Compare(ai[:], bi[:]) < 0
	})
}

func page[V any](items []V, limit, offset int32) []V {
	if offset < 0 {
		offset = 0
	}
	if int(offset) >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

var errNoRows = pgx.ErrNoRows
