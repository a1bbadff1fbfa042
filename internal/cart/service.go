// Package cart owns the per-user pricing context: its configuration is
// recomputed by Engine whenever billing, shipping, coupon or shipment input
// changes, and its totals are derived at read time.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/locale"
)

// defaultListLimit is the number of carts GET /carts returns without ?limit=.
const defaultListLimit = 1

// Service encapsulates cart operations.
type Service struct {
	Store  db.Store
	Engine *Engine
}

// NewService constructs a Service.
func NewService(store db.Store, engine *Engine) *Service {
	return &Service{Store: store, Engine: engine}
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Engine == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create opens a cart for user priced for lc, then applies ch.
func (s *Service) Create(ctx context.Context, user uuid.UUID, lc locale.Context, ch Change) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	var out Priced
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		snap, err := s.Engine.Geo.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("load geo directory: %w", err)
		}
		dest, err := s.Engine.LocaleDestination(snap, lc)
		if err != nil {
			return err
		}
		created, err := q.CreateCart(ctx, db.CreateCartParams{
			UserID:     db.UUID(user),
			CurrencyID: db.UUID(dest.Currency.ID),
			VatRate:    db.Numeric(decimal.Zero),
		})
		if err != nil {
			return storeError("create cart", err)
		}
		repriced, err := s.Engine.Reprice(ctx, q, created, ch, lc, TriggerCreate)
		if err != nil {
			return err
		}
		out, err = Price(ctx, q, s.Engine.Geo, repriced)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return out.View(), nil
}

// Patch applies ch to the cart under a row lock. Nothing is persisted when
// any step fails.
func (s *Service) Patch(ctx context.Context, user, cartID uuid.UUID, lc locale.Context, ch Change) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	var out Priced
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		current, err := q.GetCartForUpdate(ctx, db.GetCartParams{ID: db.UUID(cartID), UserID: db.UUID(user)})
		if err != nil {
			if db.IsNotFound(err) {
				return notFound(ErrNotFound)
			}
			return fmt.Errorf("lock cart: %w", err)
		}
		repriced, err := s.Engine.Reprice(ctx, q, current, ch, lc, TriggerPatch)
		if err != nil {
			return err
		}
		out, err = Price(ctx, q, s.Engine.Geo, repriced)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return out.View(), nil
}

// Get returns the caller's cart with totals.
func (s *Service) Get(ctx context.Context, user, cartID uuid.UUID) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	c, err := s.Store.GetCart(ctx, db.GetCartParams{ID: db.UUID(cartID), UserID: db.UUID(user)})
	if err != nil {
		if db.IsNotFound(err) {
			return View{}, notFound(ErrNotFound)
		}
		return View{}, fmt.Errorf("get cart: %w", err)
	}
	priced, err := Price(ctx, s.Store, s.Engine.Geo, c)
	if err != nil {
		return View{}, err
	}
	return priced.View(), nil
}

// List returns the caller's most recent carts.
func (s *Service) List(ctx context.Context, user uuid.UUID, limit int) ([]View, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.Store.ListCartsByUser(ctx, db.ListCartsByUserParams{UserID: db.UUID(user), Limit: int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	views := make([]View, 0, len(rows))
	for _, c := range rows {
		priced, err := Price(ctx, s.Store, s.Engine.Geo, c)
		if err != nil {
			return nil, err
		}
		views = append(views, priced.View())
	}
	return views, nil
}

// Delete abandons a cart.
func (s *Service) Delete(ctx context.Context, user, cartID uuid.UUID) error {
	if err := s.ready(); err != nil {
		return err
	}
	n, err := s.Store.DeleteCart(ctx, db.DeleteCartParams{ID: db.UUID(cartID), UserID: db.UUID(user)})
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if n == 0 {
		return notFound(ErrNotFound)
	}
	return nil
}

// ItemInput adds a product to a cart.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=999"`
}

// QuantityInput changes the quantity of a line.
type QuantityInput struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}

// AddItem adds in.Quantity of a product, merging with an existing line.
func (s *Service) AddItem(ctx context.Context, user, cartID uuid.UUID, in ItemInput) (View, error) {
	if err := common.ValidateStruct(in); err != nil {
		return View{}, err
	}
	return s.mutateItems(ctx, user, cartID, func(q db.Querier, c db.Cart) error {
		product, err := q.GetProduct(ctx, db.UUID(in.ProductID))
		if err != nil {
			if db.IsNotFound(err) {
				return common.NotFound("product not found", err)
			}
			return fmt.Errorf("get product: %w", err)
		}
		if product.State != db.EntityStateActive {
			return common.NotFound("product not found", nil)
		}
		_, err = q.AddCartItem(ctx, db.AddCartItemParams{CartID: c.ID, ProductID: product.ID, Quantity: int32(in.Quantity)})
		if err != nil {
			return storeError("add cart item", err)
		}
		return nil
	})
}

// UpdateItem sets the quantity of a line.
func (s *Service) UpdateItem(ctx context.Context, user, cartID, itemID uuid.UUID, in QuantityInput) (View, error) {
	if err := common.ValidateStruct(in); err != nil {
		return View{}, err
	}
	return s.mutateItems(ctx, user, cartID, func(q db.Querier, c db.Cart) error {
		_, err := q.UpdateCartItemQuantity(ctx, db.UpdateCartItemQuantityParams{ID: db.UUID(itemID), CartID: c.ID, Quantity: int32(in.Quantity)})
		if err != nil {
			if db.IsNotFound(err) {
				return common.NotFound("cart item not found", err)
			}
			return storeError("update cart item", err)
		}
		return nil
	})
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, user, cartID, itemID uuid.UUID) (View, error) {
	return s.mutateItems(ctx, user, cartID, func(q db.Querier, c db.Cart) error {
		n, err := q.DeleteCartItem(ctx, db.DeleteCartItemParams{ID: db.UUID(itemID), CartID: c.ID})
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		if n == 0 {
			return common.NotFound("cart item not found", nil)
		}
		return nil
	})
}

func (s *Service) mutateItems(ctx context.Context, user, cartID uuid.UUID, fn func(db.Querier, db.Cart) error) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	var out Priced
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		c, err := q.GetCartForUpdate(ctx, db.GetCartParams{ID: db.UUID(cartID), UserID: db.UUID(user)})
		if err != nil {
			if db.IsNotFound(err) {
				return notFound(ErrNotFound)
			}
			return fmt.Errorf("lock cart: %w", err)
		}
		if err := fn(q, c); err != nil {
			return err
		}
		out, err = Price(ctx, q, s.Engine.Geo, c)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return out.View(), nil
}
