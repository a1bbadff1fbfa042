// Package address manages billing and shipping addresses. Updating an address
// reprices every cart that points at it in the same transaction.
package address

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-storefront/internal/cart"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
	"github.com/noah-isme/backend-storefront/internal/events"
	"github.com/noah-isme/backend-storefront/internal/locale"
	"github.com/noah-isme/backend-storefront/internal/obs"
)

var (
	// ErrNotFound covers missing addresses and addresses owned by someone else.
	ErrNotFound = errors.New("address not found")
	// ErrLocked is returned when an order already references the address.
	ErrLocked = errors.New("address is referenced by an order")
)

// Input is the full set of address fields.
type Input struct {
	FirstName string    `json:"first_name" validate:"required,max=100"`
	LastName  string    `json:"last_name" validate:"required,max=100"`
	Email     string    `json:"email" validate:"required,email,max=255"`
	Phone     *string   `json:"phone" validate:"omitempty,max=40"`
	Company   *string   `json:"company" validate:"omitempty,max=200"`
	VAT       *string   `json:"vat" validate:"omitempty,max=32"`
	Address   string    `json:"address" validate:"required,max=255"`
	City      string    `json:"city" validate:"required,max=100"`
	State     *string   `json:"state" validate:"omitempty,max=100"`
	ZipCode   string    `json:"zip_code" validate:"required,max=20"`
	CountryID uuid.UUID `json:"country_id" validate:"required"`
}

// Patch lists the fields to change. Nullable columns accept an explicit null.
type Patch struct {
	FirstName *string                    `json:"first_name"`
	LastName  *string                    `json:"last_name"`
	Email     *string                    `json:"email"`
	Phone     common.Optional[string]    `json:"phone"`
	Company   common.Optional[string]    `json:"company"`
	VAT       common.Optional[string]    `json:"vat"`
	Address   *string                    `json:"address"`
	City      *string                    `json:"city"`
	State     common.Optional[string]    `json:"state"`
	ZipCode   *string                    `json:"zip_code"`
	CountryID common.Optional[uuid.UUID] `json:"country_id"`
}

func (p Patch) apply(in Input) Input {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&in.FirstName, p.FirstName)
	set(&in.LastName, p.LastName)
	set(&in.Email, p.Email)
	set(&in.Address, p.Address)
	set(&in.City, p.City)
	set(&in.ZipCode, p.ZipCode)
	if p.Phone.Set {
		in.Phone = p.Phone.Value
	}
	if p.Company.Set {
		in.Company = p.Company.Value
	}
	if p.VAT.Set {
		in.VAT = p.VAT.Value
	}
	if p.State.Set {
		in.State = p.State.Value
	}
	if p.CountryID.Set {
		in.CountryID = uuid.Nil
		if p.CountryID.Value != nil {
			in.CountryID = *p.CountryID.Value
		}
	}
	return in
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (in Input) normalize() Input {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	in.Phone = trimPtr(in.Phone)
	in.Company = trimPtr(in.Company)
	in.State = trimPtr(in.State)
	if in.VAT = trimPtr(in.VAT); in.VAT != nil {
		v := strings.ToUpper(strings.ReplaceAll(*in.VAT, " ", ""))
		in.VAT = &v
	}
	return in
}

func (in Input) validate(kind db.AddressKind) error {
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if kind != db.AddressKindBilling && in.VAT != nil {
		return common.Validation("vat is only accepted on billing addresses", nil).
			WithDetails(map[string]string{"vat": "billing_only"})
	}
	return nil
}

func fromRow(a db.Address) Input {
	return Input{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     db.TextPtr(a.Phone),
		Company:   db.TextPtr(a.Company),
		VAT:       db.TextPtr(a.Vat),
		Address:   a.Address,
		City:      a.City,
		State:     db.TextPtr(a.State),
		ZipCode:   a.ZipCode,
		CountryID: db.UUIDValue(a.CountryID),
	}
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// View is the API representation of an address.
type View struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Company   *string   `json:"company"`
	VAT       *string   `json:"vat,omitempty"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     *string   `json:"state"`
	ZipCode   string    `json:"zip_code"`
	CountryID uuid.UUID `json:"country_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(a db.Address) View {
	return View{
		ID:        db.UUIDValue(a.ID),
		Kind:      string(a.Kind),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     db.TextPtr(a.Phone),
		Company:   db.TextPtr(a.Company),
		VAT:       db.TextPtr(a.Vat),
		Address:   a.Address,
		City:      a.City,
		State:     db.TextPtr(a.State),
		ZipCode:   a.ZipCode,
		CountryID: db.UUIDValue(a.CountryID),
		CreatedAt: a.CreatedAt.Time,
		UpdatedAt: a.UpdatedAt.Time,
	}
}

func notFound(kind db.AddressKind) error {
	return common.NotFound(string(kind)+" address not found", ErrNotFound)
}

func storeError(op string, err error) error {
	if db.IsForeignKeyViolation(err) {
		return common.Conflict("UNKNOWN_COUNTRY", "country_id does not reference a known country", err)
	}
	if db.IsCheckViolation(err) {
		return common.Validation("address violates a constraint", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Service orchestrates address book operations.
type Service struct {
	Store  db.Store
	Engine *cart.Engine
	Bus    *events.Bus
}

// NewService constructs a Service.
func NewService(store db.Store, engine *cart.Engine, bus *events.Bus) *Service {
	return &Service{Store: store, Engine: engine, Bus: bus}
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Engine == nil {
		return errors.New("address service not configured")
	}
	return nil
}

// Create stores a new address of kind for user.
func (s *Service) Create(ctx context.Context, user uuid.UUID, kind db.AddressKind, in Input) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	in = in.normalize()
	if err := in.validate(kind); err != nil {
		return View{}, err
	}
	created, err := s.Store.CreateAddress(ctx, db.CreateAddressParams{
		UserID:    db.UUID(user),
		Kind:      kind,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     db.Text(text(in.Phone)),
		Company:   db.Text(text(in.Company)),
		Vat:       db.Text(text(in.VAT)),
		Address:   in.Address,
		City:      in.City,
		State:     db.Text(text(in.State)),
		ZipCode:   in.ZipCode,
		CountryID: db.UUID(in.CountryID),
	})
	if err != nil {
		return View{}, storeError("create address", err)
	}
	return toView(created), nil
}

// List returns a page of the user's addresses of kind, newest first.
func (s *Service) List(ctx context.Context, user uuid.UUID, kind db.AddressKind, page, perPage int) ([]View, int64, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 {
		perPage = 20
	}
	rows, err := s.Store.ListAddresses(ctx, db.ListAddressesParams{
		UserID: db.UUID(user),
		Kind:   kind,
		Limit:  int32(perPage),
		Offset: int32(common.Offset(page, perPage)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list addresses: %w", err)
	}
	total, err := s.Store.CountAddresses(ctx, db.CountAddressesParams{UserID: db.UUID(user), Kind: kind})
	if err != nil {
		return nil, 0, fmt.Errorf("count addresses: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row))
	}
	return out, total, nil
}

// Get returns one of the user's addresses.
func (s *Service) Get(ctx context.Context, user uuid.UUID, kind db.AddressKind, id uuid.UUID) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	a, err := s.Store.GetAddress(ctx, db.GetAddressParams{ID: db.UUID(id), UserID: db.UUID(user), Kind: kind})
	if err != nil {
		if db.IsNotFound(err) {
			return View{}, notFound(kind)
		}
		return View{}, fmt.Errorf("get address: %w", err)
	}
	return toView(a), nil
}

// Update applies p to the address and reprices every cart that references
// it. An address already used by an order is locked. The lock check, the
// update and the repricing commit or roll back together.
func (s *Service) Update(ctx context.Context, user uuid.UUID, kind db.AddressKind, id uuid.UUID, lc locale.Context, p Patch) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	ctx, span := obs.StartSpan(ctx, "address.update")
	defer span.End()

	var (
		out db.Address
		ev  db.DomainEvent
	)
	err := s.Store.WithinTx(ctx, func(q db.Querier) error {
		current, err := q.GetAddressForUpdate(ctx, db.GetAddressParams{ID: db.UUID(id), UserID: db.UUID(user), Kind: kind})
		if err != nil {
			if db.IsNotFound(err) {
				return notFound(kind)
			}
			return fmt.Errorf("lock address: %w", err)
		}
		locked, err := q.AddressHasOrders(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("check address orders: %w", err)
		}
		if locked {
			return common.Forbidden("ADDRESS_LOCKED", "address is referenced by an order and can no longer change", ErrLocked)
		}

		in := p.apply(fromRow(current)).normalize()
		if err := in.validate(kind); err != nil {
			return err
		}
		updated, err := q.UpdateAddress(ctx, db.UpdateAddressParams{
			ID:        current.ID,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Phone:     db.Text(text(in.Phone)),
			Company:   db.Text(text(in.Company)),
			Vat:       db.Text(text(in.VAT)),
			Address:   in.Address,
			City:      in.City,
			State:     db.Text(text(in.State)),
			ZipCode:   in.ZipCode,
			CountryID: db.UUID(in.CountryID),
		})
		if err != nil {
			return storeError("update address", err)
		}

		carts, err := q.ListCartsByAddressForUpdate(ctx, updated.ID)
		if err != nil {
			return fmt.Errorf("list dependent carts: %w", err)
		}
		repriced := make([]string, 0, len(carts))
		for _, c := range carts {
			if _, err := s.Engine.Reprice(ctx, q, c, cart.Change{}, lc, cart.TriggerAddress); err != nil {
				return err
			}
			repriced = append(repriced, db.UUIDValue(c.ID).String())
		}
		if obs.AddressFanoutCarts != nil {
			obs.AddressFanoutCarts.Observe(float64(len(repriced)))
		}

		ev, err = s.Bus.Record(ctx, q, events.TopicAddressUpdated, updated.ID, events.AddressUpdated{
			AddressID:     db.UUIDValue(updated.ID).String(),
			Kind:          string(kind),
			RepricedCarts: repriced,
		})
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return View{}, err
	}
	_ = s.Bus.Publish(ctx, ev)
	return toView(out), nil
}
