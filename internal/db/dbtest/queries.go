package dbtest

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-storefront/internal/db"
)

func (m *Memory) CreateCurrency(_ context.Context, arg db.CreateCurrencyParams) (db.Currency, error) {
	if err := m.begin("CreateCurrency"); err != nil {
		return db.Currency{}, err
	}
	defer m.mu.Unlock()
	for _, c := range m.st.currencies {
		if c.Code == arg.Code {
			return db.Currency{}, uniqueViolation("currencies_code_key")
		}
	}
	c := db.Currency{ID: newID(), Code: arg.Code, Symbol: arg.Symbol, Rate: arg.Rate, CreatedAt: m.stamp()}
	m.st.currencies[c.ID.Bytes] = c
	return c, nil
}

func (m *Memory) ListCurrencies(_ context.Context) ([]db.Currency, error) {
	if err := m.begin("ListCurrencies"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]db.Currency, 0, len(m.st.currencies))
	for _, c := range m.st.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) CreateRegion(_ context.Context, name string) (db.Region, error) {
	if err := m.begin("CreateRegion"); err != nil {
		return db.Region{}, err
	}
	defer m.mu.Unlock()
	r := db.Region{ID: newID(), Name: name, CreatedAt: m.stamp()}
	m.st.regions[r.ID.Bytes] = r
	return r, nil
}

func (m *Memory) ListRegions(_ context.Context) ([]db.Region, error) {
	if err := m.begin("ListRegions"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]db.Region, 0, len(m.st.regions))
	for _, r := range m.st.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateCountry(_ context.Context, arg db.CreateCountryParams) (db.Country, error) {
	if err := m.begin("CreateCountry"); err != nil {
		return db.Country{}, err
	}
	defer m.mu.Unlock()
	if !arg.CurrencyID.Valid || !exists(m.st.currencies, arg.CurrencyID) {
		return db.Country{}, fkViolation("countries_currency_id_fkey")
	}
	if !exists(m.st.regions, arg.RegionID) {
		return db.Country{}, fkViolation("countries_region_id_fkey")
	}
	for _, c := range m.st.countries {
		if c.Code == arg.Code {
			return db.Country{}, uniqueViolation("countries_code_key")
		}
	}
	c := db.Country{
		ID:          newID(),
		Code:        arg.Code,
		Name:        arg.Name,
		CurrencyID:  arg.CurrencyID,
		RegionID:    arg.RegionID,
		VatRate:     arg.VatRate,
		VatRequired: arg.VatRequired,
		CreatedAt:   m.stamp(),
	}
	m.st.countries[c.ID.Bytes] = c
	return c, nil
}

func (m *Memory) ListCountries(_ context.Context) ([]db.Country, error) {
	if err := m.begin("ListCountries"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := make([]db.Country, 0, len(m.st.countries))
	for _, c := range m.st.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) GetAppSettings(_ context.Context) (db.AppSetting, error) {
	if err := m.begin("GetAppSettings"); err != nil {
		return db.AppSetting{}, err
	}
	defer m.mu.Unlock()
	return m.st.settings, nil
}

func (m *Memory) UpdateAppSettings(_ context.Context, arg db.UpdateAppSettingsParams) (db.AppSetting, error) {
	if err := m.begin("UpdateAppSettings"); err != nil {
		return db.AppSetting{}, err
	}
	defer m.mu.Unlock()
	s := m.st.settings
	if arg.SetBanner {
		s.Banner = arg.Banner
	}
	if arg.CachedAt.Valid {
		s.CachedAt = arg.CachedAt
	}
	s.UpdatedAt = m.stamp()
	m.st.settings = s
	return s, nil
}

func (m *Memory) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	if err := m.begin("InsertDomainEvent"); err != nil {
		return db.DomainEvent{}, err
	}
	defer m.mu.Unlock()
	ev := db.DomainEvent{
		ID:          newID(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     append([]byte(nil), arg.Payload...),
		OccurredAt:  m.stamp(),
	}
	m.st.events = append(m.st.events, ev)
	return ev, nil
}

func (m *Memory) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	if err := m.begin("CreateProduct"); err != nil {
		return db.Product{}, err
	}
	defer m.mu.Unlock()
	p := db.Product{ID: newID(), Name: arg.Name, UnitPrice: arg.UnitPrice, State: db.EntityStateActive, CreatedAt: m.stamp()}
	m.st.products[p.ID.Bytes] = p
	return p, nil
}

func (m *Memory) GetProduct(_ context.Context, id pgtype.UUID) (db.Product, error) {
	if err := m.begin("GetProduct"); err != nil {
		return db.Product{}, err
	}
	defer m.mu.Unlock()
	p, ok := m.st.products[id.Bytes]
	if !ok {
		return db.Product{}, errNoRows
	}
	return p, nil
}

func (m *Memory) CreateCoupon(_ context.Context, arg db.CreateCouponParams) (db.Coupon, error) {
	if err := m.begin("CreateCoupon"); err != nil {
		return db.Coupon{}, err
	}
	defer m.mu.Unlock()
	for _, c := range m.st.coupons {
		if c.Code == arg.Code {
			return db.Coupon{}, uniqueViolation("coupons_code_key")
		}
	}
	state := arg.State
	if state == "" {
		state = db.EntityStateActive
	}
	c := db.Coupon{ID: newID(), Code: arg.Code, Rate: arg.Rate, Amount: arg.Amount, State: state, CreatedAt: m.stamp()}
	m.st.coupons[c.ID.Bytes] = c
	return c, nil
}

func (m *Memory) GetActiveCouponByCode(_ context.Context, code string) (db.Coupon, error) {
	if err := m.begin("GetActiveCouponByCode"); err != nil {
		return db.Coupon{}, err
	}
	defer m.mu.Unlock()
	for _, c := range m.st.coupons {
		if c.Code == code && c.State == db.EntityStateActive {
			return c, nil
		}
	}
	return db.Coupon{}, errNoRows
}

func (m *Memory) GetCoupon(_ context.Context, id pgtype.UUID) (db.Coupon, error) {
	if err := m.begin("GetCoupon"); err != nil {
		return db.Coupon{}, err
	}
	defer m.mu.Unlock()
	c, ok := m.st.coupons[id.Bytes]
	if !ok {
		return db.Coupon{}, errNoRows
	}
	return c, nil
}

// SetCouponState changes a coupon's lifecycle state, as an administrator would.
func (m *Memory) SetCouponState(id pgtype.UUID, state db.EntityState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.st.coupons[id.Bytes]; ok {
		c.State = state
		m.st.coupons[id.Bytes] = c
	}
}

func (m *Memory) CreateShipmentMethod(_ context.Context, arg db.CreateShipmentMethodParams) (db.ShipmentMethod, error) {
	if err := m.begin("CreateShipmentMethod"); err != nil {
		return db.ShipmentMethod{}, err
	}
	defer m.mu.Unlock()
	if !exists(m.st.countries, arg.CountryID) {
		return db.ShipmentMethod{}, fkViolation("shipment_methods_country_id_fkey")
	}
	if !exists(m.st.regions, arg.RegionID) {
		return db.ShipmentMethod{}, fkViolation("shipment_methods_region_id_fkey")
	}
	sm := db.ShipmentMethod{
		ID:        newID(),
		Name:      arg.Name,
		UnitPrice: arg.UnitPrice,
		CountryID: arg.CountryID,
		RegionID:  arg.RegionID,
		State:     db.EntityStateActive,
		CreatedAt: m.stamp(),
	}
	m.st.methods[sm.ID.Bytes] = sm
	return sm, nil
}

func (m *Memory) GetShipmentMethod(_ context.Context, id pgtype.UUID) (db.ShipmentMethod, error) {
	if err := m.begin("GetShipmentMethod"); err != nil {
		return db.ShipmentMethod{}, err
	}
	defer m.mu.Unlock()
	sm, ok := m.st.methods[id.Bytes]
	if !ok {
		return db.ShipmentMethod{}, errNoRows
	}
	return sm, nil
}

// SetShipmentMethodState changes a shipment method's lifecycle state.
func (m *Memory) SetShipmentMethodState(id pgtype.UUID, state db.EntityState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sm, ok := m.st.methods[id.Bytes]; ok {
		sm.State = state
		m.st.methods[id.Bytes] = sm
	}
}

func (m *Memory) ListEligibleShipmentMethods(_ context.Context, arg db.ListEligibleShipmentMethodsParams) ([]db.ShipmentMethod, error) {
	if err := m.begin("ListEligibleShipmentMethods"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.ShipmentMethod
	for _, sm := range m.st.methods {
		if sm.State != db.EntityStateActive {
			continue
		}
		worldwide := !sm.CountryID.Valid && !sm.RegionID.Valid
		byCountry := sm.CountryID.Valid && arg.CountryID.Valid && sm.CountryID.Bytes == arg.CountryID.Bytes
		byRegion := !sm.CountryID.Valid && sm.RegionID.Valid && arg.RegionID.Valid && sm.RegionID.Bytes == arg.RegionID.Bytes
		if worldwide || byCountry || byRegion {
			out = append(out, sm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := db.Decimal(out[i].UnitPrice).Cmp(db.Decimal(out[j].UnitPrice)); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].ID.Bytes[:], out[j].ID.Bytes[:]) < 0
	})
	return out, nil
}

func (m *Memory) CreateAddress(_ context.Context, arg db.CreateAddressParams) (db.Address, error) {
	if err := m.begin("CreateAddress"); err != nil {
		return db.Address{}, err
	}
	defer m.mu.Unlock()
	if !arg.CountryID.Valid || !exists(m.st.countries, arg.CountryID) {
		return db.Address{}, fkViolation("addresses_country_id_fkey")
	}
	if arg.Kind != db.AddressKindBilling && arg.Vat.Valid {
		return db.Address{}, checkViolation("addresses_check")
	}
	now := m.stamp()
	a := db.Address{
		ID:        newID(),
		UserID:    arg.UserID,
		Kind:      arg.Kind,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		Email:     arg.Email,
		Phone:     arg.Phone,
		Company:   arg.Company,
		Vat:       arg.Vat,
		Address:   arg.Address,
		City:      arg.City,
		State:     arg.State,
		ZipCode:   arg.ZipCode,
		CountryID: arg.CountryID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.st.addresses[a.ID.Bytes] = a
	return a, nil
}

func (m *Memory) getAddress(arg db.GetAddressParams) (db.Address, error) {
	a, ok := m.st.addresses[arg.ID.Bytes]
	if !ok || a.UserID.Bytes != arg.UserID.Bytes || a.Kind != arg.Kind {
		return db.Address{}, errNoRows
	}
	return a, nil
}

func (m *Memory) GetAddress(_ context.Context, arg db.GetAddressParams) (db.Address, error) {
	if err := m.begin("GetAddress"); err != nil {
		return db.Address{}, err
	}
	defer m.mu.Unlock()
	return m.getAddress(arg)
}

func (m *Memory) GetAddressForUpdate(_ context.Context, arg db.GetAddressParams) (db.Address, error) {
	if err := m.begin("GetAddressForUpdate"); err != nil {
		return db.Address{}, err
	}
	defer m.mu.Unlock()
	return m.getAddress(arg)
}

func (m *Memory) ListAddresses(_ context.Context, arg db.ListAddressesParams) ([]db.Address, error) {
	if err := m.begin("ListAddresses"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	var out []db.Address
	for _, a := range m.st.addresses {
		if a.UserID.Bytes == arg.UserID.Bytes && a.Kind == arg.Kind {
			out = append(out, a)
		}
	}
	sortByCreated(out, func(a db.Address) time.Time { return a.CreatedAt.Time }, func(a db.Address) pgtype.UUID { return a.ID }, true)
	return page(out, arg.Limit, arg.Offset), nil
}

func (m *Memory) CountAddresses(_ context.Context, arg db.CountAddressesParams) (int64, error) {
	if err := m.begin("CountAddresses"); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.st.addresses {
		if a.UserID.Bytes == arg.UserID.Bytes && a.Kind == arg.Kind {
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpdateAddress(_ context.Context, arg db.UpdateAddressParams) (db.Address, error) {
	if err := m.begin("UpdateAddress"); err != nil {
		return db.Address{}, err
	}
	defer m.mu.Unlock()
	a, ok := m.st.addresses[arg.ID.Bytes]
	if !ok {
		return db.Address{}, errNoRows
	}
	if !arg.CountryID.Valid || !exists(m.st.countries, arg.CountryID) {
		return db.Address{}, fkViolation("addresses_country_id_fkey")
	}
	if a.Kind != db.AddressKindBilling && arg.Vat.Valid {
		return db.Address{}, checkViolation("addresses_check")
	}
	a.FirstName = arg.FirstName
	a.LastName = arg.LastName
	a.Email = arg.Email
	a.Phone = arg.Phone
	a.Company = arg.Company
	a.Vat = arg.Vat
	a.Address = arg.Address
	a.City = arg.City
	a.State = arg.State
	a.ZipCode = arg.ZipCode
	a.CountryID = arg.CountryID
	a.UpdatedAt = m.stamp()
	m.st.addresses[a.ID.Bytes] = a
	return a, nil
}

func (m *Memory) AddressHasOrders(_ context.Context, addressID pgtype.UUID) (bool, error) {
	if err := m.begin("AddressHasOrders"); err != nil {
		return false, err
	}
	defer m.mu.Unlock()
	for _, o := range m.st.orders {
		if o.BillingID.Bytes == addressID.Bytes || (o.ShippingID.Valid && o.ShippingID.Bytes == addressID.Bytes) {
			return true, nil
		}
	}
	return false, nil
}
