package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicAddressUpdated     = "address.updated"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// AddressUpdated is the payload of TopicAddressUpdated.
type AddressUpdated struct {
	AddressID     string   `json:"address_id"`
	Kind          string   `json:"kind"`
	RepricedCarts []string `json:"repriced_carts"`
}

// OrderCreated is the payload of TopicOrderCreated.
type OrderCreated struct {
	OrderID      string `json:"order_id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	CurrencyCode string `json:"currency_code"`
	TotalPrice   string `json:"total_price"`
}

// OrderStatusChanged is the payload of TopicOrderStatusChanged.
type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// NotifiableTopics lists the topics that trigger customer email.
func NotifiableTopics() []string {
	return []string{TopicOrderCreated, TopicOrderStatusChanged}
}
