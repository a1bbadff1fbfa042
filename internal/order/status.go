package order

import (
	"strings"

	"github.com/noah-isme/backend-storefront/internal/db"
)

var transitions = map[db.OrderStatus][]db.OrderStatus{
	db.OrderStatusPending: {db.OrderStatusPaid, db.OrderStatusCancelled},
	db.OrderStatusPaid:    {db.OrderStatusShipped, db.OrderStatusCancelled},
	db.OrderStatusShipped: {db.OrderStatusRefunded},
}

// ParseStatus maps a client-supplied status onto a known one.
func ParseStatus(s string) (db.OrderStatus, bool) {
	switch st := db.OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case db.OrderStatusPending, db.OrderStatusPaid, db.OrderStatusShipped, db.OrderStatusRefunded, db.OrderStatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransition reports whether an order in from may move to to.
func CanTransition(from, to db.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
