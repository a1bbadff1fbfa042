package cart

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/db"
)

var (
	// ErrNotFound covers missing carts and carts owned by someone else.
	ErrNotFound = errors.New("cart not found")
	// ErrAddressNotFound is returned when a referenced address is missing or foreign.
	ErrAddressNotFound = errors.New("address not found")
	// ErrConfiguration is returned when the destination has no VAT or currency setup.
	ErrConfiguration = errors.New("destination is not configured")
)

func notFound(err error) error {
	return common.NotFound("cart not found", err)
}

func addressNotFound(kind db.AddressKind) error {
	return common.NotFound(string(kind)+" address not found", fmt.Errorf("%w: %s", ErrAddressNotFound, kind))
}

// ConfigurationError wraps err as a 409 CONFIGURATION_ERROR.
func ConfigurationError(err error) error {
	return common.Conflict("CONFIGURATION_ERROR", "destination country is not configured", fmt.Errorf("%w: %v", ErrConfiguration, err))
}

func invalidCoupon(err error) error {
	return common.NewAppError("INVALID_COUPON", "coupon code is invalid", http.StatusBadRequest, err)
}

func storeError(op string, err error) error {
	if common.IsAppError(err) {
		return err
	}
	if db.IsForeignKeyViolation(err) {
		return common.Conflict("REFERENCE_CONFLICT", "a referenced record no longer exists", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
