package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EmptyCartError reports a purchase attempt with nothing in the cart.
type EmptyCartError struct{}

func (e *EmptyCartError) Error() string {
	return "cart is empty"
}

// NoShippingAddressError reports a purchase attempt before an address is on file.
type NoShippingAddressError struct{}

func (e *NoShippingAddressError) Error() string {
	return "no shipping address on file"
}

// NoValidVoucherError reports a purchase attempt without an unused voucher
// that covers the cart total.
type NoValidVoucherError struct {
	Total decimal.Decimal
}

func (e *NoValidVoucherError) Error() string {
	return fmt.Sprintf("no unused voucher covers the cart total %s", e.Total)
}

// IsEmptyCart reports whether err wraps an EmptyCartError.
func IsEmptyCart(err error) bool {
	var target *EmptyCartError
	return errors.As(err, &target)
}

// IsNoShippingAddress reports whether err wraps a NoShippingAddressError.
func IsNoShippingAddress(err error) bool {
	var target *NoShippingAddressError
	return errors.As(err, &target)
}

// IsNoValidVoucher reports whether err wraps a NoValidVoucherError.
func IsNoValidVoucher(err error) bool {
	var target *NoValidVoucherError
	return errors.As(err, &target)
}
