package enums

import "fmt"

// CheckoutPhase describes how far a user has progressed toward placing an order.
type CheckoutPhase string

const (
	CheckoutPhaseNoAddress       CheckoutPhase = "NO_ADDRESS"
	CheckoutPhaseAddressSet      CheckoutPhase = "ADDRESS_SET"
	CheckoutPhaseReadyForPayment CheckoutPhase = "READY_FOR_PAYMENT"
	CheckoutPhaseOrderPlaced     CheckoutPhase = "ORDER_PLACED"
)

var validCheckoutPhases = []CheckoutPhase{
	CheckoutPhaseNoAddress,
	CheckoutPhaseAddressSet,
	CheckoutPhaseReadyForPayment,
	CheckoutPhaseOrderPlaced,
}

// String implements fmt.Stringer.
func (p CheckoutPhase) String() string {
	return string(p)
}

// IsValid reports whether the value is a known CheckoutPhase.
func (p CheckoutPhase) IsValid() bool {
	for _, candidate := range validCheckoutPhases {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseCheckoutPhase converts raw input into a CheckoutPhase.
func ParseCheckoutPhase(value string) (CheckoutPhase, error) {
	for _, candidate := range validCheckoutPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout phase %q", value)
}
