package enums

import "fmt"

// VoucherStatus tracks whether a voucher is still spendable.
type VoucherStatus string

const (
	VoucherStatusUnused   VoucherStatus = "unused"
	VoucherStatusRedeemed VoucherStatus = "redeemed"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusUnused,
	VoucherStatusRedeemed,
}

// String implements fmt.Stringer.
func (s VoucherStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VoucherStatus.
func (s VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVoucherStatus converts raw input into a VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}
