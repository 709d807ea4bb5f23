package enums

import "fmt"

// PaymentSessionStatus is the provider-facing state of one payment attempt.
type PaymentSessionStatus string

const (
	PaymentSessionStatusPending      PaymentSessionStatus = "pending"
	PaymentSessionStatusAuthorized   PaymentSessionStatus = "authorized"
	PaymentSessionStatusRequiresMore PaymentSessionStatus = "requires_more"
	PaymentSessionStatusError        PaymentSessionStatus = "error"
	PaymentSessionStatusCanceled     PaymentSessionStatus = "canceled"
)

var validPaymentSessionStatuses = []PaymentSessionStatus{
	PaymentSessionStatusPending,
	PaymentSessionStatusAuthorized,
	PaymentSessionStatusRequiresMore,
	PaymentSessionStatusError,
	PaymentSessionStatusCanceled,
}

// String implements fmt.Stringer.
func (p PaymentSessionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentSessionStatus.
func (p PaymentSessionStatus) IsValid() bool {
	for _, candidate := range validPaymentSessionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentSessionStatus converts raw input into a PaymentSessionStatus.
func ParsePaymentSessionStatus(value string) (PaymentSessionStatus, error) {
	for _, candidate := range validPaymentSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment session status %q", value)
}
