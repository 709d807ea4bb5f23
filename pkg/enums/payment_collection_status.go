package enums

import "fmt"

// PaymentCollectionStatus tracks how much of a collection's amount has been
// authorized.
type PaymentCollectionStatus string

const (
	PaymentCollectionStatusNotPaid             PaymentCollectionStatus = "not_paid"
	PaymentCollectionStatusAwaiting            PaymentCollectionStatus = "awaiting"
	PaymentCollectionStatusPartiallyAuthorized PaymentCollectionStatus = "partially_authorized"
	PaymentCollectionStatusAuthorized          PaymentCollectionStatus = "authorized"
	PaymentCollectionStatusCanceled            PaymentCollectionStatus = "canceled"
)

var validPaymentCollectionStatuses = []PaymentCollectionStatus{
	PaymentCollectionStatusNotPaid,
	PaymentCollectionStatusAwaiting,
	PaymentCollectionStatusPartiallyAuthorized,
	PaymentCollectionStatusAuthorized,
	PaymentCollectionStatusCanceled,
}

// String implements fmt.Stringer.
func (p PaymentCollectionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentCollectionStatus.
func (p PaymentCollectionStatus) IsValid() bool {
	for _, candidate := range validPaymentCollectionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentCollectionStatus converts raw input into a PaymentCollectionStatus.
func ParsePaymentCollectionStatus(value string) (PaymentCollectionStatus, error) {
	for _, candidate := range validPaymentCollectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment collection status %q", value)
}
