package payments

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/pkg/pagination"
)

// CreatePaymentCollectionInput describes one collection to open. Amount is a
// pointer so a missing amount can be told apart from an explicit zero;
// negative amounts are legal and represent net-refund flows.
type CreatePaymentCollectionInput struct {
	RegionID     uuid.UUID
	CurrencyCode string
	Amount       *decimal.Decimal
}

type UpdatePaymentCollectionInput struct {
	ID           uuid.UUID
	RegionID     *uuid.UUID
	CurrencyCode *string
}

// SessionInput is one row of the target session set passed to
// SetPaymentSessions. SessionID references an existing session to keep and
// update; a nil SessionID asks for a fresh session with the given provider.
type SessionInput struct {
	SessionID  *uuid.UUID
	ProviderID string
	Amount     decimal.Decimal
}

// SessionsContext carries the transaction context forwarded to providers when
// sessions are created or updated.
type SessionsContext struct {
	ResourceID     string
	Email          string
	CustomerID     string
	BillingAddress map[string]any
	Context        map[string]any
}

type UpdatePaymentSessionInput struct {
	ID     uuid.UUID
	Amount *decimal.Decimal
	Data   json.RawMessage
}

type CapturePaymentInput struct {
	PaymentID  uuid.UUID
	Amount     decimal.Decimal
	CapturedBy *uuid.UUID
}

type RefundPaymentInput struct {
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	CreatedBy *uuid.UUID
}

// UpdatePaymentInput adjusts correlation ids or provider data on a payment.
type UpdatePaymentInput struct {
	ID          uuid.UUID
	Data        json.RawMessage
	CartID      *uuid.UUID
	OrderID     *uuid.UUID
	OrderEditID *uuid.UUID
	CustomerID  *uuid.UUID
}

// RetrieveOptions controls relation loading on single-collection reads.
type RetrieveOptions struct {
	WithSessions bool
	WithPayments bool
}

// ListCollectionsParams filters and paginates collection listings.
type ListCollectionsParams struct {
	IDs        []uuid.UUID
	RegionID   *uuid.UUID
	Pagination pagination.Params
	RetrieveOptions
}
