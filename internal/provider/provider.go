package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/pkg/enums"
)

// SessionContext carries everything an adapter may need to open or update a
// payment attempt. Customer, billing address and the free-form context map are
// passed through opaquely from the caller.
type SessionContext struct {
	Amount         decimal.Decimal
	CurrencyCode   string
	ResourceID     string
	Email          string
	CustomerID     string
	BillingAddress map[string]any
	Context        map[string]any

	// SessionData is the provider's existing state blob when updating an
	// already-initiated session, nil on first initiation.
	SessionData json.RawMessage
}

// AuthorizeResult is what an adapter reports back from an authorization
// attempt.
type AuthorizeResult struct {
	Data   json.RawMessage
	Status enums.PaymentSessionStatus
}

// Error is the discriminated failure adapters report for processing problems.
// Transport-level errors are returned as plain errors.
type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Detail)
}

// Provider is the capability contract every payment processor plugin
// implements. All payloads are opaque provider-defined blobs; the caller never
// inspects them. Every method must be safe to retry: the gateway does not
// deduplicate calls, so adapters are expected to be idempotent with respect to
// their own stored state.
type Provider interface {
	// Identifier returns the stable id the registry resolves this adapter by.
	Identifier() string

	// InitiatePayment begins a new attempt. Called once per session.
	InitiatePayment(ctx context.Context, input SessionContext) (json.RawMessage, error)

	// UpdatePayment refreshes provider-side state for an existing session,
	// e.g. after the amount changed.
	UpdatePayment(ctx context.Context, input SessionContext) (json.RawMessage, error)

	// UpdatePaymentData applies a caller-supplied patch to the session blob.
	UpdatePaymentData(ctx context.Context, sessionID string, patch json.RawMessage) (json.RawMessage, error)

	// GetPaymentStatus reports the provider's view of the attempt.
	GetPaymentStatus(ctx context.Context, data json.RawMessage) (enums.PaymentSessionStatus, error)

	// AuthorizePayment attempts to place a hold for the session's amount.
	AuthorizePayment(ctx context.Context, data json.RawMessage, authContext map[string]any) (AuthorizeResult, error)

	// CapturePayment collects previously authorized funds.
	CapturePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// RefundPayment returns amount to the customer.
	RefundPayment(ctx context.Context, data json.RawMessage, amount decimal.Decimal) (json.RawMessage, error)

	// CancelPayment voids an authorization that has not been captured.
	CancelPayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

	// DeletePayment discards provider-side session state.
	DeletePayment(ctx context.Context, data json.RawMessage) error

	// RetrievePayment fetches the provider's current record for the attempt.
	RetrievePayment(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
}
