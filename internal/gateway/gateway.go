// Package gateway is the single choke point between the orchestration service
// and provider plugins. Every call resolves the adapter through the registry,
// runs under a per-call timeout, and comes back either clean or as a typed
// provider error the caller can surface without inspecting adapter internals.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/internal/registry"
	"github.com/harborline/payments-core/pkg/enums"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/logger"
	"github.com/harborline/payments-core/pkg/metrics"
)

// ErrorDetails is attached to provider failures so API clients can react to
// the processor's own code without parsing messages.
type ErrorDetails struct {
	ProviderID string `json:"provider_id"`
	Code       string `json:"code,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type Gateway struct {
	registry    *registry.Registry
	metrics     *metrics.ProviderCallMetrics
	logger      *logger.Logger
	callTimeout time.Duration
}

func New(reg *registry.Registry, met *metrics.ProviderCallMetrics, logg *logger.Logger, callTimeout time.Duration) (*Gateway, error) {
	if reg == nil {
		return nil, fmt.Errorf("provider registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Gateway{
		registry:    reg,
		metrics:     met,
		logger:      logg,
		callTimeout: callTimeout,
	}, nil
}

func (g *Gateway) InitiateSession(ctx context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error) {
	var data json.RawMessage
	err := g.call(ctx, providerID, "initiate_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		data, callErr = p.InitiatePayment(ctx, input)
		return callErr
	})
	return data, err
}

func (g *Gateway) UpdateSession(ctx context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error) {
	var data json.RawMessage
	err := g.call(ctx, providerID, "update_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		data, callErr = p.UpdatePayment(ctx, input)
		return callErr
	})
	return data, err
}

func (g *Gateway) UpdateSessionData(ctx context.Context, providerID, sessionID string, patch json.RawMessage) (json.RawMessage, error) {
	var data json.RawMessage
	err := g.call(ctx, providerID, "update_payment_data", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		data, callErr = p.UpdatePaymentData(ctx, sessionID, patch)
		return callErr
	})
	return data, err
}

// RefreshSession is part of the session surface but no provider contract
// backs it, so it always fails loudly instead of pretending to refresh.
func (g *Gateway) RefreshSession(ctx context.Context, providerID, sessionID string) (json.RawMessage, error) {
	if _, err := g.registry.Get(providerID); err != nil {
		return nil, err
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeNotAllowed,
		"refreshing a payment session is not supported by provider %s", providerID)
}

func (g *Gateway) GetStatus(ctx context.Context, providerID string, data json.RawMessage) (enums.PaymentSessionStatus, error) {
	var status enums.PaymentSessionStatus
	err := g.call(ctx, providerID, "get_payment_status", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		status, callErr = p.GetPaymentStatus(ctx, data)
		return callErr
	})
	return status, err
}

func (g *Gateway) Authorize(ctx context.Context, providerID string, data json.RawMessage, authContext map[string]any) (provider.AuthorizeResult, error) {
	var result provider.AuthorizeResult
	err := g.call(ctx, providerID, "authorize_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		result, callErr = p.AuthorizePayment(ctx, data, authContext)
		return callErr
	})
	return result, err
}

func (g *Gateway) Capture(ctx context.Context, providerID string, data json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := g.call(ctx, providerID, "capture_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		out, callErr = p.CapturePayment(ctx, data)
		return callErr
	})
	return out, err
}

func (g *Gateway) Refund(ctx context.Context, providerID string, data json.RawMessage, amount decimal.Decimal) (json.RawMessage, error) {
	var out json.RawMessage
	err := g.call(ctx, providerID, "refund_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		out, callErr = p.RefundPayment(ctx, data, amount)
		return callErr
	})
	return out, err
}

func (g *Gateway) Cancel(ctx context.Context, providerID string, data json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := g.call(ctx, providerID, "cancel_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		out, callErr = p.CancelPayment(ctx, data)
		return callErr
	})
	return out, err
}

func (g *Gateway) Delete(ctx context.Context, providerID string, data json.RawMessage) error {
	return g.call(ctx, providerID, "delete_payment", func(ctx context.Context, p provider.Provider) error {
		return p.DeletePayment(ctx, data)
	})
}

func (g *Gateway) Retrieve(ctx context.Context, providerID string, data json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := g.call(ctx, providerID, "retrieve_payment", func(ctx context.Context, p provider.Provider) error {
		var callErr error
		out, callErr = p.RetrievePayment(ctx, data)
		return callErr
	})
	return out, err
}

func (g *Gateway) call(ctx context.Context, providerID, operation string, fn func(ctx context.Context, p provider.Provider) error) error {
	p, err := g.registry.Get(providerID)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	start := time.Now()
	callErr := fn(callCtx, p)
	elapsed := time.Since(start)

	g.metrics.ObserveDuration(providerID, operation, elapsed)
	if callErr == nil {
		g.metrics.IncSuccess(providerID, operation)
		return nil
	}
	g.metrics.IncFailure(providerID, operation)

	logCtx := g.logger.WithFields(ctx, map[string]any{
		"provider_id": providerID,
		"operation":   operation,
		"duration_ms": elapsed.Milliseconds(),
	})
	g.logger.Error(logCtx, "payment provider call failed", callErr)

	return normalizeError(providerID, operation, callErr)
}

// normalizeError converts whatever an adapter returned into the single
// provider error code, keeping the adapter's own code and detail as details.
func normalizeError(providerID, operation string, err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err,
			fmt.Sprintf("provider %s failed to %s", providerID, describeOperation(operation))).
			WithDetails(ErrorDetails{
				ProviderID: providerID,
				Code:       provErr.Code,
				Detail:     provErr.Detail,
			})
	}

	return pkgerrors.Wrap(pkgerrors.CodeProvider, err,
		fmt.Sprintf("provider %s failed to %s", providerID, describeOperation(operation))).
		WithDetails(ErrorDetails{ProviderID: providerID})
}

func describeOperation(operation string) string {
	switch operation {
	case "initiate_payment":
		return "initiate the payment session"
	case "update_payment":
		return "update the payment session"
	case "update_payment_data":
		return "update the payment session data"
	case "get_payment_status":
		return "report the payment status"
	case "authorize_payment":
		return "authorize the payment"
	case "capture_payment":
		return "capture the payment"
	case "refund_payment":
		return "refund the payment"
	case "cancel_payment":
		return "cancel the payment"
	case "delete_payment":
		return "delete the payment session"
	case "retrieve_payment":
		return "retrieve the payment"
	default:
		return operation
	}
}
