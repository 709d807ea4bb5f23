// Package systempay implements the built-in pass-through provider. It keeps no
// remote state and authorizes everything, which makes it the provider of
// choice for manual payment flows (wire transfer, cash on delivery) and tests.
package systempay

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/pkg/enums"
)

const Identifier = "system"

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Identifier() string {
	return Identifier
}

func (p *Provider) InitiatePayment(_ context.Context, _ provider.SessionContext) (json.RawMessage, error) {
	return emptyData(), nil
}

func (p *Provider) UpdatePayment(_ context.Context, input provider.SessionContext) (json.RawMessage, error) {
	if len(input.SessionData) > 0 {
		return input.SessionData, nil
	}
	return emptyData(), nil
}

func (p *Provider) UpdatePaymentData(_ context.Context, _ string, patch json.RawMessage) (json.RawMessage, error) {
	if len(patch) > 0 {
		return patch, nil
	}
	return emptyData(), nil
}

func (p *Provider) GetPaymentStatus(_ context.Context, _ json.RawMessage) (enums.PaymentSessionStatus, error) {
	return enums.PaymentSessionStatusAuthorized, nil
}

func (p *Provider) AuthorizePayment(_ context.Context, data json.RawMessage, _ map[string]any) (provider.AuthorizeResult, error) {
	if len(data) == 0 {
		data = emptyData()
	}
	return provider.AuthorizeResult{
		Data:   data,
		Status: enums.PaymentSessionStatusAuthorized,
	}, nil
}

func (p *Provider) CapturePayment(_ context.Context, data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		data = emptyData()
	}
	return data, nil
}

func (p *Provider) RefundPayment(_ context.Context, data json.RawMessage, _ decimal.Decimal) (json.RawMessage, error) {
	if len(data) == 0 {
		data = emptyData()
	}
	return data, nil
}

func (p *Provider) CancelPayment(_ context.Context, data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		data = emptyData()
	}
	return data, nil
}

func (p *Provider) DeletePayment(_ context.Context, _ json.RawMessage) error {
	return nil
}

func (p *Provider) RetrievePayment(_ context.Context, data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		data = emptyData()
	}
	return data, nil
}

func emptyData() json.RawMessage {
	return json.RawMessage(`{}`)
}
