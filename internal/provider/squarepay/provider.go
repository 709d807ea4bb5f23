// Package squarepay adapts the Square Payments API to the provider contract.
// Session state is a small JSON blob carrying the idempotency key minted at
// initiation and, once authorized, the Square payment id.
package squarepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/pkg/config"
	"github.com/harborline/payments-core/pkg/enums"
	"github.com/harborline/payments-core/pkg/logger"
)

const Identifier = "square"

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errLoggerRequired      = errors.New("square logger is required")
	errInvalidEnv          = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

type Provider struct {
	sdk        *sqclient.Client
	locationID string
	logger     *logger.Logger
}

func New(cfg config.SquareConfig, logg *logger.Logger) (*Provider, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidEnv
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	return &Provider{
		sdk:        sdk,
		locationID: locationID,
		logger:     logg,
	}, nil
}

func (p *Provider) Identifier() string {
	return Identifier
}

// sessionData is the blob this adapter round-trips through the session record.
type sessionData struct {
	IdempotencyKey string `json:"idempotency_key"`
	PaymentID      string `json:"payment_id,omitempty"`
	AmountCents    int64  `json:"amount_cents"`
	CurrencyCode   string `json:"currency_code"`
	Status         string `json:"status,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
}

// InitiatePayment does not call Square. The payment is created lazily at
// authorization time, when a source id is available; here we only mint the
// idempotency key so retries of the eventual create converge on one payment.
func (p *Provider) InitiatePayment(_ context.Context, input provider.SessionContext) (json.RawMessage, error) {
	data := sessionData{
		IdempotencyKey: newIdempotencyKey(),
		AmountCents:    toCents(input.Amount),
		CurrencyCode:   input.CurrencyCode,
		CustomerID:     input.CustomerID,
		ReferenceID:    input.ResourceID,
	}
	return marshalSessionData(data)
}

// UpdatePayment refreshes the staged amount. A changed amount invalidates the
// old idempotency key, otherwise Square would replay the original create.
func (p *Provider) UpdatePayment(_ context.Context, input provider.SessionContext) (json.RawMessage, error) {
	data, err := parseSessionData(input.SessionData)
	if err != nil {
		return nil, err
	}
	if data.PaymentID != "" {
		return nil, &provider.Error{
			Code:   "payment_already_created",
			Detail: "cannot update a square session after authorization",
		}
	}
	cents := toCents(input.Amount)
	if cents != data.AmountCents || !strings.EqualFold(input.CurrencyCode, data.CurrencyCode) {
		data.IdempotencyKey = newIdempotencyKey()
	}
	data.AmountCents = cents
	data.CurrencyCode = input.CurrencyCode
	if input.CustomerID != "" {
		data.CustomerID = input.CustomerID
	}
	return marshalSessionData(data)
}

func (p *Provider) UpdatePaymentData(_ context.Context, _ string, patch json.RawMessage) (json.RawMessage, error) {
	data, err := parseSessionData(patch)
	if err != nil {
		return nil, err
	}
	return marshalSessionData(data)
}

func (p *Provider) GetPaymentStatus(ctx context.Context, raw json.RawMessage) (enums.PaymentSessionStatus, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return "", err
	}
	if data.PaymentID == "" {
		return enums.PaymentSessionStatusPending, nil
	}

	payment, err := p.getPayment(ctx, data.PaymentID)
	if err != nil {
		return "", err
	}
	return mapPaymentStatus(stringValue(payment.GetStatus())), nil
}

// AuthorizePayment creates the Square payment without autocomplete, which
// places a hold that a later capture completes. The tokenized source comes in
// through the authorization context under "source_id".
func (p *Provider) AuthorizePayment(ctx context.Context, raw json.RawMessage, authContext map[string]any) (provider.AuthorizeResult, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return provider.AuthorizeResult{}, err
	}

	if data.PaymentID != "" {
		// Retried authorization. Report the current state instead of creating
		// a second payment.
		payment, err := p.getPayment(ctx, data.PaymentID)
		if err != nil {
			return provider.AuthorizeResult{}, err
		}
		return p.resultFromPayment(data, payment)
	}

	sourceID, _ := authContext["source_id"].(string)
	if strings.TrimSpace(sourceID) == "" {
		return provider.AuthorizeResult{}, &provider.Error{
			Code:   "source_id_required",
			Detail: "square authorization requires a source_id in the payment context",
		}
	}
	if data.IdempotencyKey == "" {
		data.IdempotencyKey = newIdempotencyKey()
	}

	req := &sq.CreatePaymentRequest{
		IdempotencyKey: data.IdempotencyKey,
		SourceID:       sourceID,
		LocationID:     ptrString(p.locationID),
		AmountMoney:    moneyPtr(data.AmountCents, data.CurrencyCode),
		Autocomplete:   ptrBool(false),
	}
	if data.CustomerID != "" {
		req.CustomerID = ptrString(data.CustomerID)
	}
	if data.ReferenceID != "" {
		req.ReferenceID = ptrString(data.ReferenceID)
	}

	p.log(ctx, "request", "create_payment", map[string]any{
		"location_id":  p.locationID,
		"amount_cents": data.AmountCents,
		"currency":     data.CurrencyCode,
	})
	resp, err := p.sdk.Payments.Create(ctx, req)
	if err != nil {
		p.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return provider.AuthorizeResult{}, p.mapError(err, "create payment")
	}

	payment := resp.GetPayment()
	p.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	})
	return p.resultFromPayment(data, payment)
}

func (p *Provider) CapturePayment(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return nil, err
	}
	if data.PaymentID == "" {
		return nil, &provider.Error{Code: "payment_not_created", Detail: "no square payment to capture"}
	}

	p.log(ctx, "request", "complete_payment", map[string]any{"payment_id": data.PaymentID})
	resp, err := p.sdk.Payments.Complete(ctx, &sq.CompletePaymentRequest{PaymentID: data.PaymentID})
	if err != nil {
		p.log(ctx, "error", "complete_payment", map[string]any{"error": err.Error()})
		return nil, p.mapError(err, "complete payment")
	}

	payment := resp.GetPayment()
	data.Status = stringValue(payment.GetStatus())
	p.log(ctx, "response", "complete_payment", map[string]any{
		"payment_id": data.PaymentID,
		"status":     data.Status,
	})
	return marshalSessionData(data)
}

func (p *Provider) RefundPayment(ctx context.Context, raw json.RawMessage, amount decimal.Decimal) (json.RawMessage, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return nil, err
	}
	if data.PaymentID == "" {
		return nil, &provider.Error{Code: "payment_not_created", Detail: "no square payment to refund"}
	}

	req := &sq.RefundPaymentRequest{
		IdempotencyKey: newIdempotencyKey(),
		PaymentID:      ptrString(data.PaymentID),
		AmountMoney:    moneyPtr(toCents(amount), data.CurrencyCode),
	}
	p.log(ctx, "request", "refund_payment", map[string]any{
		"payment_id":   data.PaymentID,
		"amount_cents": toCents(amount),
	})
	resp, err := p.sdk.Refunds.RefundPayment(ctx, req)
	if err != nil {
		p.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return nil, p.mapError(err, "refund payment")
	}

	refund := resp.GetRefund()
	p.log(ctx, "response", "refund_payment", map[string]any{
		"payment_id": data.PaymentID,
		"refund_id":  stringValue(refund.GetID()),
	})
	return marshalSessionData(data)
}

func (p *Provider) CancelPayment(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return nil, err
	}
	if data.PaymentID == "" {
		// Nothing was created on Square's side, so there is nothing to void.
		return marshalSessionData(data)
	}

	p.log(ctx, "request", "cancel_payment", map[string]any{"payment_id": data.PaymentID})
	resp, err := p.sdk.Payments.Cancel(ctx, &sq.CancelPaymentsRequest{PaymentID: data.PaymentID})
	if err != nil {
		p.log(ctx, "error", "cancel_payment", map[string]any{"error": err.Error()})
		return nil, p.mapError(err, "cancel payment")
	}

	payment := resp.GetPayment()
	data.Status = stringValue(payment.GetStatus())
	p.log(ctx, "response", "cancel_payment", map[string]any{
		"payment_id": data.PaymentID,
		"status":     data.Status,
	})
	return marshalSessionData(data)
}

// DeletePayment voids any uncaptured hold; discarding local state is the
// caller's job.
func (p *Provider) DeletePayment(ctx context.Context, raw json.RawMessage) error {
	data, err := parseSessionData(raw)
	if err != nil {
		return err
	}
	if data.PaymentID == "" {
		return nil
	}
	if _, err := p.CancelPayment(ctx, raw); err != nil {
		return err
	}
	return nil
}

func (p *Provider) RetrievePayment(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	data, err := parseSessionData(raw)
	if err != nil {
		return nil, err
	}
	if data.PaymentID == "" {
		return marshalSessionData(data)
	}

	payment, err := p.getPayment(ctx, data.PaymentID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payment)
}

func (p *Provider) getPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	resp, err := p.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: paymentID})
	if err != nil {
		return nil, p.mapError(err, "get payment")
	}
	return resp.GetPayment(), nil
}

func (p *Provider) resultFromPayment(data sessionData, payment *sq.Payment) (provider.AuthorizeResult, error) {
	data.PaymentID = stringValue(payment.GetID())
	data.Status = stringValue(payment.GetStatus())
	blob, err := marshalSessionData(data)
	if err != nil {
		return provider.AuthorizeResult{}, err
	}
	return provider.AuthorizeResult{
		Data:   blob,
		Status: mapPaymentStatus(data.Status),
	}, nil
}

// mapError translates SDK failures into the discriminated provider error so
// the gateway can surface Square's own code and detail. Transport failures
// pass through as plain errors and stay retryable.
func (p *Provider) mapError(err error, op string) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("square %s: %w", op, err)
	}

	code := fmt.Sprintf("http_%d", apiErr.StatusCode)
	detail := fmt.Sprintf("square %s failed", op)
	for _, sqErr := range extractSquareErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		code = strings.ToLower(string(sqErr.Code))
		if sqErr.Detail != nil && *sqErr.Detail != "" {
			detail = *sqErr.Detail
		}
		break
	}
	return &provider.Error{Code: code, Detail: detail}
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func mapPaymentStatus(status string) enums.PaymentSessionStatus {
	switch strings.ToUpper(status) {
	case "APPROVED", "COMPLETED":
		return enums.PaymentSessionStatusAuthorized
	case "CANCELED":
		return enums.PaymentSessionStatusCanceled
	case "FAILED":
		return enums.PaymentSessionStatusError
	default:
		return enums.PaymentSessionStatusPending
	}
}

func parseSessionData(raw json.RawMessage) (sessionData, error) {
	var data sessionData
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decoding square session data: %w", err)
	}
	return data, nil
}

func marshalSessionData(data sessionData) (json.RawMessage, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding square session data: %w", err)
	}
	return blob, nil
}

func newIdempotencyKey() string {
	return fmt.Sprintf("paycore-%s", uuid.NewString())
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (p *Provider) log(ctx context.Context, phase, op string, fields map[string]any) {
	if p.logger == nil {
		return
	}
	logFields := map[string]any{
		"provider":  Identifier,
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = p.logger.WithFields(ctx, logFields)
	if phase == "error" {
		p.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
		return
	}
	p.logger.Info(ctx, fmt.Sprintf("square %s", phase))
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func ptrBool(value bool) *bool {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
