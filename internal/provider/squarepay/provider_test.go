package squarepay

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/pkg/config"
	"github.com/harborline/payments-core/pkg/enums"
	"github.com/harborline/payments-core/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(config.SquareConfig{
		AccessToken: "test-token",
		Env:         "sandbox",
		LocationID:  "L123",
	}, testLogger())
	require.NoError(t, err)
	return p
}

func TestNewValidatesConfig(t *testing.T) {
	logg := testLogger()

	_, err := New(config.SquareConfig{Env: "sandbox", LocationID: "L123"}, logg)
	require.ErrorIs(t, err, errAccessTokenRequired)

	_, err = New(config.SquareConfig{AccessToken: "tok", Env: "sandbox"}, logg)
	require.ErrorIs(t, err, errLocationRequired)

	_, err = New(config.SquareConfig{AccessToken: "tok", Env: "staging", LocationID: "L123"}, logg)
	require.ErrorIs(t, err, errInvalidEnv)

	_, err = New(config.SquareConfig{AccessToken: "tok", Env: "sandbox", LocationID: "L123"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)
}

func TestInitiateMintsIdempotencyKey(t *testing.T) {
	p := newTestProvider(t)

	blob, err := p.InitiatePayment(context.Background(), provider.SessionContext{
		Amount:       decimal.NewFromFloat(49.99),
		CurrencyCode: "usd",
		ResourceID:   "cart_01",
	})
	require.NoError(t, err)

	var data sessionData
	require.NoError(t, json.Unmarshal(blob, &data))
	require.NotEmpty(t, data.IdempotencyKey)
	require.Equal(t, int64(4999), data.AmountCents)
	require.Equal(t, "usd", data.CurrencyCode)
	require.Empty(t, data.PaymentID)
}

func TestUpdateRotatesKeyOnAmountChange(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	blob, err := p.InitiatePayment(ctx, provider.SessionContext{
		Amount:       decimal.NewFromInt(100),
		CurrencyCode: "usd",
	})
	require.NoError(t, err)

	var before sessionData
	require.NoError(t, json.Unmarshal(blob, &before))

	updated, err := p.UpdatePayment(ctx, provider.SessionContext{
		Amount:       decimal.NewFromInt(150),
		CurrencyCode: "usd",
		SessionData:  blob,
	})
	require.NoError(t, err)

	var after sessionData
	require.NoError(t, json.Unmarshal(updated, &after))
	require.Equal(t, int64(15000), after.AmountCents)
	require.NotEqual(t, before.IdempotencyKey, after.IdempotencyKey)
}

func TestUpdateKeepsKeyWhenAmountUnchanged(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	blob, err := p.InitiatePayment(ctx, provider.SessionContext{
		Amount:       decimal.NewFromInt(100),
		CurrencyCode: "usd",
	})
	require.NoError(t, err)

	var before sessionData
	require.NoError(t, json.Unmarshal(blob, &before))

	updated, err := p.UpdatePayment(ctx, provider.SessionContext{
		Amount:       decimal.NewFromInt(100),
		CurrencyCode: "USD",
		SessionData:  blob,
	})
	require.NoError(t, err)

	var after sessionData
	require.NoError(t, json.Unmarshal(updated, &after))
	require.Equal(t, before.IdempotencyKey, after.IdempotencyKey)
}

func TestUpdateAfterAuthorizationFails(t *testing.T) {
	p := newTestProvider(t)

	blob, err := marshalSessionData(sessionData{PaymentID: "sq_pay_1", AmountCents: 100})
	require.NoError(t, err)

	_, err = p.UpdatePayment(context.Background(), provider.SessionContext{
		Amount:      decimal.NewFromInt(2),
		SessionData: blob,
	})
	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "payment_already_created", provErr.Code)
}

func TestAuthorizeRequiresSourceID(t *testing.T) {
	p := newTestProvider(t)

	blob, err := p.InitiatePayment(context.Background(), provider.SessionContext{
		Amount:       decimal.NewFromInt(10),
		CurrencyCode: "usd",
	})
	require.NoError(t, err)

	_, err = p.AuthorizePayment(context.Background(), blob, nil)
	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "source_id_required", provErr.Code)
}

func TestCaptureWithoutPaymentFails(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.CapturePayment(context.Background(), json.RawMessage(`{}`))
	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "payment_not_created", provErr.Code)
}

func TestMapPaymentStatus(t *testing.T) {
	require.Equal(t, enums.PaymentSessionStatusAuthorized, mapPaymentStatus("APPROVED"))
	require.Equal(t, enums.PaymentSessionStatusAuthorized, mapPaymentStatus("COMPLETED"))
	require.Equal(t, enums.PaymentSessionStatusCanceled, mapPaymentStatus("CANCELED"))
	require.Equal(t, enums.PaymentSessionStatusError, mapPaymentStatus("FAILED"))
	require.Equal(t, enums.PaymentSessionStatusPending, mapPaymentStatus("PENDING"))
	require.Equal(t, enums.PaymentSessionStatusPending, mapPaymentStatus(""))
}

func TestToCentsRounds(t *testing.T) {
	require.Equal(t, int64(4999), toCents(decimal.NewFromFloat(49.99)))
	require.Equal(t, int64(100), toCents(decimal.NewFromInt(1)))
	require.Equal(t, int64(1000), toCents(decimal.RequireFromString("9.999")))
}
