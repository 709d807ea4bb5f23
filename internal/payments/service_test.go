package payments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/outbox"
)

// fakeGateway fulfils the gateway contract with pass-through defaults that
// individual tests override.
type fakeGateway struct {
	initiateFn  func(providerID string, input provider.SessionContext) (json.RawMessage, error)
	updateFn    func(providerID string, input provider.SessionContext) (json.RawMessage, error)
	authorizeFn func(providerID string, data json.RawMessage) (provider.AuthorizeResult, error)
	captureFn   func(providerID string, data json.RawMessage) (json.RawMessage, error)
	refundFn    func(providerID string, data json.RawMessage, amount decimal.Decimal) (json.RawMessage, error)
	cancelFn    func(providerID string, data json.RawMessage) (json.RawMessage, error)

	initiated []string
	deleted   []string
	captured  []string
	refunded  []string
	canceled  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (f *fakeGateway) InitiateSession(_ context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error) {
	f.initiated = append(f.initiated, providerID)
	if f.initiateFn != nil {
		return f.initiateFn(providerID, input)
	}
	return json.RawMessage(`{"init":true}`), nil
}

func (f *fakeGateway) UpdateSession(_ context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error) {
	if f.updateFn != nil {
		return f.updateFn(providerID, input)
	}
	if len(input.SessionData) > 0 {
		return input.SessionData, nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeGateway) RefreshSession(_ context.Context, providerID, _ string) (json.RawMessage, error) {
	return nil, pkgerrors.Newf(pkgerrors.CodeNotAllowed,
		"refreshing a payment session is not supported by provider %s", providerID)
}

func (f *fakeGateway) Authorize(_ context.Context, providerID string, data json.RawMessage, _ map[string]any) (provider.AuthorizeResult, error) {
	if f.authorizeFn != nil {
		return f.authorizeFn(providerID, data)
	}
	return provider.AuthorizeResult{Data: data, Status: enums.PaymentSessionStatusAuthorized}, nil
}

func (f *fakeGateway) Capture(_ context.Context, providerID string, data json.RawMessage) (json.RawMessage, error) {
	f.captured = append(f.captured, providerID)
	if f.captureFn != nil {
		return f.captureFn(providerID, data)
	}
	return data, nil
}

func (f *fakeGateway) Refund(_ context.Context, providerID string, data json.RawMessage, amount decimal.Decimal) (json.RawMessage, error) {
	f.refunded = append(f.refunded, providerID)
	if f.refundFn != nil {
		return f.refundFn(providerID, data, amount)
	}
	return data, nil
}

func (f *fakeGateway) Cancel(_ context.Context, providerID string, data json.RawMessage) (json.RawMessage, error) {
	f.canceled = append(f.canceled, providerID)
	if f.cancelFn != nil {
		return f.cancelFn(providerID, data)
	}
	return data, nil
}

func (f *fakeGateway) Delete(_ context.Context, providerID string, _ json.RawMessage) error {
	f.deleted = append(f.deleted, providerID)
	return nil
}

// fakeEmitter records queued domain events.
type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

type testEnv struct {
	client  *db.Client
	repo    Repository
	gateway *fakeGateway
	emitter *fakeEmitter
	service Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := setupPaymentsTestDB(t)
	repo := NewRepository(client.DB())
	gw := newFakeGateway()
	emitter := &fakeEmitter{}

	svc, err := NewService(client, repo, gw, emitter, NoopLocker{}, testLogger())
	require.NoError(t, err)

	return &testEnv{client: client, repo: repo, gateway: gw, emitter: emitter, service: svc}
}

func amountPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (e *testEnv) createCollection(t *testing.T, amount int64) models.PaymentCollection {
	t.Helper()
	created, err := e.service.CreatePaymentCollections(context.Background(), []CreatePaymentCollectionInput{
		{RegionID: uuid.New(), CurrencyCode: "USD", Amount: amountPtr(amount)},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func (e *testEnv) setSingleSession(t *testing.T, collectionID uuid.UUID, amount int64) models.PaymentSession {
	t.Helper()
	collection, err := e.service.SetPaymentSessions(context.Background(), collectionID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(amount)},
	}, SessionsContext{ResourceID: "cart_01"})
	require.NoError(t, err)
	require.Len(t, collection.PaymentSessions, 1)
	return collection.PaymentSessions[0]
}

func (e *testEnv) authorizeAll(t *testing.T, collectionID uuid.UUID) *models.PaymentCollection {
	t.Helper()
	sessions, err := e.repo.ListSessionsByCollection(context.Background(), collectionID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	collection, err := e.service.AuthorizePaymentCollection(context.Background(), collectionID, ids, nil)
	require.NoError(t, err)
	return collection
}

func TestCreatePaymentCollectionsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreatePaymentCollections(ctx, []CreatePaymentCollectionInput{
		{RegionID: uuid.New(), Amount: amountPtr(100)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidArgument))

	_, err = env.service.CreatePaymentCollections(ctx, []CreatePaymentCollectionInput{
		{RegionID: uuid.New(), CurrencyCode: "usd"},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidArgument))
}

func TestCreatePaymentCollectionsNormalizesCurrencyAndAllowsNegative(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.service.CreatePaymentCollections(context.Background(), []CreatePaymentCollectionInput{
		{RegionID: uuid.New(), CurrencyCode: "EUR", Amount: amountPtr(-50)},
	})
	require.NoError(t, err)
	require.Equal(t, "eur", created[0].CurrencyCode)
	require.True(t, created[0].Amount.IsNegative())
	require.Equal(t, enums.PaymentCollectionStatusNotPaid, created[0].Status)
}

func TestSetPaymentSessionsCreates(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)

	got := env.setSingleSession(t, collection.ID, 100)
	require.Equal(t, "system", got.ProviderID)
	require.Equal(t, enums.PaymentSessionStatusPending, got.Status)
	require.JSONEq(t, `{"init":true}`, string(got.Data))
	require.Equal(t, []string{"system"}, env.gateway.initiated)
}

func TestSetPaymentSessionsSumMismatch(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)

	_, err := env.service.SetPaymentSessions(context.Background(), collection.ID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(60)},
	}, SessionsContext{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnexpectedState))
}

func TestSetPaymentSessionsRequiresNotPaid(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	env.authorizeAll(t, collection.ID)

	_, err := env.service.SetPaymentSessions(context.Background(), collection.ID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(100)},
	}, SessionsContext{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotAllowed))
}

func TestSetPaymentSessionsConverges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)

	first, err := env.service.SetPaymentSessions(ctx, collection.ID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(60)},
		{ProviderID: "manual", Amount: decimal.NewFromInt(40)},
	}, SessionsContext{})
	require.NoError(t, err)
	require.Len(t, first.PaymentSessions, 2)

	var keep models.PaymentSession
	for _, session := range first.PaymentSessions {
		if session.ProviderID == "system" {
			keep = session
		}
	}

	// Replace the split: keep the system session at a new amount, drop the
	// manual one, add a fresh session.
	second, err := env.service.SetPaymentSessions(ctx, collection.ID, []SessionInput{
		{SessionID: &keep.ID, ProviderID: "system", Amount: decimal.NewFromInt(30)},
		{ProviderID: "alt", Amount: decimal.NewFromInt(70)},
	}, SessionsContext{})
	require.NoError(t, err)
	require.Len(t, second.PaymentSessions, 2)
	require.Equal(t, []string{"manual"}, env.gateway.deleted)

	byProvider := map[string]models.PaymentSession{}
	for _, session := range second.PaymentSessions {
		byProvider[session.ProviderID] = session
	}
	require.Equal(t, keep.ID, byProvider["system"].ID)
	require.True(t, byProvider["system"].Amount.Equal(decimal.NewFromInt(30)))
	require.True(t, byProvider["alt"].Amount.Equal(decimal.NewFromInt(70)))
}

func TestAuthorizeFullAmount(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)

	authorized, err := env.service.AuthorizePaymentCollection(context.Background(), collection.ID, []uuid.UUID{session.ID}, nil)
	require.NoError(t, err)

	require.Equal(t, enums.PaymentCollectionStatusAuthorized, authorized.Status)
	require.True(t, authorized.AuthorizedAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, authorized.Payments, 1)
	require.Equal(t, session.ID, authorized.Payments[0].PaymentSessionID)
	require.True(t, authorized.Payments[0].Amount.Equal(decimal.NewFromInt(100)))

	got, err := env.service.RetrievePaymentSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentSessionStatusAuthorized, got.Status)
	require.NotNil(t, got.AuthorizedAt)

	require.Contains(t, env.emitter.eventTypes(), enums.OutboxEventPaymentCollectionAuthorized)
}

func TestAuthorizePartialSubset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)

	set, err := env.service.SetPaymentSessions(ctx, collection.ID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(60)},
		{ProviderID: "manual", Amount: decimal.NewFromInt(40)},
	}, SessionsContext{})
	require.NoError(t, err)

	var target uuid.UUID
	for _, session := range set.PaymentSessions {
		if session.ProviderID == "system" {
			target = session.ID
		}
	}

	authorized, err := env.service.AuthorizePaymentCollection(ctx, collection.ID, []uuid.UUID{target}, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentCollectionStatusPartiallyAuthorized, authorized.Status)
	require.True(t, authorized.AuthorizedAmount.Equal(decimal.NewFromInt(60)))
	require.Len(t, authorized.Payments, 1)
	require.Empty(t, env.emitter.events)
}

func TestAuthorizeSecondBatchRecomputesOverAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)

	set, err := env.service.SetPaymentSessions(ctx, collection.ID, []SessionInput{
		{ProviderID: "system", Amount: decimal.NewFromInt(60)},
		{ProviderID: "manual", Amount: decimal.NewFromInt(40)},
	}, SessionsContext{})
	require.NoError(t, err)

	var first, second uuid.UUID
	for _, session := range set.PaymentSessions {
		if session.ProviderID == "system" {
			first = session.ID
		} else {
			second = session.ID
		}
	}

	_, err = env.service.AuthorizePaymentCollection(ctx, collection.ID, []uuid.UUID{first}, nil)
	require.NoError(t, err)

	// The second batch only touches the remaining session, yet the aggregate
	// must cover both authorized sessions.
	authorized, err := env.service.AuthorizePaymentCollection(ctx, collection.ID, []uuid.UUID{second}, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentCollectionStatusAuthorized, authorized.Status)
	require.True(t, authorized.AuthorizedAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, authorized.Payments, 2)
}

func TestAuthorizeDeclinedSessionLeavesAwaiting(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)

	env.gateway.authorizeFn = func(_ string, data json.RawMessage) (provider.AuthorizeResult, error) {
		return provider.AuthorizeResult{Data: data, Status: enums.PaymentSessionStatusError}, nil
	}

	authorized, err := env.service.AuthorizePaymentCollection(context.Background(), collection.ID, []uuid.UUID{session.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentCollectionStatusAwaiting, authorized.Status)
	require.True(t, authorized.AuthorizedAmount.IsZero())
	require.Empty(t, authorized.Payments)

	got, err := env.service.RetrievePaymentSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentSessionStatusError, got.Status)
	require.Nil(t, got.AuthorizedAt)
}

func TestAuthorizeWithoutSessionsNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)

	_, err := env.service.AuthorizePaymentCollection(context.Background(), collection.ID, nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotAllowed))
}

func TestAuthorizeNegativeAmountSkipsProviders(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, -50)

	authorized, err := env.service.AuthorizePaymentCollection(context.Background(), collection.ID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentCollectionStatusAuthorized, authorized.Status)
	require.True(t, authorized.AuthorizedAmount.IsZero())
	require.Empty(t, env.gateway.initiated)
}

func TestAuthorizeFullyAuthorizedShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)
	env.authorizeAll(t, collection.ID)

	calls := 0
	env.gateway.authorizeFn = func(_ string, data json.RawMessage) (provider.AuthorizeResult, error) {
		calls++
		return provider.AuthorizeResult{Data: data, Status: enums.PaymentSessionStatusAuthorized}, nil
	}

	authorized, err := env.service.AuthorizePaymentCollection(context.Background(), collection.ID, []uuid.UUID{session.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentCollectionStatusAuthorized, authorized.Status)
	require.Zero(t, calls)
	require.Len(t, authorized.Payments, 1)
}

func TestCapturePartialThenFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	captured, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(60)},
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	require.Len(t, captured[0].Captures, 1)
	require.Nil(t, captured[0].CapturedAt)

	captured, err = env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)
	require.Len(t, captured[0].Captures, 2)
	require.NotNil(t, captured[0].CapturedAt)

	require.Contains(t, env.emitter.eventTypes(), enums.OutboxEventPaymentCaptured)
}

func TestCaptureExceedingAmountFailsBeforeProviderCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	before := len(env.gateway.captured)
	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(60)},
		{PaymentID: paymentID, Amount: decimal.NewFromInt(50)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
	require.Len(t, env.gateway.captured, before)

	// Nothing was recorded.
	payment, err := env.service.RetrievePayment(ctx, paymentID)
	require.NoError(t, err)
	require.Empty(t, payment.Captures)
}

func TestCaptureCanceledPaymentFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CancelPayments(ctx, []uuid.UUID{paymentID})
	require.NoError(t, err)

	_, err = env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(10)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
}

func TestCaptureFullyCapturedPaymentFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	_, err = env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(1)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
}

func TestCaptureUnknownPaymentNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.CapturePayments(context.Background(), []CapturePaymentInput{
		{PaymentID: uuid.New(), Amount: decimal.NewFromInt(10)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRefundWithinCapturedAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(80)},
	})
	require.NoError(t, err)

	refunded, err := env.service.RefundPayments(ctx, []RefundPaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(30)},
	})
	require.NoError(t, err)
	require.Len(t, refunded[0].Refunds, 1)

	got, err := env.service.RetrievePaymentCollection(ctx, collection.ID, RetrieveOptions{})
	require.NoError(t, err)
	require.True(t, got.RefundedAmount.Equal(decimal.NewFromInt(30)))

	require.Contains(t, env.emitter.eventTypes(), enums.OutboxEventPaymentRefunded)
}

func TestRefundExceedingCapturedFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(50)},
	})
	require.NoError(t, err)

	before := len(env.gateway.refunded)
	_, err = env.service.RefundPayments(ctx, []RefundPaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(60)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
	require.Len(t, env.gateway.refunded, before)
}

func TestRefundAccountsForPriorRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	_, err = env.service.RefundPayments(ctx, []RefundPaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(70)},
	})
	require.NoError(t, err)

	_, err = env.service.RefundPayments(ctx, []RefundPaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(40)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
}

func TestCancelPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	canceled, err := env.service.CancelPayments(ctx, []uuid.UUID{paymentID})
	require.NoError(t, err)
	require.NotNil(t, canceled[0].CanceledAt)
	require.Equal(t, []string{"system"}, env.gateway.canceled)
	require.Contains(t, env.emitter.eventTypes(), enums.OutboxEventPaymentCanceled)
}

func TestCancelCapturedPaymentFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CapturePayments(ctx, []CapturePaymentInput{
		{PaymentID: paymentID, Amount: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)

	_, err = env.service.CancelPayments(ctx, []uuid.UUID{paymentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
}

func TestCancelAlreadyCanceledFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	_, err := env.service.CancelPayments(ctx, []uuid.UUID{paymentID})
	require.NoError(t, err)

	_, err = env.service.CancelPayments(ctx, []uuid.UUID{paymentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidData))
}

func TestCompletePaymentCollections(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)

	completed, err := env.service.CompletePaymentCollections(context.Background(), []uuid.UUID{collection.ID})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].CompletedAt)
}

func TestDeletePaymentCollections(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)

	require.NoError(t, env.service.DeletePaymentCollections(context.Background(), []uuid.UUID{collection.ID}))

	_, err := env.service.RetrievePaymentCollection(context.Background(), collection.ID, RetrieveOptions{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdatePaymentSessionAmount(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)

	updated, err := env.service.UpdatePaymentSession(context.Background(), UpdatePaymentSessionInput{
		ID:     session.ID,
		Amount: amountPtr(60),
	})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(decimal.NewFromInt(60)))
}

func TestUpdateAuthorizedSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)
	env.authorizeAll(t, collection.ID)

	_, err := env.service.UpdatePaymentSession(context.Background(), UpdatePaymentSessionInput{
		ID:     session.ID,
		Amount: amountPtr(5),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotAllowed))

	stored, err := env.repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.True(t, stored.Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, enums.PaymentSessionStatusAuthorized, stored.Status)
}

func TestUpdateCollectionCurrencyLockedOnceSessionsExist(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)

	currency := "EUR"
	_, err := env.service.UpdatePaymentCollections(context.Background(), []UpdatePaymentCollectionInput{
		{ID: collection.ID, CurrencyCode: &currency},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotAllowed))

	// Region stays editable and restating the current currency is a no-op.
	region := uuid.New()
	same := "usd"
	updated, err := env.service.UpdatePaymentCollections(context.Background(), []UpdatePaymentCollectionInput{
		{ID: collection.ID, RegionID: &region, CurrencyCode: &same},
	})
	require.NoError(t, err)
	require.Equal(t, region, updated[0].RegionID)
	require.Equal(t, "usd", updated[0].CurrencyCode)
}

func TestRefreshPaymentSessionNotSupported(t *testing.T) {
	env := newTestEnv(t)
	collection := env.createCollection(t, 100)
	session := env.setSingleSession(t, collection.ID, 100)

	err := env.service.RefreshPaymentSession(context.Background(), session.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotAllowed))
}

func TestUpdatePaymentCorrelationIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	collection := env.createCollection(t, 100)
	env.setSingleSession(t, collection.ID, 100)
	authorized := env.authorizeAll(t, collection.ID)
	paymentID := authorized.Payments[0].ID

	orderID := uuid.New()
	updated, err := env.service.UpdatePayments(ctx, []UpdatePaymentInput{
		{ID: paymentID, OrderID: &orderID},
	})
	require.NoError(t, err)
	require.NotNil(t, updated[0].OrderID)
	require.Equal(t, orderID, *updated[0].OrderID)
}

func TestRetrieveMissingCollectionNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RetrievePaymentCollection(context.Background(), uuid.New(), RetrieveOptions{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
