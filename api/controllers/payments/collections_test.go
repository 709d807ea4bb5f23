package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentsvc "github.com/harborline/payments-core/internal/payments"
	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/types"
)

// stubService implements the orchestration interface with canned responses.
type stubService struct {
	paymentsvc.Service

	collections []models.PaymentCollection
	collection  *models.PaymentCollection
	payments    []models.Payment
	payment     *models.Payment
	session     *models.PaymentSession
	nextCursor  string
	err         error
}

func (s stubService) CreatePaymentCollections(context.Context, []paymentsvc.CreatePaymentCollectionInput) ([]models.PaymentCollection, error) {
	return s.collections, s.err
}

func (s stubService) RetrievePaymentCollection(context.Context, uuid.UUID, paymentsvc.RetrieveOptions) (*models.PaymentCollection, error) {
	return s.collection, s.err
}

func (s stubService) ListPaymentCollections(context.Context, paymentsvc.ListCollectionsParams) ([]models.PaymentCollection, string, error) {
	return s.collections, s.nextCursor, s.err
}

func (s stubService) SetPaymentSessions(context.Context, uuid.UUID, []paymentsvc.SessionInput, paymentsvc.SessionsContext) (*models.PaymentCollection, error) {
	return s.collection, s.err
}

func (s stubService) AuthorizePaymentCollection(context.Context, uuid.UUID, []uuid.UUID, map[string]any) (*models.PaymentCollection, error) {
	return s.collection, s.err
}

func (s stubService) CapturePayments(context.Context, []paymentsvc.CapturePaymentInput) ([]models.Payment, error) {
	return s.payments, s.err
}

func (s stubService) RefundPayments(context.Context, []paymentsvc.RefundPaymentInput) ([]models.Payment, error) {
	return s.payments, s.err
}

func (s stubService) CancelPayments(context.Context, []uuid.UUID) ([]models.Payment, error) {
	return s.payments, s.err
}

func (s stubService) RetrievePayment(context.Context, uuid.UUID) (*models.Payment, error) {
	return s.payment, s.err
}

func (s stubService) RetrievePaymentSession(context.Context, uuid.UUID) (*models.PaymentSession, error) {
	return s.session, s.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func sampleCollection() models.PaymentCollection {
	return models.PaymentCollection{
		ID:               uuid.New(),
		RegionID:         uuid.New(),
		CurrencyCode:     "usd",
		Amount:           decimal.NewFromInt(100),
		AuthorizedAmount: decimal.Zero,
		RefundedAmount:   decimal.Zero,
		Status:           enums.PaymentCollectionStatusNotPaid,
	}
}

func TestCollectionCreateSuccess(t *testing.T) {
	created := sampleCollection()
	handler := CollectionCreate(stubService{collections: []models.PaymentCollection{created}}, nil)

	body, _ := json.Marshal(map[string]any{
		"region_id":     created.RegionID,
		"currency_code": "USD",
		"amount":        "100",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment-collections", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}

	var envelope struct {
		Data CollectionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != created.ID {
		t.Fatalf("expected id %s got %s", created.ID, envelope.Data.ID)
	}
	if envelope.Data.Status != enums.PaymentCollectionStatusNotPaid {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestCollectionCreateMissingAmount(t *testing.T) {
	handler := CollectionCreate(stubService{}, nil)

	body, _ := json.Marshal(map[string]any{
		"region_id":     uuid.New(),
		"currency_code": "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment-collections", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCollectionGetInvalidID(t *testing.T) {
	handler := CollectionGet(stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment-collections/not-a-uuid", nil)
	req = withURLParam(req, "collectionId", "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCollectionGetNotFound(t *testing.T) {
	handler := CollectionGet(stubService{err: pkgerrors.New(pkgerrors.CodeNotFound, "missing")}, nil)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment-collections/"+id.String(), nil)
	req = withURLParam(req, "collectionId", id.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCollectionSetSessionsWrongStateIs409(t *testing.T) {
	handler := CollectionSetSessions(stubService{
		err: pkgerrors.New(pkgerrors.CodeNotAllowed, "cannot set payment sessions for a payment collection with status authorized"),
	}, nil)

	id := uuid.New()
	body, _ := json.Marshal(map[string]any{
		"sessions": []map[string]any{{"provider_id": "system", "amount": "100"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment-collections/"+id.String()+"/sessions", bytes.NewReader(body))
	req = withURLParam(req, "collectionId", id.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeNotAllowed) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestCollectionAuthorizeSuccess(t *testing.T) {
	authorized := sampleCollection()
	authorized.Status = enums.PaymentCollectionStatusAuthorized
	authorized.AuthorizedAmount = authorized.Amount
	handler := CollectionAuthorize(stubService{collection: &authorized}, nil)

	body, _ := json.Marshal(map[string]any{"session_ids": []string{uuid.NewString()}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment-collections/"+authorized.ID.String()+"/authorize", bytes.NewReader(body))
	req = withURLParam(req, "collectionId", authorized.ID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data CollectionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.PaymentCollectionStatusAuthorized {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}
