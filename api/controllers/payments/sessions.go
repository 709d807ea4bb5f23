package payments

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/api/responses"
	"github.com/harborline/payments-core/api/validators"
	paymentsvc "github.com/harborline/payments-core/internal/payments"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/logger"
)

// SessionGet returns one payment session.
func SessionGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.RetrievePaymentSession(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSessionResponse(*session))
	}
}

type updateSessionRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Data   json.RawMessage  `json:"data,omitempty"`
}

// SessionUpdate pushes an amount or data change through the provider.
func SessionUpdate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.UpdatePaymentSession(r.Context(), paymentsvc.UpdatePaymentSessionInput{
			ID:     id,
			Amount: payload.Amount,
			Data:   payload.Data,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSessionResponse(*session))
	}
}

// SessionRefresh re-syncs provider state for a stalled session. No registered
// provider supports it today, so this surfaces the provider's refusal.
func SessionRefresh(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RefreshPaymentSession(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.RetrievePaymentSession(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSessionResponse(*session))
	}
}

// SessionDelete removes a pending session, voiding it with the provider first.
func SessionDelete(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePaymentSessions(r.Context(), []uuid.UUID{id}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func sessionIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "sessionId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid payment session id")
	}
	return id, nil
}
