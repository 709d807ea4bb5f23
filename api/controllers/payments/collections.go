package payments

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/api/responses"
	"github.com/harborline/payments-core/api/validators"
	paymentsvc "github.com/harborline/payments-core/internal/payments"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/logger"
	"github.com/harborline/payments-core/pkg/pagination"
)

type createCollectionRequest struct {
	RegionID     uuid.UUID        `json:"region_id" validate:"required"`
	CurrencyCode string           `json:"currency_code" validate:"required"`
	Amount       *decimal.Decimal `json:"amount" validate:"required"`
}

// CollectionCreate opens a payment collection for a transaction context.
func CollectionCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreatePaymentCollections(r.Context(), []paymentsvc.CreatePaymentCollectionInput{{
			RegionID:     payload.RegionID,
			CurrencyCode: payload.CurrencyCode,
			Amount:       payload.Amount,
		}})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toCollectionResponse(created[0]))
	}
}

// CollectionList pages through collections, newest first.
func CollectionList(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := paymentsvc.ListCollectionsParams{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}
		if raw := r.URL.Query().Get("region_id"); raw != "" {
			regionID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid region id"))
				return
			}
			params.RegionID = &regionID
		}

		rows, nextCursor, err := svc.ListPaymentCollections(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listResponse{
			Collections: toCollectionResponses(rows),
			NextCursor:  nextCursor,
		})
	}
}

// CollectionGet returns one collection with its sessions and payments.
func CollectionGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		collection, err := svc.RetrievePaymentCollection(r.Context(), id, paymentsvc.RetrieveOptions{
			WithSessions: true,
			WithPayments: true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCollectionResponse(*collection))
	}
}

type updateCollectionRequest struct {
	RegionID     *uuid.UUID `json:"region_id,omitempty"`
	CurrencyCode *string    `json:"currency_code,omitempty" validate:"omitempty,min=3,max=3"`
}

// CollectionUpdate adjusts the mutable descriptive fields of a collection.
func CollectionUpdate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdatePaymentCollections(r.Context(), []paymentsvc.UpdatePaymentCollectionInput{{
			ID:           id,
			RegionID:     payload.RegionID,
			CurrencyCode: payload.CurrencyCode,
		}})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCollectionResponse(updated[0]))
	}
}

// CollectionDelete soft-deletes a collection.
func CollectionDelete(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePaymentCollections(r.Context(), []uuid.UUID{id}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// CollectionComplete stamps the collection as completed.
func CollectionComplete(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		completed, err := svc.CompletePaymentCollections(r.Context(), []uuid.UUID{id})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCollectionResponse(completed[0]))
	}
}

type sessionRequest struct {
	SessionID  *uuid.UUID      `json:"session_id,omitempty"`
	ProviderID string          `json:"provider_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type setSessionsRequest struct {
	Sessions       []sessionRequest `json:"sessions" validate:"required,min=1,dive"`
	ResourceID     string           `json:"resource_id,omitempty"`
	Email          string           `json:"email,omitempty" validate:"omitempty,email"`
	CustomerID     string           `json:"customer_id,omitempty"`
	BillingAddress map[string]any   `json:"billing_address,omitempty"`
	Context        map[string]any   `json:"context,omitempty"`
}

// CollectionSetSessions replaces the collection's session set with the
// requested split, converging existing sessions where possible.
func CollectionSetSessions(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setSessionsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]paymentsvc.SessionInput, 0, len(payload.Sessions))
		for _, session := range payload.Sessions {
			inputs = append(inputs, paymentsvc.SessionInput{
				SessionID:  session.SessionID,
				ProviderID: session.ProviderID,
				Amount:     session.Amount,
			})
		}

		collection, err := svc.SetPaymentSessions(r.Context(), id, inputs, paymentsvc.SessionsContext{
			ResourceID:     payload.ResourceID,
			Email:          payload.Email,
			CustomerID:     payload.CustomerID,
			BillingAddress: payload.BillingAddress,
			Context:        payload.Context,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCollectionResponse(*collection))
	}
}

type authorizeRequest struct {
	SessionIDs []uuid.UUID    `json:"session_ids,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// CollectionAuthorize authorizes the requested sessions and promotes the
// successful ones into payments.
func CollectionAuthorize(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := collectionIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload authorizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		collection, err := svc.AuthorizePaymentCollection(r.Context(), id, payload.SessionIDs, payload.Context)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCollectionResponse(*collection))
	}
}

func collectionIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "collectionId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid payment collection id")
	}
	return id, nil
}
