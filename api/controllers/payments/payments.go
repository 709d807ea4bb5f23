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
)

type captureRequest struct {
	PaymentID  uuid.UUID       `json:"payment_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	CapturedBy *uuid.UUID      `json:"captured_by,omitempty"`
}

type captureBatchRequest struct {
	Captures []captureRequest `json:"captures" validate:"required,min=1,dive"`
}

// PaymentCapture collects money against authorized payments. The whole batch
// is validated before any provider is called.
func PaymentCapture(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload captureBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]paymentsvc.CapturePaymentInput, 0, len(payload.Captures))
		for _, capture := range payload.Captures {
			inputs = append(inputs, paymentsvc.CapturePaymentInput{
				PaymentID:  capture.PaymentID,
				Amount:     capture.Amount,
				CapturedBy: capture.CapturedBy,
			})
		}

		captured, err := svc.CapturePayments(r.Context(), inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponses(captured))
	}
}

type refundRequest struct {
	PaymentID uuid.UUID       `json:"payment_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedBy *uuid.UUID      `json:"created_by,omitempty"`
}

type refundBatchRequest struct {
	Refunds []refundRequest `json:"refunds" validate:"required,min=1,dive"`
}

// PaymentRefund returns captured money. Batch-validated like capture.
func PaymentRefund(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload refundBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]paymentsvc.RefundPaymentInput, 0, len(payload.Refunds))
		for _, refund := range payload.Refunds {
			inputs = append(inputs, paymentsvc.RefundPaymentInput{
				PaymentID: refund.PaymentID,
				Amount:    refund.Amount,
				CreatedBy: refund.CreatedBy,
			})
		}

		refunded, err := svc.RefundPayments(r.Context(), inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponses(refunded))
	}
}

type cancelRequest struct {
	PaymentIDs []uuid.UUID `json:"payment_ids" validate:"required,min=1"`
}

// PaymentCancel voids uncaptured authorizations.
func PaymentCancel(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		canceled, err := svc.CancelPayments(r.Context(), payload.PaymentIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponses(canceled))
	}
}

// PaymentGet returns one payment with its capture and refund trail.
func PaymentGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := paymentIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.RetrievePayment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(*payment))
	}
}

type updatePaymentRequest struct {
	CartID      *uuid.UUID `json:"cart_id,omitempty"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	OrderEditID *uuid.UUID `json:"order_edit_id,omitempty"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
}

// PaymentUpdate links a payment to its surrounding commerce records.
func PaymentUpdate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := paymentIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdatePayments(r.Context(), []paymentsvc.UpdatePaymentInput{{
			ID:          id,
			CartID:      payload.CartID,
			OrderID:     payload.OrderID,
			OrderEditID: payload.OrderEditID,
			CustomerID:  payload.CustomerID,
		}})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(updated[0]))
	}
}

func paymentIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "paymentId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid payment id")
	}
	return id, nil
}
