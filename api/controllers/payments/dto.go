package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
)

type CollectionResponse struct {
	ID               uuid.UUID                     `json:"id"`
	RegionID         uuid.UUID                     `json:"region_id"`
	CurrencyCode     string                        `json:"currency_code"`
	Amount           decimal.Decimal               `json:"amount"`
	AuthorizedAmount decimal.Decimal               `json:"authorized_amount"`
	RefundedAmount   decimal.Decimal               `json:"refunded_amount"`
	Status           enums.PaymentCollectionStatus `json:"status"`
	CompletedAt      *time.Time                    `json:"completed_at,omitempty"`
	Sessions         []SessionResponse             `json:"payment_sessions,omitempty"`
	Payments         []PaymentResponse             `json:"payments,omitempty"`
	CreatedAt        time.Time                     `json:"created_at"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

type SessionResponse struct {
	ID                  uuid.UUID                  `json:"id"`
	PaymentCollectionID uuid.UUID                  `json:"payment_collection_id"`
	Amount              decimal.Decimal            `json:"amount"`
	CurrencyCode        string                     `json:"currency_code"`
	ProviderID          string                     `json:"provider_id"`
	Data                json.RawMessage            `json:"data,omitempty"`
	Status              enums.PaymentSessionStatus `json:"status"`
	AuthorizedAt        *time.Time                 `json:"authorized_at,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
}

type PaymentResponse struct {
	ID                  uuid.UUID         `json:"id"`
	PaymentCollectionID uuid.UUID         `json:"payment_collection_id"`
	PaymentSessionID    uuid.UUID         `json:"payment_session_id"`
	Amount              decimal.Decimal   `json:"amount"`
	AuthorizedAmount    decimal.Decimal   `json:"authorized_amount"`
	CurrencyCode        string            `json:"currency_code"`
	ProviderID          string            `json:"provider_id"`
	CapturedAt          *time.Time        `json:"captured_at,omitempty"`
	CanceledAt          *time.Time        `json:"canceled_at,omitempty"`
	CartID              *uuid.UUID        `json:"cart_id,omitempty"`
	OrderID             *uuid.UUID        `json:"order_id,omitempty"`
	CustomerID          *uuid.UUID        `json:"customer_id,omitempty"`
	Captures            []CaptureResponse `json:"captures,omitempty"`
	Refunds             []RefundResponse  `json:"refunds,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

type CaptureResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedBy *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type RefundResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedBy *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProviderResponse struct {
	ID        string `json:"id"`
	IsEnabled bool   `json:"is_enabled"`
}

func toCollectionResponse(row models.PaymentCollection) CollectionResponse {
	resp := CollectionResponse{
		ID:               row.ID,
		RegionID:         row.RegionID,
		CurrencyCode:     row.CurrencyCode,
		Amount:           row.Amount,
		AuthorizedAmount: row.AuthorizedAmount,
		RefundedAmount:   row.RefundedAmount,
		Status:           row.Status,
		CompletedAt:      row.CompletedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	for _, session := range row.PaymentSessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(session))
	}
	for _, payment := range row.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(payment))
	}
	return resp
}

func toCollectionResponses(rows []models.PaymentCollection) []CollectionResponse {
	out := make([]CollectionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCollectionResponse(row))
	}
	return out
}

func toSessionResponse(row models.PaymentSession) SessionResponse {
	return SessionResponse{
		ID:                  row.ID,
		PaymentCollectionID: row.PaymentCollectionID,
		Amount:              row.Amount,
		CurrencyCode:        row.CurrencyCode,
		ProviderID:          row.ProviderID,
		Data:                row.Data,
		Status:              row.Status,
		AuthorizedAt:        row.AuthorizedAt,
		CreatedAt:           row.CreatedAt,
	}
}

func toPaymentResponse(row models.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:                  row.ID,
		PaymentCollectionID: row.PaymentCollectionID,
		PaymentSessionID:    row.PaymentSessionID,
		Amount:              row.Amount,
		AuthorizedAmount:    row.AuthorizedAmount,
		CurrencyCode:        row.CurrencyCode,
		ProviderID:          row.ProviderID,
		CapturedAt:          row.CapturedAt,
		CanceledAt:          row.CanceledAt,
		CartID:              row.CartID,
		OrderID:             row.OrderID,
		CustomerID:          row.CustomerID,
		CreatedAt:           row.CreatedAt,
	}
	for _, capture := range row.Captures {
		resp.Captures = append(resp.Captures, CaptureResponse{
			ID:        capture.ID,
			Amount:    capture.Amount,
			CreatedBy: capture.CreatedBy,
			CreatedAt: capture.CreatedAt,
		})
	}
	for _, refund := range row.Refunds {
		resp.Refunds = append(resp.Refunds, RefundResponse{
			ID:        refund.ID,
			Amount:    refund.Amount,
			CreatedBy: refund.CreatedBy,
			CreatedAt: refund.CreatedAt,
		})
	}
	return resp
}

func toPaymentResponses(rows []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPaymentResponse(row))
	}
	return out
}

type listResponse struct {
	Collections []CollectionResponse `json:"payment_collections"`
	NextCursor  string               `json:"next_cursor,omitempty"`
}
