// Package payments owns the payment collection lifecycle: opening
// collections, negotiating provider sessions, authorization, and the
// capture/refund/cancel money movement that follows.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborline/payments-core/internal/provider"
	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/enums"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
	"github.com/harborline/payments-core/pkg/logger"
	"github.com/harborline/payments-core/pkg/outbox"
)

const casMaxRetries = 5

// ProviderGateway is the slice of the gateway surface this service consumes.
type ProviderGateway interface {
	InitiateSession(ctx context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error)
	UpdateSession(ctx context.Context, providerID string, input provider.SessionContext) (json.RawMessage, error)
	RefreshSession(ctx context.Context, providerID, sessionID string) (json.RawMessage, error)
	Authorize(ctx context.Context, providerID string, data json.RawMessage, authContext map[string]any) (provider.AuthorizeResult, error)
	Capture(ctx context.Context, providerID string, data json.RawMessage) (json.RawMessage, error)
	Refund(ctx context.Context, providerID string, data json.RawMessage, amount decimal.Decimal) (json.RawMessage, error)
	Cancel(ctx context.Context, providerID string, data json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, providerID string, data json.RawMessage) error
}

// EventEmitter queues domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the payment orchestration operations.
type Service interface {
	CreatePaymentCollections(ctx context.Context, inputs []CreatePaymentCollectionInput) ([]models.PaymentCollection, error)
	UpdatePaymentCollections(ctx context.Context, inputs []UpdatePaymentCollectionInput) ([]models.PaymentCollection, error)
	RetrievePaymentCollection(ctx context.Context, id uuid.UUID, opts RetrieveOptions) (*models.PaymentCollection, error)
	ListPaymentCollections(ctx context.Context, params ListCollectionsParams) ([]models.PaymentCollection, string, error)
	DeletePaymentCollections(ctx context.Context, ids []uuid.UUID) error
	CompletePaymentCollections(ctx context.Context, ids []uuid.UUID) ([]models.PaymentCollection, error)

	SetPaymentSessions(ctx context.Context, collectionID uuid.UUID, inputs []SessionInput, sessionCtx SessionsContext) (*models.PaymentCollection, error)
	UpdatePaymentSession(ctx context.Context, input UpdatePaymentSessionInput) (*models.PaymentSession, error)
	RetrievePaymentSession(ctx context.Context, id uuid.UUID) (*models.PaymentSession, error)
	DeletePaymentSessions(ctx context.Context, ids []uuid.UUID) error
	RefreshPaymentSession(ctx context.Context, id uuid.UUID) error

	AuthorizePaymentCollection(ctx context.Context, collectionID uuid.UUID, sessionIDs []uuid.UUID, authContext map[string]any) (*models.PaymentCollection, error)

	CapturePayments(ctx context.Context, inputs []CapturePaymentInput) ([]models.Payment, error)
	RefundPayments(ctx context.Context, inputs []RefundPaymentInput) ([]models.Payment, error)
	CancelPayments(ctx context.Context, ids []uuid.UUID) ([]models.Payment, error)
	UpdatePayments(ctx context.Context, inputs []UpdatePaymentInput) ([]models.Payment, error)
	RetrievePayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, ids []uuid.UUID) ([]models.Payment, error)
}

type service struct {
	db      *db.Client
	repo    Repository
	gateway ProviderGateway
	events  EventEmitter
	locker  CollectionLocker
	logg    *logger.Logger
}

// NewService wires the orchestration service with its collaborators.
func NewService(client *db.Client, repo Repository, gw ProviderGateway, events EventEmitter, locker CollectionLocker, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("provider gateway required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:      client,
		repo:    repo,
		gateway: gw,
		events:  events,
		locker:  locker,
		logg:    logg,
	}, nil
}

func (s *service) CreatePaymentCollections(ctx context.Context, inputs []CreatePaymentCollectionInput) ([]models.PaymentCollection, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	collections := make([]*models.PaymentCollection, 0, len(inputs))
	for _, input := range inputs {
		if input.CurrencyCode == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "currency_code is required to create a payment collection")
		}
		if input.Amount == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "amount is required to create a payment collection")
		}
		collections = append(collections, &models.PaymentCollection{
			ID:               uuid.New(),
			RegionID:         input.RegionID,
			CurrencyCode:     enums.NormalizeCurrency(input.CurrencyCode),
			Amount:           *input.Amount,
			AuthorizedAmount: decimal.Zero,
			RefundedAmount:   decimal.Zero,
			Status:           enums.PaymentCollectionStatusNotPaid,
		})
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateCollections(ctx, collections)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payment collections")
	}

	out := make([]models.PaymentCollection, len(collections))
	for i, collection := range collections {
		out[i] = *collection
	}
	return out, nil
}

func (s *service) UpdatePaymentCollections(ctx context.Context, inputs []UpdatePaymentCollectionInput) ([]models.PaymentCollection, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	updated := make([]models.PaymentCollection, 0, len(inputs))
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, input := range inputs {
			collection, err := repo.GetCollection(ctx, input.ID, RetrieveOptions{})
			if err != nil {
				return s.notFoundOr(err, "payment collection", input.ID)
			}
			if input.RegionID != nil {
				collection.RegionID = *input.RegionID
			}
			if input.CurrencyCode != nil {
				currency := enums.NormalizeCurrency(*input.CurrencyCode)
				if currency != collection.CurrencyCode {
					sessions, err := repo.ListSessionsByCollection(ctx, collection.ID)
					if err != nil {
						return err
					}
					if len(sessions) > 0 {
						return pkgerrors.Newf(pkgerrors.CodeNotAllowed,
							"cannot change the currency of payment collection %s, sessions already exist", collection.ID)
					}
				}
				collection.CurrencyCode = currency
			}
			if err := repo.UpdateCollection(ctx, collection); err != nil {
				return err
			}
			updated = append(updated, *collection)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RetrievePaymentCollection(ctx context.Context, id uuid.UUID, opts RetrieveOptions) (*models.PaymentCollection, error) {
	collection, err := s.repo.GetCollection(ctx, id, opts)
	if err != nil {
		return nil, s.notFoundOr(err, "payment collection", id)
	}
	return collection, nil
}

func (s *service) ListPaymentCollections(ctx context.Context, params ListCollectionsParams) ([]models.PaymentCollection, string, error) {
	return s.repo.ListCollections(ctx, params)
}

func (s *service) DeletePaymentCollections(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SoftDeleteCollections(ctx, ids)
	})
}

// CompletePaymentCollections stamps completed_at. No readiness check is
// applied: callers own the decision of when a collection is settled.
func (s *service) CompletePaymentCollections(ctx context.Context, ids []uuid.UUID) ([]models.PaymentCollection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CompleteCollections(ctx, ids, time.Now())
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.PaymentCollection, 0, len(ids))
	for _, id := range ids {
		collection, err := s.repo.GetCollection(ctx, id, RetrieveOptions{})
		if err != nil {
			return nil, s.notFoundOr(err, "payment collection", id)
		}
		out = append(out, *collection)
	}
	return out, nil
}

// SetPaymentSessions drives the session set of a not_paid collection to match
// the requested split. Existing sessions referenced by id are updated, new
// ones initiated, and sessions absent from the target set are deleted at the
// provider first and then locally. Calling it twice with the same input is a
// no-op the second time.
func (s *service) SetPaymentSessions(ctx context.Context, collectionID uuid.UUID, inputs []SessionInput, sessionCtx SessionsContext) (*models.PaymentCollection, error) {
	release, err := s.locker.Lock(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		collection, err := repo.GetCollection(ctx, collectionID, RetrieveOptions{WithSessions: true})
		if err != nil {
			return s.notFoundOr(err, "payment collection", collectionID)
		}

		if collection.Status != enums.PaymentCollectionStatusNotPaid {
			return pkgerrors.Newf(pkgerrors.CodeNotAllowed,
				"cannot set payment sessions for a payment collection with status %s", collection.Status)
		}

		total := decimal.Zero
		for _, input := range inputs {
			total = total.Add(input.Amount)
		}
		if !total.Equal(collection.Amount) {
			return pkgerrors.Newf(pkgerrors.CodeUnexpectedState,
				"the sum of sessions is not equal to %s on payment collection %s", collection.Amount, collection.ID)
		}

		existing := make(map[uuid.UUID]*models.PaymentSession, len(collection.PaymentSessions))
		for i := range collection.PaymentSessions {
			existing[collection.PaymentSessions[i].ID] = &collection.PaymentSessions[i]
		}

		kept := map[uuid.UUID]struct{}{}
		for _, input := range inputs {
			var session *models.PaymentSession
			if input.SessionID != nil {
				session = existing[*input.SessionID]
			}

			providerInput := provider.SessionContext{
				Amount:         input.Amount,
				CurrencyCode:   collection.CurrencyCode,
				ResourceID:     sessionCtx.ResourceID,
				Email:          sessionCtx.Email,
				CustomerID:     sessionCtx.CustomerID,
				BillingAddress: sessionCtx.BillingAddress,
				Context:        sessionCtx.Context,
			}

			if session != nil {
				providerInput.SessionData = session.Data
				data, err := s.gateway.UpdateSession(ctx, session.ProviderID, providerInput)
				if err != nil {
					return err
				}
				session.Amount = input.Amount
				session.Data = data
				if err := repo.UpdateSession(ctx, session); err != nil {
					return err
				}
				kept[session.ID] = struct{}{}
				continue
			}

			if input.ProviderID == "" {
				return pkgerrors.New(pkgerrors.CodeInvalidArgument, "provider_id is required to create a payment session")
			}
			data, err := s.gateway.InitiateSession(ctx, input.ProviderID, providerInput)
			if err != nil {
				return err
			}
			created := &models.PaymentSession{
				ID:                  uuid.New(),
				PaymentCollectionID: collection.ID,
				Amount:              input.Amount,
				CurrencyCode:        collection.CurrencyCode,
				ProviderID:          input.ProviderID,
				Data:                data,
				Status:              enums.PaymentSessionStatusPending,
			}
			if err := repo.CreateSession(ctx, created); err != nil {
				return err
			}
			kept[created.ID] = struct{}{}
		}

		var toDelete []uuid.UUID
		for id, session := range existing {
			if _, ok := kept[id]; ok {
				continue
			}
			if err := s.gateway.Delete(ctx, session.ProviderID, session.Data); err != nil {
				return err
			}
			toDelete = append(toDelete, id)
		}
		return repo.DeleteSessions(ctx, toDelete)
	})
	if err != nil {
		return nil, err
	}

	return s.RetrievePaymentCollection(ctx, collectionID, RetrieveOptions{WithSessions: true})
}

func (s *service) UpdatePaymentSession(ctx context.Context, input UpdatePaymentSessionInput) (*models.PaymentSession, error) {
	var session *models.PaymentSession
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.GetSession(ctx, input.ID)
		if err != nil {
			return s.notFoundOr(err, "payment session", input.ID)
		}
		if found.Status == enums.PaymentSessionStatusAuthorized || found.AuthorizedAt != nil {
			return pkgerrors.Newf(pkgerrors.CodeNotAllowed,
				"payment session %s is authorized and can no longer be updated", found.ID)
		}
		if input.Amount != nil {
			found.Amount = *input.Amount
		}
		if input.Data != nil {
			found.Data = input.Data
		}
		if err := repo.UpdateSession(ctx, found); err != nil {
			return err
		}
		session = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) RetrievePaymentSession(ctx context.Context, id uuid.UUID) (*models.PaymentSession, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err, "payment session", id)
	}
	return session, nil
}

func (s *service) DeletePaymentSessions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteSessions(ctx, ids)
	})
}

func (s *service) RefreshPaymentSession(ctx context.Context, id uuid.UUID) error {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return s.notFoundOr(err, "payment session", id)
	}
	_, err = s.gateway.RefreshSession(ctx, session.ProviderID, session.ID.String())
	return err
}

// AuthorizePaymentCollection authorizes the named sessions and promotes each
// authorized session into a Payment. The authorized aggregate and status are
// recomputed from the full session set under an optimistic version check;
// losing the race retries the whole transaction.
func (s *service) AuthorizePaymentCollection(ctx context.Context, collectionID uuid.UUID, sessionIDs []uuid.UUID, authContext map[string]any) (*models.PaymentCollection, error) {
	release, err := s.locker.Lock(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	defer release()

	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewExponential(25*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.authorizeCollectionTx(ctx, tx, collectionID, sessionIDs, authContext)
		})
		if errors.Is(txErr, ErrVersionConflict) {
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnexpectedState, err,
				"payment collection was modified concurrently, retries exhausted")
		}
		return nil, err
	}

	return s.RetrievePaymentCollection(ctx, collectionID, RetrieveOptions{WithSessions: true, WithPayments: true})
}

func (s *service) authorizeCollectionTx(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, sessionIDs []uuid.UUID, authContext map[string]any) error {
	repo := s.repo.WithTx(tx)

	collection, err := repo.GetCollection(ctx, collectionID, RetrieveOptions{WithSessions: true, WithPayments: true})
	if err != nil {
		return s.notFoundOr(err, "payment collection", collectionID)
	}

	// Already fully authorized, nothing to do.
	if collection.AuthorizedAmount.Equal(collection.Amount) && !collection.Amount.IsZero() {
		return nil
	}

	// Negative collections represent money owed back to the customer. There
	// is nothing to authorize at a provider.
	if collection.Amount.IsNegative() {
		collection.AuthorizedAmount = decimal.Zero
		collection.Status = enums.PaymentCollectionStatusAuthorized
		return repo.UpdateCollectionCAS(ctx, collection, collection.Version)
	}

	if len(collection.PaymentSessions) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotAllowed,
			"you cannot complete a payment collection without a payment session")
	}

	requested := make(map[uuid.UUID]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		requested[id] = struct{}{}
	}

	for i := range collection.PaymentSessions {
		session := &collection.PaymentSessions[i]
		if session.AuthorizedAt != nil {
			continue
		}
		if _, ok := requested[session.ID]; !ok {
			continue
		}

		result, err := s.gateway.Authorize(ctx, session.ProviderID, session.Data, authContext)
		if err != nil {
			return err
		}

		session.Data = result.Data
		session.Status = result.Status
		if result.Status == enums.PaymentSessionStatusAuthorized {
			now := time.Now()
			session.AuthorizedAt = &now
		} else {
			session.AuthorizedAt = nil
		}
		if err := repo.UpdateSession(ctx, session); err != nil {
			return err
		}

		if result.Status != enums.PaymentSessionStatusAuthorized {
			continue
		}
		payment := &models.Payment{
			ID:                  uuid.New(),
			PaymentCollectionID: collection.ID,
			PaymentSessionID:    session.ID,
			Amount:              session.Amount,
			AuthorizedAmount:    session.Amount,
			CurrencyCode:        collection.CurrencyCode,
			ProviderID:          session.ProviderID,
			Data:                session.Data,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}
	}

	authorized := authorizedTotal(collection.PaymentSessions)
	status := collectionStatusFor(collection.Status, collection.Amount, authorized)

	collection.AuthorizedAmount = authorized
	collection.Status = status
	if err := repo.UpdateCollectionCAS(ctx, collection, collection.Version); err != nil {
		return err
	}

	if status == enums.PaymentCollectionStatusAuthorized {
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentCollectionAuthorized,
			AggregateType: enums.OutboxAggregatePaymentCollection,
			AggregateID:   collection.ID,
			Data: map[string]any{
				"payment_collection_id": collection.ID,
				"authorized_amount":     authorized,
				"currency_code":         collection.CurrencyCode,
			},
		})
	}
	return nil
}

// CapturePayments validates the whole batch against the capture invariants
// before any provider is contacted, then records one capture row per input.
func (s *service) CapturePayments(ctx context.Context, inputs []CapturePaymentInput) ([]models.Payment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ids := paymentIDs(inputs, func(i CapturePaymentInput) uuid.UUID { return i.PaymentID })

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		paymentsByID, err := s.loadPaymentsForBatch(ctx, repo, ids)
		if err != nil {
			return err
		}

		// Fail-fast validation over the full batch, counting running totals
		// so several captures of one payment in a single batch are checked
		// against their combined effect.
		running := map[uuid.UUID]decimal.Decimal{}
		for _, input := range inputs {
			payment := paymentsByID[input.PaymentID]
			if payment.CanceledAt != nil {
				return pkgerrors.Newf(pkgerrors.CodeInvalidData,
					"the payment %s has been canceled", payment.ID)
			}
			if payment.CapturedAt != nil {
				return pkgerrors.Newf(pkgerrors.CodeInvalidData,
					"the payment %s is already fully captured", payment.ID)
			}
			total, ok := running[payment.ID]
			if !ok {
				total = capturedTotal(*payment)
			}
			total = total.Add(input.Amount)
			if total.GreaterThan(payment.Amount) {
				return pkgerrors.Newf(pkgerrors.CodeInvalidData,
					"total captured amount for payment %s exceeds the authorized amount", payment.ID)
			}
			running[payment.ID] = total
		}

		captured := map[uuid.UUID]json.RawMessage{}
		for id, payment := range paymentsByID {
			data, err := s.gateway.Capture(ctx, payment.ProviderID, payment.Data)
			if err != nil {
				return err
			}
			captured[id] = data
		}

		captures := make([]*models.Capture, 0, len(inputs))
		for _, input := range inputs {
			captures = append(captures, &models.Capture{
				ID:        uuid.New(),
				PaymentID: input.PaymentID,
				Amount:    input.Amount,
				CreatedBy: input.CapturedBy,
			})
		}
		if err := repo.CreateCaptures(ctx, captures); err != nil {
			return err
		}

		now := time.Now()
		for id, payment := range paymentsByID {
			payment.Data = captured[id]
			if running[id].Equal(payment.Amount) {
				payment.CapturedAt = &now
			}
			if err := repo.UpdatePayment(ctx, payment); err != nil {
				return err
			}
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventPaymentCaptured,
				AggregateType: enums.OutboxAggregatePayment,
				AggregateID:   payment.ID,
				Data: map[string]any{
					"payment_id":            payment.ID,
					"payment_collection_id": payment.PaymentCollectionID,
					"captured_amount":       running[id],
					"currency_code":         payment.CurrencyCode,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.ListPaymentsByIDs(ctx, ids, true)
}

// RefundPayments mirrors CapturePayments: the batch is validated against the
// captured-minus-refunded headroom before any provider call, and the owning
// collections' refunded aggregates move with the refunds.
func (s *service) RefundPayments(ctx context.Context, inputs []RefundPaymentInput) ([]models.Payment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ids := paymentIDs(inputs, func(i RefundPaymentInput) uuid.UUID { return i.PaymentID })

	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewExponential(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.refundPaymentsTx(ctx, tx, inputs, ids)
		})
		if errors.Is(txErr, ErrVersionConflict) {
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnexpectedState, err,
				"payment collection was modified concurrently, retries exhausted")
		}
		return nil, err
	}

	return s.repo.ListPaymentsByIDs(ctx, ids, true)
}

func (s *service) refundPaymentsTx(ctx context.Context, tx *gorm.DB, inputs []RefundPaymentInput, ids []uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	paymentsByID, err := s.loadPaymentsForBatch(ctx, repo, ids)
	if err != nil {
		return err
	}

	running := map[uuid.UUID]decimal.Decimal{}
	for _, input := range inputs {
		payment := paymentsByID[input.PaymentID]
		total, ok := running[payment.ID]
		if !ok {
			total = refundedTotal(*payment)
		}
		total = total.Add(input.Amount)
		if total.GreaterThan(capturedTotal(*payment)) {
			return pkgerrors.Newf(pkgerrors.CodeInvalidData,
				"refund amount for payment %s exceeds the captured amount", payment.ID)
		}
		running[payment.ID] = total
	}

	refunded := map[uuid.UUID]json.RawMessage{}
	refundByPayment := map[uuid.UUID]decimal.Decimal{}
	for _, input := range inputs {
		refundByPayment[input.PaymentID] = refundByPayment[input.PaymentID].Add(input.Amount)
	}
	for id, payment := range paymentsByID {
		data, err := s.gateway.Refund(ctx, payment.ProviderID, payment.Data, refundByPayment[id])
		if err != nil {
			return err
		}
		refunded[id] = data
	}

	refunds := make([]*models.Refund, 0, len(inputs))
	for _, input := range inputs {
		refunds = append(refunds, &models.Refund{
			ID:        uuid.New(),
			PaymentID: input.PaymentID,
			Amount:    input.Amount,
			CreatedBy: input.CreatedBy,
		})
	}
	if err := repo.CreateRefunds(ctx, refunds); err != nil {
		return err
	}

	refundByCollection := map[uuid.UUID]decimal.Decimal{}
	for id, payment := range paymentsByID {
		payment.Data = refunded[id]
		if err := repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		refundByCollection[payment.PaymentCollectionID] = refundByCollection[payment.PaymentCollectionID].Add(refundByPayment[id])

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentRefunded,
			AggregateType: enums.OutboxAggregatePayment,
			AggregateID:   payment.ID,
			Data: map[string]any{
				"payment_id":            payment.ID,
				"payment_collection_id": payment.PaymentCollectionID,
				"refunded_amount":       refundByPayment[id],
				"currency_code":         payment.CurrencyCode,
			},
		}); err != nil {
			return err
		}
	}

	for collectionID, amount := range refundByCollection {
		collection, err := repo.GetCollection(ctx, collectionID, RetrieveOptions{})
		if err != nil {
			return s.notFoundOr(err, "payment collection", collectionID)
		}
		collection.RefundedAmount = collection.RefundedAmount.Add(amount)
		if err := repo.UpdateCollectionCAS(ctx, collection, collection.Version); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) CancelPayments(ctx context.Context, ids []uuid.UUID) ([]models.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		paymentsByID, err := s.loadPaymentsForBatch(ctx, repo, ids)
		if err != nil {
			return err
		}

		for _, payment := range paymentsByID {
			if payment.CanceledAt != nil {
				return pkgerrors.Newf(pkgerrors.CodeInvalidData,
					"the payment %s has been canceled", payment.ID)
			}
			if len(payment.Captures) > 0 {
				return pkgerrors.Newf(pkgerrors.CodeInvalidData,
					"cannot cancel payment %s that has been captured", payment.ID)
			}
		}

		now := time.Now()
		for _, payment := range paymentsByID {
			data, err := s.gateway.Cancel(ctx, payment.ProviderID, payment.Data)
			if err != nil {
				return err
			}
			payment.Data = data
			payment.CanceledAt = &now
			if err := repo.UpdatePayment(ctx, payment); err != nil {
				return err
			}
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventPaymentCanceled,
				AggregateType: enums.OutboxAggregatePayment,
				AggregateID:   payment.ID,
				Data: map[string]any{
					"payment_id":            payment.ID,
					"payment_collection_id": payment.PaymentCollectionID,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.ListPaymentsByIDs(ctx, ids, true)
}

func (s *service) UpdatePayments(ctx context.Context, inputs []UpdatePaymentInput) ([]models.Payment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	updated := make([]models.Payment, 0, len(inputs))
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, input := range inputs {
			payment, err := repo.GetPayment(ctx, input.ID, false)
			if err != nil {
				return s.notFoundOr(err, "payment", input.ID)
			}
			if input.Data != nil {
				payment.Data = input.Data
			}
			if input.CartID != nil {
				payment.CartID = input.CartID
			}
			if input.OrderID != nil {
				payment.OrderID = input.OrderID
			}
			if input.OrderEditID != nil {
				payment.OrderEditID = input.OrderEditID
			}
			if input.CustomerID != nil {
				payment.CustomerID = input.CustomerID
			}
			if err := repo.UpdatePayment(ctx, payment); err != nil {
				return err
			}
			updated = append(updated, *payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RetrievePayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, id, true)
	if err != nil {
		return nil, s.notFoundOr(err, "payment", id)
	}
	return payment, nil
}

func (s *service) ListPayments(ctx context.Context, ids []uuid.UUID) ([]models.Payment, error) {
	return s.repo.ListPaymentsByIDs(ctx, ids, true)
}

// loadPaymentsForBatch fetches the payments a batch references and fails when
// any id does not resolve.
func (s *service) loadPaymentsForBatch(ctx context.Context, repo Repository, ids []uuid.UUID) (map[uuid.UUID]*models.Payment, error) {
	rows, err := repo.ListPaymentsByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Payment, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "payment with id %s was not found", id)
		}
	}
	return byID, nil
}

func (s *service) notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s with id %s was not found", entity, id)
	}
	return err
}

func paymentIDs[T any](inputs []T, id func(T) uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		key := id(input)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
