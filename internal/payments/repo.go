package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/pagination"
)

// ErrVersionConflict signals that a compare-and-swap collection update lost
// against a concurrent writer. Callers retry the whole unit of work.
var ErrVersionConflict = errors.New("payment collection version conflict")

// Repository manages persistence for payment collections, sessions, payments
// and their capture/refund trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCollections(ctx context.Context, collections []*models.PaymentCollection) error
	GetCollection(ctx context.Context, id uuid.UUID, opts RetrieveOptions) (*models.PaymentCollection, error)
	ListCollections(ctx context.Context, params ListCollectionsParams) ([]models.PaymentCollection, string, error)
	UpdateCollection(ctx context.Context, collection *models.PaymentCollection) error
	UpdateCollectionCAS(ctx context.Context, collection *models.PaymentCollection, expectedVersion int) error
	CompleteCollections(ctx context.Context, ids []uuid.UUID, completedAt time.Time) error
	SoftDeleteCollections(ctx context.Context, ids []uuid.UUID) error

	CreateSession(ctx context.Context, session *models.PaymentSession) error
	UpdateSession(ctx context.Context, session *models.PaymentSession) error
	DeleteSessions(ctx context.Context, ids []uuid.UUID) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.PaymentSession, error)
	ListSessionsByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.PaymentSession, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID, withTrail bool) (*models.Payment, error)
	ListPaymentsByIDs(ctx context.Context, ids []uuid.UUID, withTrail bool) ([]models.Payment, error)
	ListPaymentsByCollection(ctx context.Context, collectionID uuid.UUID, withTrail bool) ([]models.Payment, error)

	CreateCaptures(ctx context.Context, captures []*models.Capture) error
	CreateRefunds(ctx context.Context, refunds []*models.Refund) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCollections(ctx context.Context, collections []*models.PaymentCollection) error {
	if len(collections) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(collections).Error
}

func (r *repository) GetCollection(ctx context.Context, id uuid.UUID, opts RetrieveOptions) (*models.PaymentCollection, error) {
	query := r.db.WithContext(ctx)
	if opts.WithSessions {
		query = query.Preload("PaymentSessions")
	}
	if opts.WithPayments {
		query = query.Preload("Payments").
			Preload("Payments.Captures").
			Preload("Payments.Refunds")
	}

	var collection models.PaymentCollection
	if err := query.First(&collection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &collection, nil
}

func (r *repository) ListCollections(ctx context.Context, params ListCollectionsParams) ([]models.PaymentCollection, string, error) {
	query := r.db.WithContext(ctx)
	if len(params.IDs) > 0 {
		query = query.Where("id IN ?", params.IDs)
	}
	if params.RegionID != nil {
		query = query.Where("region_id = ?", *params.RegionID)
	}
	if params.WithSessions {
		query = query.Preload("PaymentSessions")
	}
	if params.WithPayments {
		query = query.Preload("Payments")
	}

	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Pagination.Limit)
	var rows []models.PaymentCollection
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Pagination.Limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

func (r *repository) UpdateCollection(ctx context.Context, collection *models.PaymentCollection) error {
	return r.db.WithContext(ctx).Save(collection).Error
}

// UpdateCollectionCAS persists the collection only when its version column
// still holds expectedVersion, bumping it by one. Zero affected rows means a
// concurrent writer got there first.
func (r *repository) UpdateCollectionCAS(ctx context.Context, collection *models.PaymentCollection, expectedVersion int) error {
	collection.Version = expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.PaymentCollection{}).
		Where("id = ? AND version = ?", collection.ID, expectedVersion).
		Updates(map[string]any{
			"authorized_amount": collection.AuthorizedAmount,
			"refunded_amount":   collection.RefundedAmount,
			"status":            collection.Status,
			"version":           collection.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) CompleteCollections(ctx context.Context, ids []uuid.UUID, completedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentCollection{}).
		Where("id IN ?", ids).
		Update("completed_at", completedAt).Error
}

func (r *repository) SoftDeleteCollections(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Delete(&models.PaymentCollection{}, "id IN ?", ids).Error
}

func (r *repository) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) UpdateSession(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *repository) DeleteSessions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Delete(&models.PaymentSession{}, "id IN ?", ids).Error
}

func (r *repository) GetSession(ctx context.Context, id uuid.UUID) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) ListSessionsByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.PaymentSession, error) {
	var sessions []models.PaymentSession
	if err := r.db.WithContext(ctx).
		Where("payment_collection_id = ?", collectionID).
		Order("created_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Omit("Captures", "Refunds").
		Save(payment).Error
}

func (r *repository) GetPayment(ctx context.Context, id uuid.UUID, withTrail bool) (*models.Payment, error) {
	query := r.db.WithContext(ctx)
	if withTrail {
		query = query.Preload("Captures").Preload("Refunds")
	}
	var payment models.Payment
	if err := query.First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListPaymentsByIDs(ctx context.Context, ids []uuid.UUID, withTrail bool) ([]models.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx)
	if withTrail {
		query = query.Preload("Captures").Preload("Refunds")
	}
	var rows []models.Payment
	if err := query.
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPaymentsByCollection(ctx context.Context, collectionID uuid.UUID, withTrail bool) ([]models.Payment, error) {
	query := r.db.WithContext(ctx)
	if withTrail {
		query = query.Preload("Captures").Preload("Refunds")
	}
	var rows []models.Payment
	if err := query.
		Where("payment_collection_id = ?", collectionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateCaptures(ctx context.Context, captures []*models.Capture) error {
	if len(captures) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(captures).Error
}

func (r *repository) CreateRefunds(ctx context.Context, refunds []*models.Refund) error {
	if len(refunds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(refunds).Error
}
