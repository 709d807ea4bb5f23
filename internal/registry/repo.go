package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborline/payments-core/pkg/db/models"
)

// Repository manages persistence for payment provider rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.PaymentProvider, error)
	InsertMissing(ctx context.Context, row *models.PaymentProvider) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a provider repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.PaymentProvider, error) {
	var rows []models.PaymentProvider
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertMissing provisions a provider row if none exists. An existing row is
// left untouched so an operator's enable/disable choice survives restarts.
func (r *repository) InsertMissing(ctx context.Context, row *models.PaymentProvider) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *repository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentProvider{}).
		Where("id = ?", id).
		Update("is_enabled", enabled).Error
}
