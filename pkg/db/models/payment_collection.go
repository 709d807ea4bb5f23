package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborline/payments-core/pkg/enums"
)

// PaymentCollection is the total amount owed for one transaction context,
// e.g. one order. Amount is fixed at creation; the authorized and refunded
// aggregates move as sessions authorize and payments capture/refund.
type PaymentCollection struct {
	ID               uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RegionID         uuid.UUID                     `gorm:"column:region_id;type:uuid;not null"`
	CurrencyCode     string                        `gorm:"column:currency_code;not null"`
	Amount           decimal.Decimal               `gorm:"column:amount;type:numeric(19,4);not null"`
	AuthorizedAmount decimal.Decimal               `gorm:"column:authorized_amount;type:numeric(19,4);not null;default:0"`
	RefundedAmount   decimal.Decimal               `gorm:"column:refunded_amount;type:numeric(19,4);not null;default:0"`
	Status           enums.PaymentCollectionStatus `gorm:"column:status;not null;default:'not_paid'"`
	CompletedAt      *time.Time                    `gorm:"column:completed_at"`

	// Version backs the optimistic compare-and-swap that serializes
	// concurrent authorize calls against the same collection.
	Version int `gorm:"column:version;not null;default:0"`

	PaymentSessions []PaymentSession `gorm:"foreignKey:PaymentCollectionID"`
	Payments        []Payment        `gorm:"foreignKey:PaymentCollectionID"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
