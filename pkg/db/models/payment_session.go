package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborline/payments-core/pkg/enums"
)

// PaymentSession is one provider's in-progress attempt to authorize part of a
// collection's amount. Data is the provider's opaque state blob and is only
// ever written with what the provider returned.
type PaymentSession struct {
	ID                  uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentCollectionID uuid.UUID                  `gorm:"column:payment_collection_id;type:uuid;not null;index"`
	Amount              decimal.Decimal            `gorm:"column:amount;type:numeric(19,4);not null"`
	CurrencyCode        string                     `gorm:"column:currency_code;not null"`
	ProviderID          string                     `gorm:"column:provider_id;not null"`
	Data                json.RawMessage            `gorm:"column:data;type:jsonb"`
	Status              enums.PaymentSessionStatus `gorm:"column:status;not null;default:'pending'"`
	AuthorizedAt        *time.Time                 `gorm:"column:authorized_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
