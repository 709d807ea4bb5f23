package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an authorized session promoted into a capturable record. Captures
// and refunds hang off it as the append-only money trail.
type Payment struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentCollectionID uuid.UUID       `gorm:"column:payment_collection_id;type:uuid;not null;index"`
	PaymentSessionID    uuid.UUID       `gorm:"column:payment_session_id;type:uuid;not null"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(19,4);not null"`
	AuthorizedAmount    decimal.Decimal `gorm:"column:authorized_amount;type:numeric(19,4);not null"`
	CurrencyCode        string          `gorm:"column:currency_code;not null"`
	ProviderID          string          `gorm:"column:provider_id;not null"`
	Data                json.RawMessage `gorm:"column:data;type:jsonb"`
	CapturedAt          *time.Time      `gorm:"column:captured_at"`
	CanceledAt          *time.Time      `gorm:"column:canceled_at"`

	// Correlation only; never used for lifecycle control.
	CartID      *uuid.UUID `gorm:"column:cart_id;type:uuid"`
	OrderID     *uuid.UUID `gorm:"column:order_id;type:uuid"`
	OrderEditID *uuid.UUID `gorm:"column:order_edit_id;type:uuid"`
	CustomerID  *uuid.UUID `gorm:"column:customer_id;type:uuid"`

	Captures []Capture `gorm:"foreignKey:PaymentID"`
	Refunds  []Refund  `gorm:"foreignKey:PaymentID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
