package models

import "time"

// PaymentProvider is the registry row recording that a provider plugin is
// available. Rows are created lazily on first application start and never
// deleted automatically.
type PaymentProvider struct {
	ID        string    `gorm:"column:id;primaryKey"`
	IsEnabled bool      `gorm:"column:is_enabled;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
