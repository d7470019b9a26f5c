package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Payment struct {
	gorm.Model
	UserID       uint          `gorm:"index;not null" json:"user_id"`
	Tier         Tier          `gorm:"type:varchar(16);not null" json:"tier"`
	Amount       int64         `json:"amount"` // cents
	Currency     string        `json:"currency"`
	Status       PaymentStatus `gorm:"type:varchar(16);default:pending;index" json:"status"`
	SessionID    *string       `gorm:"uniqueIndex" json:"session_id"`
	PromoApplied bool          `gorm:"default:false" json:"promo_applied"`
	CompletedAt  *time.Time    `json:"completed_at"`
}
