package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment provider constants used across billing-related models.
const (
	PaymentProviderSimulated = "simulated"
	PaymentProviderGateway   = "gateway"
)

const (
	PaymentTxStatusCompleted = "completed"
	PaymentTxStatusFailed    = "failed"
)

// Payment is the append-only log of payment attempts. One row per processor
// invocation, keyed by the processor's transaction ID.
type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	PlanID         uint            `gorm:"not null;index" json:"plan_id"`
	SubscriptionID uint            `gorm:"not null;index" json:"subscription_id"`
	Provider       string          `gorm:"type:varchar(20);not null;index" json:"provider"`
	TransactionID  string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status         string          `gorm:"type:varchar(32);not null;index" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
