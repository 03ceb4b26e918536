package models

import (
	"errors"
	"time"
)

// ErrDuplicateActiveSubscription signals a violated uniqueness invariant:
// more than one active, unexpired subscription exists for a user.
var ErrDuplicateActiveSubscription = errors.New("multiple active subscriptions for user")

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Subscription is a user's time-bounded claim on a plan. At most one
// subscription per user may be active and unexpired at any instant; the
// billing service enforces this at write time. Expiry is computed at read
// time, no background job flips the status column.
type Subscription struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	PlanID        uint      `gorm:"not null;index" json:"plan_id"`
	Plan          *Plan     `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status        string    `gorm:"type:varchar(32);not null;default:'pending';index:idx_subscriptions_user_status,priority:2" json:"status"`
	PaymentStatus string    `gorm:"type:varchar(32);not null;default:'pending'" json:"payment_status"`
	StartsAt      time.Time `gorm:"type:timestamp;not null" json:"starts_at"`
	EndsAt        time.Time `gorm:"type:timestamp;not null;index" json:"ends_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCurrentlyActive reports whether the subscription grants entitlements now.
func (s *Subscription) IsCurrentlyActive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.EndsAt.After(now)
}

// IsExpired reports whether the validity window has passed, regardless of
// what the status column still says.
func (s *Subscription) IsExpired(now time.Time) bool {
	return !s.EndsAt.After(now)
}
