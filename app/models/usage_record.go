package models

import "time"

// UsageRecord is a per-user, per-feature consumption counter. Records are
// created lazily on first use and only ever count upward. ResetsAt is stored
// for monthly-quota plans but nothing acts on it yet (see billing docs).
type UsageRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:ux_usage_records_user_feature,unique,priority:1" json:"user_id"`
	Feature    string     `gorm:"type:varchar(100);not null;index:ux_usage_records_user_feature,unique,priority:2" json:"feature"`
	UsageCount int64      `gorm:"not null;default:0" json:"usage_count"`
	UsageLimit int64      `gorm:"not null;default:0" json:"usage_limit"`
	ResetsAt   *time.Time `gorm:"type:timestamp;default:null" json:"resets_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Limited reports whether the record carries an enforced cap.
func (u *UsageRecord) Limited() bool {
	return u.UsageLimit > 0
}

// LimitReached reports whether the counter has consumed the full cap.
func (u *UsageRecord) LimitReached() bool {
	return u.Limited() && u.UsageCount >= u.UsageLimit
}

// Remaining returns how many uses are left, or -1 for unlimited records.
func (u *UsageRecord) Remaining() int64 {
	if !u.Limited() {
		return -1
	}
	if r := u.UsageLimit - u.UsageCount; r > 0 {
		return r
	}
	return 0
}
