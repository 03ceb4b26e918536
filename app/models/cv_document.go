package models

import (
	"time"

	"gorm.io/gorm"
)

// CVDocument references a candidate CV stored in the object store. The file
// itself lives in S3; only metadata is kept here. Downloads by company users
// count against the cv_access entitlements.
type CVDocument struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ObjectKey     string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	FileName      string         `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType   string         `gorm:"type:varchar(100);not null;default:'application/pdf'" json:"content_type"`
	FileSize      int64          `gorm:"not null;default:0" json:"file_size"`
	DownloadCount int64          `gorm:"not null;default:0" json:"download_count"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
