package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusDraft  = "draft"
)

const (
	ContractTypeCDI        = "cdi"
	ContractTypeCDD        = "cdd"
	ContractTypeFreelance  = "freelance"
	ContractTypeInternship = "internship"
)

// JobPosting is a company's published vacancy. Creating one consumes the
// job_posting entitlement.
type JobPosting struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CompanyID    uint           `gorm:"not null;index" json:"company_id"`
	Company      *User          `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description  string         `gorm:"type:text;not null" json:"description" validate:"required,min=20"`
	Location     string         `gorm:"type:varchar(150)" json:"location" validate:"max=150"`
	ContractType string         `gorm:"type:varchar(32);not null;default:'cdi'" json:"contract_type" validate:"oneof=cdi cdd freelance internship"`
	Status       string         `gorm:"type:varchar(32);not null;default:'open';index" json:"status"`
	ExpiresAt    *time.Time     `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (j *JobPosting) Validate() error {
	v := validator.New()

	return v.Struct(j)
}

// IsOpen reports whether the posting is visible to candidates.
func (j *JobPosting) IsOpen(now time.Time) bool {
	if j.Status != JobStatusOpen {
		return false
	}
	return j.ExpiresAt == nil || j.ExpiresAt.After(now)
}
