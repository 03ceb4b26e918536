package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

var (
	ErrPlanCodeRequired  = errors.New("plan code is required")
	ErrPlanNameRequired  = errors.New("plan name is required")
	ErrPlanPriceNegative = errors.New("plan price must not be negative")
	ErrPlanBillingCycle  = errors.New("billing cycle must be monthly or yearly")
)

// Plan is a sellable bundle of features. The catalog is append-mostly: plans
// referenced by a live subscription are never mutated, only deactivated.
type Plan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name         string          `gorm:"type:varchar(100);not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	BillingCycle string          `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_cycle"`
	FeaturesJSON string          `gorm:"column:features;type:text;not null" json:"-"`
	IsActive     bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FeatureCodes returns the ordered feature codes included in the plan.
func (p *Plan) FeatureCodes() []string {
	if strings.TrimSpace(p.FeaturesJSON) == "" {
		return nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(p.FeaturesJSON), &codes); err != nil {
		return nil
	}
	return codes
}

// SetFeatureCodes stores the ordered feature code list.
func (p *Plan) SetFeatureCodes(codes []string) error {
	b, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	p.FeaturesJSON = string(b)
	return nil
}

// IncludesFeature reports whether the plan's feature list contains the code.
func (p *Plan) IncludesFeature(code string) bool {
	code = strings.TrimSpace(code)
	for _, f := range p.FeatureCodes() {
		if f == code {
			return true
		}
	}
	return false
}

// Validate checks catalog invariants before persisting a plan.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return ErrPlanCodeRequired
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrPlanNameRequired
	}
	if p.Price.IsNegative() {
		return ErrPlanPriceNegative
	}
	switch p.BillingCycle {
	case BillingCycleMonthly, BillingCycleYearly:
	default:
		return ErrPlanBillingCycle
	}
	return nil
}
