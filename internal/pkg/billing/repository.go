package billing

import (
	"errors"
	"time"

	"github.com/novrh/platform/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service and the
// entitlement resolver.
type Repository interface {
	ListActivePlans() ([]models.Plan, error)
	ListPlans() ([]models.Plan, error)
	GetPlanByID(id uint) (*models.Plan, error)
	GetPlanByCode(code string) (*models.Plan, error)
	CreatePlan(plan *models.Plan) error
	DeactivatePlan(id uint) error

	// GetActiveSubscription returns the user's single active, unexpired
	// subscription, nil when there is none, and
	// ErrDuplicateActiveSubscription when the uniqueness invariant is broken.
	GetActiveSubscription(userID uint) (*models.Subscription, error)
	GetSubscriptionByID(id uint) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error
	ListSubscriptionsByUser(userID uint) ([]models.Subscription, error)
	ListSubscriptions(offset, limit int) ([]models.Subscription, error)

	// GetUsage returns nil when no record exists for the pair yet.
	GetUsage(userID uint, feature string) (*models.UsageRecord, error)
	// IncrementUsage lazily creates the record with count=1 or bumps the
	// counter by one, atomically. The stored limit is set to defaultLimit on
	// every call so the cap always tracks the caller's current plan.
	IncrementUsage(userID uint, feature string, defaultLimit int64) (*models.UsageRecord, error)

	CreatePayment(payment *models.Payment) error
	GetPaymentByTransactionID(txID string) (*models.Payment, error)
	ListPaymentsByUser(userID uint) ([]models.Payment, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ListActivePlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *gormRepository) ListPlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *gormRepository) GetPlanByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetPlanByCode(code string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("code = ?", code).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) CreatePlan(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

func (r *gormRepository) DeactivatePlan(id uint) error {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return err
	}
	return r.db.Model(&plan).Update("is_active", false).Error
}

func (r *gormRepository) GetActiveSubscription(userID uint) (*models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").
		Where("user_id = ? AND status = ? AND ends_at > ?", userID, models.SubscriptionStatusActive, time.Now()).
		Order("created_at DESC").
		Limit(2).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	switch len(subs) {
	case 0:
		return nil, nil
	case 1:
		return &subs[0], nil
	default:
		return nil, models.ErrDuplicateActiveSubscription
	}
}

func (r *gormRepository) GetSubscriptionByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Preload("Plan").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) ListSubscriptionsByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ListSubscriptions(offset, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&subs).Error
	return subs, err
}

func (r *gormRepository) GetUsage(userID uint, feature string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := r.db.Where("user_id = ? AND feature = ?", userID, feature).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// IncrementUsage is a single-statement upsert keyed on the unique
// (user_id, feature) index, so two concurrent increments both land. The
// stored limit is refreshed on every write, so a plan change takes effect
// on the next consumption instead of freezing the old plan's cap.
func (r *gormRepository) IncrementUsage(userID uint, feature string, defaultLimit int64) (*models.UsageRecord, error) {
	rec := &models.UsageRecord{
		UserID:     userID,
		Feature:    feature,
		UsageCount: 1,
		UsageLimit: defaultLimit,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "feature"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + ?", 1),
			"usage_limit": defaultLimit,
			"updated_at":  time.Now(),
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the post-increment state.
	var stored models.UsageRecord
	if err := r.db.Where("user_id = ? AND feature = ?", userID, feature).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) GetPaymentByTransactionID(txID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("transaction_id = ?", txID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}
