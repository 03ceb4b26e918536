package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/novrh/platform/app/models"
)

type fakeRepo struct {
	plans    []*models.Plan
	subs     map[uint]*models.Subscription
	usage    map[string]*models.UsageRecord
	payments map[string]*models.Payment

	nextSubID uint
	subErr    error
	usageErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subs:     make(map[uint]*models.Subscription),
		usage:    make(map[string]*models.UsageRecord),
		payments: make(map[string]*models.Payment),
	}
}

func (f *fakeRepo) addPlan(id uint, code string, price string, features ...string) *models.Plan {
	p := &models.Plan{
		ID:           id,
		Code:         code,
		Name:         code,
		Price:        decimal.RequireFromString(price),
		Currency:     "EUR",
		BillingCycle: models.BillingCycleMonthly,
		IsActive:     true,
	}
	if err := p.SetFeatureCodes(features); err != nil {
		panic(err)
	}
	f.plans = append(f.plans, p)
	return p
}

func (f *fakeRepo) ListActivePlans() ([]models.Plan, error) {
	var out []models.Plan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPlans() ([]models.Plan, error) {
	var out []models.Plan
	for _, p := range f.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRepo) GetPlanByID(id uint) (*models.Plan, error) {
	for _, p := range f.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetPlanByCode(code string) (*models.Plan, error) {
	for _, p := range f.plans {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreatePlan(plan *models.Plan) error {
	plan.ID = uint(len(f.plans) + 1)
	f.plans = append(f.plans, plan)
	return nil
}

func (f *fakeRepo) DeactivatePlan(id uint) error {
	p, err := f.GetPlanByID(id)
	if err != nil {
		return err
	}
	p.IsActive = false
	return nil
}

func (f *fakeRepo) GetActiveSubscription(userID uint) (*models.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	var found *models.Subscription
	now := time.Now()
	for _, s := range f.subs {
		if s.UserID == userID && s.Status == models.SubscriptionStatusActive && s.EndsAt.After(now) {
			if found != nil {
				return nil, models.ErrDuplicateActiveSubscription
			}
			found = s
		}
	}
	if found != nil && found.Plan == nil {
		found.Plan, _ = f.GetPlanByID(found.PlanID)
	}
	return found, nil
}

func (f *fakeRepo) GetSubscriptionByID(id uint) (*models.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeRepo) CreateSubscription(sub *models.Subscription) error {
	f.nextSubID++
	sub.ID = f.nextSubID
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeRepo) SaveSubscription(sub *models.Subscription) error {
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeRepo) ListSubscriptionsByUser(userID uint) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSubscriptions(offset, limit int) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.subs {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeRepo) GetUsage(userID uint, feature string) (*models.UsageRecord, error) {
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	rec, ok := f.usage[usageKey(userID, feature)]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeRepo) IncrementUsage(userID uint, feature string, defaultLimit int64) (*models.UsageRecord, error) {
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	key := usageKey(userID, feature)
	rec, ok := f.usage[key]
	if !ok {
		rec = &models.UsageRecord{UserID: userID, Feature: feature}
		f.usage[key] = rec
	}
	rec.UsageCount++
	rec.UsageLimit = defaultLimit
	return rec, nil
}

func (f *fakeRepo) CreatePayment(payment *models.Payment) error {
	f.payments[payment.TransactionID] = payment
	return nil
}

func (f *fakeRepo) GetPaymentByTransactionID(txID string) (*models.Payment, error) {
	p, ok := f.payments[txID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeRepo) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func usageKey(userID uint, feature string) string {
	return fmt.Sprintf("%d:%s", userID, feature)
}

type fakeProcessor struct {
	result *PaymentResult
	err    error
	calls  int
}

func (p *fakeProcessor) Process(ctx context.Context, userID uint, plan *models.Plan, subscriptionID uint) (*PaymentResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func seededRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.addPlan(1, "basic", "29.00", "cv_access_limited")
	repo.addPlan(2, "pro", "79.00", "cv_access_limited", "cv_coaching", "tender_access")
	repo.addPlan(3, "entreprise", "199.00", "job_posting", "cv_access_full", "cv_coaching", "tender_access")
	return repo
}

func TestCreateSubscriptionStartsPending(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "pro", nil)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, models.PaymentStatusPending, sub.PaymentStatus)
	assert.False(t, sub.IsCurrentlyActive(time.Now()))
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), sub.EndsAt, time.Minute)

	active, err := svc.GetActiveSubscription(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, active, "pending subscription must not count as active")
}

func TestCreateSubscriptionUnknownPlan(t *testing.T) {
	svc := NewService(seededRepo(), &fakeProcessor{})

	_, err := svc.CreateSubscription(context.Background(), 7, "platinum", nil)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCreateSubscriptionInactivePlan(t *testing.T) {
	repo := seededRepo()
	require.NoError(t, repo.DeactivatePlan(1))
	svc := NewService(repo, &fakeProcessor{})

	_, err := svc.CreateSubscription(context.Background(), 7, "basic", nil)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCreateSubscriptionRejectsSecondActive(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "basic", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	_, err = svc.CreateSubscription(context.Background(), 7, "pro", nil)
	assert.ErrorIs(t, err, ErrActiveSubscriptionExists)
}

func TestActivateSubscriptionIdempotent(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "basic", nil)
	require.NoError(t, err)

	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}

func TestActivateSubscriptionNotFound(t *testing.T) {
	svc := NewService(seededRepo(), &fakeProcessor{})
	err := svc.ActivateSubscription(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelSubscription(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "basic", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	require.NoError(t, svc.CancelSubscription(context.Background(), sub.ID))
	// Cancelling twice is a no-op.
	require.NoError(t, svc.CancelSubscription(context.Background(), sub.ID))

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)

	active, err := svc.GetActiveSubscription(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSubscribeHappyPath(t *testing.T) {
	repo := seededRepo()
	proc := &fakeProcessor{result: &PaymentResult{
		Success:       true,
		TransactionID: "tx_1",
		Provider:      models.PaymentProviderSimulated,
		Status:        models.PaymentTxStatusCompleted,
	}}
	svc := NewService(repo, proc)

	sub, result, err := svc.Subscribe(context.Background(), 7, "entreprise")
	require.NoError(t, err)

	assert.Equal(t, 1, proc.calls)
	assert.True(t, result.Success)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, models.PaymentStatusPaid, sub.PaymentStatus)
	assert.Equal(t, "entreprise", sub.Plan.Code)
}

func TestSubscribeDeclinedPaymentLeavesPending(t *testing.T) {
	repo := seededRepo()
	proc := &fakeProcessor{result: &PaymentResult{
		Success:       false,
		TransactionID: "tx_declined",
		Provider:      models.PaymentProviderGateway,
		Status:        models.PaymentTxStatusFailed,
	}}
	svc := NewService(repo, proc)

	sub, result, err := svc.Subscribe(context.Background(), 7, "pro")
	assert.ErrorIs(t, err, ErrPaymentDenied)
	require.NotNil(t, result)
	assert.False(t, result.Success)

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
}

func TestSubscribeProcessorError(t *testing.T) {
	repo := seededRepo()
	proc := &fakeProcessor{err: errors.New("gateway unreachable")}
	svc := NewService(repo, proc)

	sub, _, err := svc.Subscribe(context.Background(), 7, "pro")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentDenied)

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
}

func TestIncrementUsageUnknownFeature(t *testing.T) {
	svc := NewService(seededRepo(), &fakeProcessor{})
	_, err := svc.IncrementUsage(context.Background(), 7, "time_travel")
	assert.ErrorIs(t, err, ErrFeatureUnknown)
}

func TestIncrementUsagePicksPlanDefaultLimit(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "basic", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	rec, err := svc.IncrementUsage(context.Background(), 7, "cv_access_limited")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.UsageCount)
	assert.Equal(t, int64(5), rec.UsageLimit)

	rec, err = svc.IncrementUsage(context.Background(), 7, "cv_access_limited")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.UsageCount)
	assert.Equal(t, int64(5), rec.UsageLimit)
}

func TestIncrementUsageTracksLimitAcrossPlanChange(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "pro", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	rec, err := svc.IncrementUsage(context.Background(), 7, "cv_access_limited")
	require.NoError(t, err)
	assert.Equal(t, int64(50), rec.UsageLimit)

	// Cancel and move down to basic: the cap must follow the new plan, not
	// linger at the old plan's value.
	require.NoError(t, svc.CancelSubscription(context.Background(), sub.ID))
	sub, err = svc.CreateSubscription(context.Background(), 7, "basic", nil)
	require.NoError(t, err)
	require.NoError(t, svc.ActivateSubscription(context.Background(), sub.ID))

	rec, err = svc.IncrementUsage(context.Background(), 7, "cv_access_limited")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.UsageCount)
	assert.Equal(t, int64(5), rec.UsageLimit)
}

func TestIncrementUsageWithoutSubscriptionIsUnlimitedRecord(t *testing.T) {
	svc := NewService(seededRepo(), &fakeProcessor{})

	rec, err := svc.IncrementUsage(context.Background(), 9, "cv_access_limited")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.UsageCount)
	assert.Equal(t, int64(0), rec.UsageLimit)
}

func TestHandleGatewayWebhookSucceededActivates(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "pro", nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreatePayment(&models.Payment{
		UserID:         7,
		PlanID:         sub.PlanID,
		SubscriptionID: sub.ID,
		Provider:       models.PaymentProviderGateway,
		TransactionID:  "tx_async",
		Status:         models.PaymentTxStatusCompleted,
	}))

	err = svc.HandleGatewayWebhook(context.Background(), &WebhookEvent{
		EventType:     "payment.succeeded",
		TransactionID: "tx_async",
	})
	require.NoError(t, err)

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
}

func TestHandleGatewayWebhookFailedMarksPayment(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})

	sub, err := svc.CreateSubscription(context.Background(), 7, "pro", nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreatePayment(&models.Payment{
		UserID:         7,
		SubscriptionID: sub.ID,
		TransactionID:  "tx_bad",
		Status:         models.PaymentTxStatusFailed,
	}))

	err = svc.HandleGatewayWebhook(context.Background(), &WebhookEvent{
		EventType:     "payment.failed",
		TransactionID: "tx_bad",
	})
	require.NoError(t, err)

	stored, err := repo.GetSubscriptionByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, models.SubscriptionStatusPending, stored.Status)
}

func TestHandleGatewayWebhookUnknownTransaction(t *testing.T) {
	svc := NewService(seededRepo(), &fakeProcessor{})
	err := svc.HandleGatewayWebhook(context.Background(), &WebhookEvent{
		EventType:     "payment.succeeded",
		TransactionID: "tx_nope",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleGatewayWebhookIgnoresOtherEvents(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, &fakeProcessor{})
	require.NoError(t, repo.CreatePayment(&models.Payment{TransactionID: "tx_x", SubscriptionID: 1}))

	err := svc.HandleGatewayWebhook(context.Background(), &WebhookEvent{
		EventType:     "charge.refunded",
		TransactionID: "tx_x",
	})
	assert.NoError(t, err)
}
