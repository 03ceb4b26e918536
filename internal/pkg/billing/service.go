package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Service owns the subscription lifecycle and the usage ledger. The
// entitlement resolver reads through the same repository; this service is the
// only writer.
type Service struct {
	repo      Repository
	processor PaymentProcessor
}

// NewService creates a billing service from an injected repository and
// payment processor.
func NewService(repo Repository, processor PaymentProcessor) *Service {
	return &Service{repo: repo, processor: processor}
}

// NewServiceFromDB creates a billing service from a GORM DB handle, selecting
// the payment processor from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	repo := NewRepository(db)
	return NewService(repo, NewProcessorFromEnv(repo))
}

// Repo exposes the underlying repository for read-side collaborators
// (entitlement resolver wiring).
func (s *Service) Repo() Repository {
	return s.repo
}

// ListActivePlans returns the sellable catalog, cheapest first.
func (s *Service) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	_ = ctx
	return s.repo.ListActivePlans()
}

// GetActiveSubscription returns the user's current subscription or nil.
// A broken uniqueness invariant surfaces as ErrDuplicateActiveSubscription.
func (s *Service) GetActiveSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return s.repo.GetActiveSubscription(userID)
}

// CreateSubscription opens a pending subscription on the given plan. The
// validity window defaults to one year from now unless endsAt overrides it.
// Creation is rejected while the user still holds an active subscription.
func (s *Service) CreateSubscription(ctx context.Context, userID uint, planCode string, endsAt *time.Time) (*models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	plan, err := s.resolveActivePlan(planCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetActiveSubscription(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrActiveSubscriptionExists
	}

	now := time.Now()
	end := now.AddDate(1, 0, 0)
	if endsAt != nil {
		if !endsAt.After(now) {
			return nil, fmt.Errorf("%w: ends_at must be in the future", ErrValidation)
		}
		end = *endsAt
	}

	sub := &models.Subscription{
		UserID:        userID,
		PlanID:        plan.ID,
		Status:        models.SubscriptionStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		StartsAt:      now,
		EndsAt:        end,
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}
	sub.Plan = plan
	return sub, nil
}

// ActivateSubscription marks the subscription paid and active. Re-activating
// an already active subscription is a no-op, not an error.
func (s *Service) ActivateSubscription(ctx context.Context, subscriptionID uint) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: subscription %d", ErrNotFound, subscriptionID)
		}
		return err
	}
	if sub.Status == models.SubscriptionStatusActive {
		return nil
	}

	sub.Status = models.SubscriptionStatusActive
	sub.PaymentStatus = models.PaymentStatusPaid
	return s.repo.SaveSubscription(sub)
}

// CancelSubscription flips the subscription to cancelled. History is kept;
// nothing is deleted.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID uint) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: subscription %d", ErrNotFound, subscriptionID)
		}
		return err
	}
	if sub.Status == models.SubscriptionStatusCancelled {
		return nil
	}

	sub.Status = models.SubscriptionStatusCancelled
	return s.repo.SaveSubscription(sub)
}

// Subscribe runs the full flow: pending subscription, payment, activation.
// On a declined payment the subscription stays pending with payment_status
// failed and ErrPaymentDenied is returned alongside the processor result.
func (s *Service) Subscribe(ctx context.Context, userID uint, planCode string) (*models.Subscription, *PaymentResult, error) {
	sub, err := s.CreateSubscription(ctx, userID, planCode, nil)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.processor.Process(ctx, userID, sub.Plan, sub.ID)
	if err != nil {
		s.markPaymentFailed(sub)
		return sub, nil, fmt.Errorf("processing payment: %w", err)
	}
	if !result.Success {
		s.markPaymentFailed(sub)
		return sub, result, ErrPaymentDenied
	}

	if err := s.ActivateSubscription(ctx, sub.ID); err != nil {
		return sub, result, err
	}
	sub.Status = models.SubscriptionStatusActive
	sub.PaymentStatus = models.PaymentStatusPaid
	return sub, result, nil
}

func (s *Service) markPaymentFailed(sub *models.Subscription) {
	sub.PaymentStatus = models.PaymentStatusFailed
	if err := s.repo.SaveSubscription(sub); err != nil {
		log.Printf("billing: marking subscription %d payment failed: %v", sub.ID, err)
	}
}

// GetUsage returns the usage record for a user/feature pair, or nil.
func (s *Service) GetUsage(ctx context.Context, userID uint, feature string) (*models.UsageRecord, error) {
	_ = ctx
	if !entitlements.KnownFeature(feature) {
		return nil, ErrFeatureUnknown
	}
	return s.repo.GetUsage(userID, feature)
}

// IncrementUsage consumes one unit of a feature. The record is created
// lazily, carrying the cap the user's current plan configures for the
// feature. Errors here propagate: silently losing a count would corrupt
// billing state.
func (s *Service) IncrementUsage(ctx context.Context, userID uint, feature string) (*models.UsageRecord, error) {
	_ = ctx
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if !entitlements.KnownFeature(feature) {
		return nil, ErrFeatureUnknown
	}

	var defaultLimit int64
	if sub, err := s.repo.GetActiveSubscription(userID); err == nil && sub != nil {
		plan := sub.Plan
		if plan == nil {
			plan, _ = s.repo.GetPlanByID(sub.PlanID)
		}
		if plan != nil {
			defaultLimit = entitlements.DefaultLimit(plan.Code, feature)
		}
	}

	return s.repo.IncrementUsage(userID, feature, defaultLimit)
}

// ListSubscriptionsByUser returns the user's full subscription history.
func (s *Service) ListSubscriptionsByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	_ = ctx
	return s.repo.ListSubscriptionsByUser(userID)
}

// HandleGatewayWebhook settles asynchronous gateway payments: a succeeded
// payment event activates the pending subscription the payment row points at.
func (s *Service) HandleGatewayWebhook(ctx context.Context, event *WebhookEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}

	payment, err := s.repo.GetPaymentByTransactionID(event.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: payment %s", ErrNotFound, event.TransactionID)
		}
		return err
	}

	switch strings.ToLower(event.EventType) {
	case "payment.succeeded":
		return s.ActivateSubscription(ctx, payment.SubscriptionID)
	case "payment.failed":
		sub, err := s.repo.GetSubscriptionByID(payment.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status == models.SubscriptionStatusActive {
			// Late failure after activation: keep access until support
			// resolves it, but flag the payment state.
			log.Printf("billing: late payment failure for active subscription %d", sub.ID)
		}
		sub.PaymentStatus = models.PaymentStatusFailed
		return s.repo.SaveSubscription(sub)
	default:
		log.Printf("billing: ignoring gateway webhook type %q", event.EventType)
		return nil
	}
}

func (s *Service) resolveActivePlan(planCode string) (*models.Plan, error) {
	code := strings.ToLower(strings.TrimSpace(planCode))
	if code == "" {
		return nil, ErrPlanNotFound
	}
	plan, err := s.repo.GetPlanByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}
