package entitlements

import (
	"context"
	"errors"
	"log"

	"github.com/novrh/platform/app/models"
)

// Store is the capability set the resolver needs from the data layer. The
// billing repository satisfies it; tests inject fakes.
type Store interface {
	GetActiveSubscription(userID uint) (*models.Subscription, error)
	GetPlanByID(id uint) (*models.Plan, error)
	GetUsage(userID uint, feature string) (*models.UsageRecord, error)
}

// Deny reasons, logged internally. Callers only ever see the boolean.
const (
	ReasonAllowed               = "allowed"
	ReasonNoSubscription        = "no_subscription"
	ReasonDuplicateSubscription = "duplicate_subscription"
	ReasonPlanExcludes          = "plan_excludes"
	ReasonLimitReached          = "limit_reached"
	ReasonStoreError            = "store_error"
	ReasonUnknownFeature        = "unknown_feature"
)

// Decision carries the full resolution result for logging and gate rendering.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Feature   string `json:"feature"`
	Plan      string `json:"plan,omitempty"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// Resolver decides feature access by combining the plan catalog, the user's
// subscription and the usage ledger. It fails closed: any error while loading
// inputs is a deny, never a propagated error.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// HasAccess is the boolean contract consumed by gates. The deny cause is
// logged but deliberately not exposed to the caller.
func (r *Resolver) HasAccess(ctx context.Context, userID uint, feature string) bool {
	d := r.Check(ctx, userID, feature)
	if !d.Allowed {
		log.Printf("entitlement denied: user=%d feature=%s reason=%s", userID, feature, d.Reason)
	}
	return d.Allowed
}

// Check runs the three-step resolution and reports the detailed decision.
// All three checks must pass; the order matches the data dependencies:
// subscription, then plan inclusion, then usage limit.
func (r *Resolver) Check(ctx context.Context, userID uint, feature string) Decision {
	_ = ctx
	d := Decision{Feature: feature, Remaining: -1}

	if !KnownFeature(feature) {
		d.Reason = ReasonUnknownFeature
		return d
	}
	if userID == 0 {
		d.Reason = ReasonNoSubscription
		return d
	}

	sub, err := r.store.GetActiveSubscription(userID)
	if err != nil {
		log.Printf("entitlement check: loading subscription for user %d: %v", userID, err)
		d.Reason = reasonForSubscriptionError(err)
		return d
	}
	if sub == nil {
		d.Reason = ReasonNoSubscription
		return d
	}

	plan := sub.Plan
	if plan == nil {
		plan, err = r.store.GetPlanByID(sub.PlanID)
		if err != nil || plan == nil {
			log.Printf("entitlement check: loading plan %d: %v", sub.PlanID, err)
			d.Reason = ReasonStoreError
			return d
		}
	}
	d.Plan = plan.Code
	if !plan.IncludesFeature(feature) {
		d.Reason = ReasonPlanExcludes
		return d
	}

	usage, err := r.store.GetUsage(userID, feature)
	if err != nil {
		log.Printf("entitlement check: loading usage for user %d feature %s: %v", userID, feature, err)
		d.Reason = ReasonStoreError
		return d
	}
	if usage != nil {
		d.Used = usage.UsageCount
		d.Limit = usage.UsageLimit
		d.Remaining = usage.Remaining()
		if usage.LimitReached() {
			d.Reason = ReasonLimitReached
			return d
		}
	}

	d.Allowed = true
	d.Reason = ReasonAllowed
	return d
}

func reasonForSubscriptionError(err error) string {
	if errors.Is(err, models.ErrDuplicateActiveSubscription) {
		return ReasonDuplicateSubscription
	}
	return ReasonStoreError
}
