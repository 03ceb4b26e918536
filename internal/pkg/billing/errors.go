package billing

import (
	"errors"
	"fmt"

	"github.com/novrh/platform/app/models"
)

// Error taxonomy for billing operations. The entitlement resolver collapses
// all of these into a deny; mutating operations propagate them to callers.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	// ErrDuplicateActiveSubscription is the models sentinel re-exported for
	// billing callers.
	ErrDuplicateActiveSubscription = models.ErrDuplicateActiveSubscription

	// ErrActiveSubscriptionExists rejects a create while the user already
	// holds an active, unexpired subscription.
	ErrActiveSubscriptionExists = fmt.Errorf("%w: user already has an active subscription", ErrValidation)

	ErrPlanNotFound   = fmt.Errorf("%w: plan does not resolve to an active plan", ErrValidation)
	ErrPaymentDenied  = errors.New("payment was not completed")
	ErrFeatureUnknown = fmt.Errorf("%w: unknown feature code", ErrValidation)
)
