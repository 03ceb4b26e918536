package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

type gateStore struct {
	sub   *models.Subscription
	usage *models.UsageRecord
}

func (s *gateStore) GetActiveSubscription(userID uint) (*models.Subscription, error) {
	return s.sub, nil
}

func (s *gateStore) GetPlanByID(id uint) (*models.Plan, error) {
	if s.sub == nil {
		return nil, nil
	}
	return s.sub.Plan, nil
}

func (s *gateStore) GetUsage(userID uint, feature string) (*models.UsageRecord, error) {
	return s.usage, nil
}

func gatedApp(t *testing.T, loggedInUser uint, handler fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if loggedInUser != 0 {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
				UserID:     loggedInUser,
				IsLoggedIn: true,
			})
		}
		return c.Next()
	})
	app.Get("/gated", handler, func(c *fiber.Ctx) error {
		return c.SendString("through")
	})
	return app
}

func subscriptionOn(t *testing.T, planCode string, features ...string) *models.Subscription {
	t.Helper()
	plan := &models.Plan{ID: 1, Code: planCode, Name: planCode, IsActive: true}
	require.NoError(t, plan.SetFeatureCodes(features))
	return &models.Subscription{
		ID: 1, UserID: 7, PlanID: 1, Plan: plan,
		Status: models.SubscriptionStatusActive,
		EndsAt: time.Now().AddDate(1, 0, 0),
	}
}

func TestRequireFeatureRejectsAnonymous(t *testing.T) {
	resolver := entitlements.NewResolver(&gateStore{})
	app := gatedApp(t, 0, RequireFeature(resolver, entitlements.FeatureJobPosting))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireFeaturePaywallsExcludedPlan(t *testing.T) {
	store := &gateStore{sub: subscriptionOn(t, "basic", entitlements.FeatureCVAccessLimited)}
	resolver := entitlements.NewResolver(store)
	app := gatedApp(t, 7, RequireFeature(resolver, entitlements.FeatureJobPosting))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)

	var body struct {
		Error         string                     `json:"error"`
		Feature       string                     `json:"feature"`
		UpgradePrompt entitlements.UpgradePrompt `json:"upgrade_prompt"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "upgrade_required", body.Error)
	assert.Equal(t, entitlements.FeatureJobPosting, body.Feature)
	assert.Equal(t, "Entreprise", body.UpgradePrompt.RequiredPlan)
}

func TestRequireFeaturePassesEntitledUser(t *testing.T) {
	store := &gateStore{sub: subscriptionOn(t, "entreprise", entitlements.FeatureJobPosting)}
	resolver := entitlements.NewResolver(store)
	app := gatedApp(t, 7, RequireFeature(resolver, entitlements.FeatureJobPosting))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireFeatureBlocksSpentCap(t *testing.T) {
	store := &gateStore{
		sub:   subscriptionOn(t, "basic", entitlements.FeatureCVAccessLimited),
		usage: &models.UsageRecord{UserID: 7, Feature: entitlements.FeatureCVAccessLimited, UsageCount: 5, UsageLimit: 5},
	}
	resolver := entitlements.NewResolver(store)
	app := gatedApp(t, 7, RequireFeature(resolver, entitlements.FeatureCVAccessLimited))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
}

func TestRequireAnyFeatureAcceptsEitherVariant(t *testing.T) {
	store := &gateStore{sub: subscriptionOn(t, "entreprise", entitlements.FeatureCVAccessFull)}
	resolver := entitlements.NewResolver(store)
	app := gatedApp(t, 7, RequireAnyFeature(resolver,
		entitlements.FeatureCVAccessLimited, entitlements.FeatureCVAccessFull))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAnyFeaturePromptsCheapestUpgrade(t *testing.T) {
	store := &gateStore{}
	resolver := entitlements.NewResolver(store)
	app := gatedApp(t, 7, RequireAnyFeature(resolver,
		entitlements.FeatureCVAccessLimited, entitlements.FeatureCVAccessFull))

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)

	var body struct {
		Feature string `json:"feature"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, entitlements.FeatureCVAccessLimited, body.Feature)
}
