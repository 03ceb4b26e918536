package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

// HandleMe returns the caller's profile together with their active
// subscription and per-feature usage, so the client renders gates and
// counters from a single round trip.
func HandleMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load profile")
	}

	resp := fiber.Map{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"status":     user.Status,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
	}

	sub, err := billingService.GetActiveSubscription(c.UserContext(), userCtx.UserID)
	if err == nil && sub != nil {
		resp["subscription"] = toSubscriptionResponse(sub)
	} else {
		resp["subscription"] = nil
	}

	usage := make(map[string]fiber.Map)
	for _, feature := range entitlements.Features() {
		rec, err := billingService.GetUsage(c.UserContext(), userCtx.UserID, feature)
		if err != nil || rec == nil {
			continue
		}
		usage[feature] = fiber.Map{
			"used":      rec.UsageCount,
			"limit":     rec.UsageLimit,
			"remaining": rec.Remaining(),
		}
	}
	resp["usage"] = usage

	return c.JSON(resp)
}

// HandleRotateAPIKey issues a fresh API key for the caller, invalidating the
// previous one. The raw key appears in this response and nowhere else.
func HandleRotateAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load profile")
	}

	raw, err := user.GenerateAPIKey()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not generate key")
	}
	if err := repos.User.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not save key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"api_key": raw})
}

// HandleMySubscriptions returns the caller's full subscription history.
func HandleMySubscriptions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	subs, err := billingService.ListSubscriptionsByUser(c.UserContext(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load subscriptions")
	}

	out := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	return c.JSON(fiber.Map{"subscriptions": out})
}
