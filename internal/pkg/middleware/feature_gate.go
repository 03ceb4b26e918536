package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

// RequireFeature blocks the route behind the entitlement resolver. A denied
// request gets 402 with the feature's upgrade prompt; the handler itself is
// responsible for incrementing usage on successful consumption.
func RequireFeature(resolver *entitlements.Resolver, feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		if !resolver.HasAccess(c.UserContext(), userID, feature) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":          "upgrade_required",
				"feature":        feature,
				"upgrade_prompt": entitlements.PromptFor(feature),
			})
		}
		return c.Next()
	}
}

// RequireAnyFeature passes when the user holds at least one of the listed
// features. Used where plan tiers carry graded variants of the same
// capability, like limited versus full CV access. The denial prompt is the
// first feature's, the cheapest upgrade path.
func RequireAnyFeature(resolver *entitlements.Resolver, features ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		for _, feature := range features {
			if resolver.HasAccess(c.UserContext(), userID, feature) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":          "upgrade_required",
			"feature":        features[0],
			"upgrade_prompt": entitlements.PromptFor(features[0]),
		})
	}
}
