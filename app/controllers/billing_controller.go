package controllers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/billing"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/env"
	"github.com/novrh/platform/internal/pkg/mail"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

type subscribeRequest struct {
	Plan string `json:"plan"`
}

// HandleSubscribe opens a subscription on the requested plan and charges the
// user through the configured payment processor.
func HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}

	sub, result, err := billingService.Subscribe(c.UserContext(), userCtx.UserID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrActiveSubscriptionExists):
			return jsonError(c, fiber.StatusConflict, "conflict", "an active subscription already exists")
		case errors.Is(err, billing.ErrValidation):
			return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
		case errors.Is(err, billing.ErrPaymentDenied):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":        "payment_failed",
				"message":      "payment was declined",
				"subscription": toSubscriptionResponse(sub),
			})
		default:
			log.Printf("subscribe failed for user %d: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "subscription failed, please retry")
		}
	}

	sendReceiptMail(userCtx.UserID, sub, result)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subscription": toSubscriptionResponse(sub),
		"payment":      result,
	})
}

// HandleGetSubscription returns the caller's active subscription, or 404.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := billingService.GetActiveSubscription(c.UserContext(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateActiveSubscription) {
			log.Printf("subscription invariant violated for user %d", userCtx.UserID)
			return jsonError(c, fiber.StatusConflict, "conflict", "subscription state needs support attention")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load subscription")
	}
	if sub == nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "no active subscription")
	}

	return c.JSON(fiber.Map{"subscription": toSubscriptionResponse(sub)})
}

// HandleCancelSubscription cancels the caller's active subscription.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := billingService.GetActiveSubscription(c.UserContext(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load subscription")
	}
	if sub == nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "no active subscription")
	}

	if err := billingService.CancelSubscription(c.UserContext(), sub.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "cancellation failed, please retry")
	}

	return c.JSON(fiber.Map{"status": models.SubscriptionStatusCancelled})
}

// HandleCheckEntitlement reports the gate decision for a feature. The
// response mirrors what the feature-gate middleware returns on denial so the
// client can pre-render locked states.
func HandleCheckEntitlement(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	feature := strings.TrimSpace(c.Params("feature"))

	allowed := entitlementResolver.HasAccess(c.UserContext(), userCtx.UserID, feature)
	resp := fiber.Map{
		"feature": feature,
		"allowed": allowed,
	}
	if !allowed {
		resp["upgrade_prompt"] = entitlements.PromptFor(feature)
	}
	return c.JSON(resp)
}

// HandlePaymentWebhook receives asynchronous settlement events from the
// payment gateway. Signature verification precedes any parsing.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	secret := env.GetEnv("PAYMENT_GATEWAY_WEBHOOK_SECRET", "")
	if !billing.VerifyGatewayWebhookSignature(payload, c.Get("X-Novpay-Signature"), secret) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid webhook signature")
	}

	event, err := billing.ParseGatewayWebhookEvent(payload)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "unparseable webhook payload")
	}

	if err := billingService.HandleGatewayWebhook(c.UserContext(), event); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "unknown transaction")
		}
		log.Printf("gateway webhook %s failed: %v", event.EventType, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "webhook processing failed")
	}

	return c.JSON(fiber.Map{"status": "processed"})
}

func toSubscriptionResponse(sub *models.Subscription) fiber.Map {
	if sub == nil {
		return nil
	}
	out := fiber.Map{
		"id":             sub.ID,
		"status":         sub.Status,
		"payment_status": sub.PaymentStatus,
		"starts_at":      sub.StartsAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"ends_at":        sub.EndsAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if sub.Plan != nil {
		out["plan"] = toPlanResponse(sub.Plan)
	}
	return out
}

func sendReceiptMail(userID uint, sub *models.Subscription, result *billing.PaymentResult) {
	user, err := repos.User.GetByID(userID)
	if err != nil || sub == nil || sub.Plan == nil || result == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>Merci %s.</p><p>Votre abonnement %s est actif jusqu'au %s.</p><p>Transaction : %s</p>",
		user.Name, sub.Plan.Name, sub.EndsAt.Format("02/01/2006"), result.TransactionID,
	)
	if err := mail.SendMail(user.Email, "Confirmation d'abonnement NovRH", body); err != nil {
		log.Printf("receipt mail to %s failed: %v", user.Email, err)
	}
}
