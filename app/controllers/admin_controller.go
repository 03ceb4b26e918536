package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/cache"
)

// HandleAdminListUsers pages through all accounts.
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := repos.User.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load users")
	}
	total, err := repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not count users")
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, fiber.Map{
			"id":            u.ID,
			"name":          u.Name,
			"email":         u.Email,
			"role":          u.Role,
			"status":        u.Status,
			"last_login_at": formatTimePtr(u.LastLoginAt),
			"created_at":    u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"users": out, "total": total, "offset": offset, "limit": limit})
}

// HandleAdminSearchUsers finds accounts by name, email or company name.
func HandleAdminSearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "query parameter q is required")
	}

	users, err := repos.User.Search(query)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not search users")
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		u := &users[i]
		entry := fiber.Map{
			"id":     u.ID,
			"name":   u.Name,
			"email":  u.Email,
			"role":   u.Role,
			"status": u.Status,
		}
		if u.IsCompany() {
			entry["company_name"] = u.CompanyName
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{"users": out, "query": query})
}

// HandleAdminListSubscriptions pages through all subscriptions, any status.
func HandleAdminListSubscriptions(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	subs, err := billingService.Repo().ListSubscriptions(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load subscriptions")
	}

	out := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		entry := toSubscriptionResponse(&subs[i])
		entry["user_id"] = subs[i].UserID
		out = append(out, entry)
	}
	return c.JSON(fiber.Map{"subscriptions": out, "offset": offset, "limit": limit})
}

type createPlanRequest struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Currency     string   `json:"currency"`
	BillingCycle string   `json:"billing_cycle"`
	Features     []string `json:"features"`
}

// HandleAdminCreatePlan adds a plan to the catalog and drops the cached copy.
func HandleAdminCreatePlan(c *fiber.Ctx) error {
	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid JSON body")
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", "price must be a decimal string")
	}

	plan := &models.Plan{
		Code:         req.Code,
		Name:         req.Name,
		Price:        price,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		IsActive:     true,
	}
	if plan.Currency == "" {
		plan.Currency = "EUR"
	}
	if err := plan.SetFeatureCodes(req.Features); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}
	if err := plan.Validate(); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	if err := billingService.Repo().CreatePlan(plan); err != nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "plan code already exists")
	}

	invalidatePlanCache()
	return c.Status(fiber.StatusCreated).JSON(toPlanResponse(plan))
}

// HandleAdminDeactivatePlan pulls a plan from sale. Existing subscriptions on
// the plan keep running until they expire.
func HandleAdminDeactivatePlan(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid plan id")
	}

	if err := billingService.Repo().DeactivatePlan(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "plan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not deactivate plan")
	}

	invalidatePlanCache()
	return c.JSON(fiber.Map{"status": "deactivated"})
}

func invalidatePlanCache() {
	if err := cache.Delete(planCatalogCacheKey); err != nil {
		log.Printf("invalidating plan catalog cache: %v", err)
	}
}
