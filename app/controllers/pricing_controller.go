package controllers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/cache"
	"github.com/novrh/platform/internal/pkg/entitlements"
)

const planCatalogCacheKey = "plans:active"
const planCatalogCacheTTL = 5 * time.Minute

type planResponse struct {
	ID           uint     `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Currency     string   `json:"currency"`
	BillingCycle string   `json:"billing_cycle"`
	Features     []string `json:"features"`
}

// HandleListPlans returns the active plan catalog, cheapest first. The
// catalog changes rarely, so responses are cached for a few minutes.
func HandleListPlans(c *fiber.Ctx) error {
	if cached, err := cache.Get(planCatalogCacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	plans, err := billingService.ListActivePlans(c.UserContext())
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "could not load plan catalog")
	}

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(&p))
	}

	if body, err := json.Marshal(fiber.Map{"plans": out}); err == nil {
		if err := cache.Set(planCatalogCacheKey, string(body), planCatalogCacheTTL); err != nil {
			log.Printf("caching plan catalog: %v", err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}

	return c.JSON(fiber.Map{"plans": out})
}

func toPlanResponse(p *models.Plan) planResponse {
	return planResponse{
		ID:           p.ID,
		Code:         p.Code,
		Name:         p.Name,
		Price:        p.Price.StringFixed(2),
		Currency:     p.Currency,
		BillingCycle: p.BillingCycle,
		Features:     p.FeatureCodes(),
	}
}

// HandleListFeatures exposes the static feature catalog with upgrade prompts
// so the client can render gates without hardcoding copy.
func HandleListFeatures(c *fiber.Ctx) error {
	features := entitlements.Features()
	out := make(map[string]fiber.Map, len(features))
	for _, code := range features {
		d, _ := entitlements.Describe(code)
		out[code] = fiber.Map{
			"category":       d.Category,
			"required_plan":  entitlements.PlanName(d.RequiredPlan),
			"upgrade_prompt": entitlements.PromptFor(code),
		}
	}
	return c.JSON(fiber.Map{"features": out})
}
