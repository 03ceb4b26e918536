package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/app/repository"
	"github.com/novrh/platform/internal/pkg/billing"
	"github.com/novrh/platform/internal/pkg/database"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/storage"
)

var (
	repos               *repository.Repositories
	billingService      *billing.Service
	entitlementResolver *entitlements.Resolver
	cvStore             *storage.CVStore
)

// InitializeControllers wires controller dependencies from the shared DB
// handle. Called once by the router during startup.
func InitializeControllers() {
	db := database.GetDB()
	factory := repository.NewFactory(db)
	repository.SetGlobalFactory(factory)
	repos = factory.GetRepositories()
	billingService = billing.NewServiceFromDB(db)
	entitlementResolver = entitlements.NewResolver(billingService.Repo())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.NewCVStoreFromEnv(ctx)
	if err != nil {
		// CV upload/download endpoints return 503 until storage is configured.
		log.Printf("cv storage unavailable: %v", err)
	} else {
		cvStore = store
	}
}

// Resolver exposes the entitlement resolver for route gates.
func Resolver() *entitlements.Resolver {
	return entitlementResolver
}

// SetBillingService swaps the billing service; used by tests.
func SetBillingService(svc *billing.Service) {
	billingService = svc
	entitlementResolver = entitlements.NewResolver(svc.Repo())
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
