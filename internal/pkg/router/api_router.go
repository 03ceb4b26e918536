package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/novrh/platform/app/controllers"
	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/entitlements"
	"github.com/novrh/platform/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "NovRH platform API",
		})
	})

	// API keys are an alternative to session cookies for script clients.
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware)
	resolver := controllers.Resolver()

	// Public
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Get("/auth/activate", controllers.HandleActivate)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/plans", controllers.HandleListPlans)
	v1.Get("/features", controllers.HandleListFeatures)
	v1.Get("/jobs", controllers.HandleListJobs)
	v1.Get("/jobs/search", controllers.HandleSearchJobs)
	v1.Get("/jobs/:id", controllers.HandleGetJob)

	// Gateway callback authenticates by signature, not session
	v1.Post("/payments/webhook", controllers.HandlePaymentWebhook)

	// Authenticated
	me := v1.Group("/me", middleware.RequireAuth)
	me.Get("/", controllers.HandleMe)
	me.Get("/subscriptions", controllers.HandleMySubscriptions)
	me.Post("/api-key", controllers.HandleRotateAPIKey)
	me.Get("/entitlements/:feature", controllers.HandleCheckEntitlement)

	billing := v1.Group("/subscription", middleware.RequireAuth)
	billing.Post("/", controllers.HandleSubscribe)
	billing.Get("/", controllers.HandleGetSubscription)
	billing.Delete("/", controllers.HandleCancelSubscription)

	// Companies publish postings behind the job_posting gate
	v1.Post("/jobs",
		middleware.RequireAuth,
		middleware.RequireFeature(resolver, entitlements.FeatureJobPosting),
		controllers.HandleCreateJob,
	)
	v1.Get("/company/jobs", middleware.RequireRole(models.ROLE_COMPANY), controllers.HandleListMyJobs)
	v1.Post("/jobs/:id/close", middleware.RequireAuth, controllers.HandleCloseJob)

	// Candidates manage their own CV; companies browse behind the cv gates
	v1.Post("/cv", middleware.RequireAuth, controllers.HandleUploadCV)
	v1.Delete("/cv/:id", middleware.RequireAuth, controllers.HandleDeleteCV)
	v1.Get("/cvs",
		middleware.RequireAuth,
		middleware.RequireAnyFeature(resolver, entitlements.FeatureCVAccessLimited, entitlements.FeatureCVAccessFull),
		controllers.HandleListCVs,
	)
	v1.Get("/cvs/:id/download",
		middleware.RequireAuth,
		middleware.RequireAnyFeature(resolver, entitlements.FeatureCVAccessLimited, entitlements.FeatureCVAccessFull),
		controllers.HandleDownloadCV,
	)

	// Admin
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/users", controllers.HandleAdminListUsers)
	admin.Get("/users/search", controllers.HandleAdminSearchUsers)
	admin.Get("/subscriptions", controllers.HandleAdminListSubscriptions)
	admin.Post("/plans", controllers.HandleAdminCreatePlan)
	admin.Delete("/plans/:id", controllers.HandleAdminDeactivatePlan)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
