package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/app/repository"
	"github.com/novrh/platform/internal/pkg/database"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a user API key header.
// Requests that already hold a session user, or carry no key at all, pass
// through untouched; RequireAuth downstream still enforces login.
func APIKeyAuthMiddleware(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Next()
	}

	apiKey := extractAPIKeyFromHeader(c)
	if apiKey == "" {
		return c.Next()
	}

	db := database.GetDB()
	if db == nil {
		log.Print("api key middleware: database unavailable")
		return c.Next()
	}

	hash := models.HashAPIKey(apiKey)
	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByAPIKeyHash(hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "invalid API key",
			})
		}
		log.Printf("api key lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "API key verification failed",
		})
	}

	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "account is not active",
		})
	}

	// Refresh last-used timestamp best-effort.
	now := time.Now()
	if err := db.Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn("api_key_last_used_at", now).Error; err != nil {
		log.Printf("failed to update api key usage timestamp for user %d: %v", user.ID, err)
	}

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     user.ID,
		Username:   user.Name,
		Role:       user.Role,
		IsLoggedIn: true,
		IsAdmin:    user.Role == models.ROLE_ADMIN,
	})
	c.Locals(usercontext.KeyFromProtected, true)

	return c.Next()
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
