package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novrh/platform/app/models"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

func authApp(t *testing.T, ctx *usercontext.UserContext, handler fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if ctx != nil {
			c.Locals(usercontext.KeyUserContext, *ctx)
		}
		return c.Next()
	})
	app.Get("/protected", handler, func(c *fiber.Ctx) error {
		return c.SendString("through")
	})
	return app
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	app := authApp(t, nil, RequireAuth)

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthPassesLoggedInUser(t *testing.T) {
	ctx := &usercontext.UserContext{UserID: 7, IsLoggedIn: true}
	app := authApp(t, ctx, RequireAuth)

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdminForbidsRegularUser(t *testing.T) {
	ctx := &usercontext.UserContext{UserID: 7, IsLoggedIn: true}
	app := authApp(t, ctx, RequireAdmin)

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdminPassesAdmin(t *testing.T) {
	ctx := &usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}
	app := authApp(t, ctx, RequireAdmin)

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.ROLE_COMPANY)

	tests := []struct {
		name string
		ctx  *usercontext.UserContext
		want int
	}{
		{"anonymous", nil, fiber.StatusUnauthorized},
		{"candidate", &usercontext.UserContext{UserID: 7, Role: models.ROLE_CANDIDATE, IsLoggedIn: true}, fiber.StatusForbidden},
		{"company", &usercontext.UserContext{UserID: 8, Role: models.ROLE_COMPANY, IsLoggedIn: true}, fiber.StatusOK},
		{"admin override", &usercontext.UserContext{UserID: 1, Role: models.ROLE_ADMIN, IsLoggedIn: true, IsAdmin: true}, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := authApp(t, tt.ctx, handler)
			resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
