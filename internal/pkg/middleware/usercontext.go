package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/novrh/platform/internal/pkg/session"
	"github.com/novrh/platform/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a UserContext local for
// every request. Anonymous requests get a zero context, never an error.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth manages its own session store on the OAuth routes; skip ours there
	// to avoid cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	role, _ := sess.Get(usercontext.KeyUserRole).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Role:       role,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	c.Locals(usercontext.KeyFromProtected, true)

	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	return c.Next()
}
