package middleware

import (
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/entitlements"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/security"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// RequireBearerAuth validates the Authorization bearer token and populates the
// user context. Returns JSON 401 when the token is missing or invalid.
func RequireBearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing bearer token",
			})
		}

		claims, err := security.ParseAccessToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     claims.UserID,
			Email:      claims.Email,
			IsLoggedIn: true,
			IsAdmin:    claims.Role == "admin",
		})
		return c.Next()
	}
}

// RequireActiveSubscription lets the request through only for callers whose
// latest subscription is active and inside its paid window.
func RequireActiveSubscription(reader entitlements.SubscriptionReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		plan, err := entitlements.Resolve(c.UserContext(), reader, uc.UserID, time.Now())
		if err != nil {
			log.Errorf("[Entitlements] resolve plan for user %d: %v", uc.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Subscription lookup failed",
			})
		}
		if !entitlements.CanViewPredictions(plan) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":   "subscription_required",
				"message": "An active subscription is required",
			})
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn || !uc.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"message": "admin access required",
			})
		}
		return c.Next()
	}
}
