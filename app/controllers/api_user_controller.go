package controllers

import (
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/entitlements"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	users  repository.UserRepository
	ledger SubscriptionService
}

func NewUserController(users repository.UserRepository, ledger SubscriptionService) *UserController {
	return &UserController{users: users, ledger: ledger}
}

// HandleGetAccount returns account information for the authenticated user.
func (u *UserController) HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, apperror.Unauthorized("Missing or invalid authentication"))
	}

	account, err := u.users.GetByID(userCtx.UserID)
	if err != nil {
		return respondError(c, err)
	}

	sub, err := u.ledger.GetCurrentSubscription(c.UserContext(), userCtx.UserID)
	if err != nil {
		return respondError(c, err)
	}

	plan := entitlements.PlanFree
	if sub.IsPaid {
		plan = entitlements.PlanPaid
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"plan":          plan,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"subscription":  subscriptionView(sub),
		"limits": fiber.Map{
			"can_view_predictions": entitlements.CanViewPredictions(plan),
		},
	})
}
