package controllers

import (
	"context"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/app/repository"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/access"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/billing"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// SubscriptionService is the part of the billing ledger the API uses.
type SubscriptionService interface {
	OpenSubscription(ctx context.Context, userID uint) (*billing.OpenResult, error)
	GetCurrentSubscription(ctx context.Context, userID uint) (*billing.CurrentSubscription, error)
	CancelSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
	Config() billing.Config
}

type SubscriptionController struct {
	ledger SubscriptionService
	users  repository.UserRepository
}

func NewSubscriptionController(ledger SubscriptionService, users repository.UserRepository) *SubscriptionController {
	return &SubscriptionController{ledger: ledger, users: users}
}

type openSubscriptionRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

func subscriptionView(cur *billing.CurrentSubscription) fiber.Map {
	return fiber.Map{
		"user_id":      cur.UserID,
		"state":        cur.State,
		"is_paid":      cur.IsPaid,
		"is_cancelled": cur.IsCancelled,
		"start_date":   formatTimePtr(cur.StartDate),
		"end_date":     formatTimePtr(cur.EndDate),
	}
}

// HandleGet returns the caller's current subscription or the "none" view.
func (s *SubscriptionController) HandleGet(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	if err := access.AuthorizeSelf(usercontext.GetUserContext(c), userID); err != nil {
		return respondError(c, err)
	}

	cur, err := s.ledger.GetCurrentSubscription(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subscriptionView(cur))
}

// HandleOpen opens a pending subscription and returns where to pay for it.
func (s *SubscriptionController) HandleOpen(c *fiber.Ctx) error {
	var req openSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	uc := usercontext.GetUserContext(c)
	if err := access.AuthorizeSelf(uc, req.UserID); err != nil {
		return respondError(c, err)
	}

	res, err := s.ledger.OpenSubscription(c.UserContext(), req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	email := uc.Email
	if email == "" && s.users != nil {
		if u, err := s.users.GetByID(req.UserID); err == nil {
			email = u.Email
		} else {
			log.Warnf("[Billing] load user %d for redirect: %v", req.UserID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subscription_id":      res.SubscriptionID,
		"internal_reference":   res.InternalReference,
		"payment_redirect_url": billing.PayFastRedirectURL(s.ledger.Config(), res.Payment, email),
	})
}

// HandleCancel cancels the caller's open subscription.
func (s *SubscriptionController) HandleCancel(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	if err := access.AuthorizeSelf(usercontext.GetUserContext(c), userID); err != nil {
		return respondError(c, err)
	}

	sub, err := s.ledger.CancelSubscription(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":      userID,
		"state":        sub.State,
		"cancelled_at": formatTimePtr(sub.CancelledAt),
	})
}
