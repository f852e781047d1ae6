package controllers

import (
	"context"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// NotificationProcessor handles one raw payment provider notification.
type NotificationProcessor interface {
	Process(ctx context.Context, body []byte) (billing.WebhookOutcome, error)
}

type BillingController struct {
	processor NotificationProcessor
}

func NewBillingController(processor NotificationProcessor) *BillingController {
	return &BillingController{processor: processor}
}

// HandlePayFastNotify acknowledges every notification with 200. Rejections
// are logged and recorded, never signalled to the provider as retryable.
func (b *BillingController) HandlePayFastNotify(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	outcome, err := b.processor.Process(c.UserContext(), body)
	if err != nil {
		log.Warnf("[Webhook] payfast notification rejected ref=%s state=%s: %v",
			outcome.InternalReference, outcome.State, err)
	} else {
		log.Infof("[Webhook] payfast notification ref=%s status=%s applied=%t subscription=%s",
			outcome.InternalReference, outcome.PaymentStatus, outcome.Applied, outcome.SubscriptionState)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
