package entitlements

import (
	"context"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// SubscriptionReader returns the latest subscription of a user or nil.
type SubscriptionReader interface {
	CurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
}

// PlanFor derives the effective plan from the user's latest subscription.
func PlanFor(sub *models.Subscription, now time.Time) Plan {
	if sub != nil && sub.IsPaid(now) {
		return PlanPaid
	}
	return PlanFree
}

// CanViewPredictions reports whether a plan unlocks prediction data.
func CanViewPredictions(plan Plan) bool {
	return plan == PlanPaid
}

// Resolve loads the user's subscription and returns the plan.
func Resolve(ctx context.Context, reader SubscriptionReader, userID uint, now time.Time) (Plan, error) {
	sub, err := reader.CurrentSubscription(ctx, userID)
	if err != nil {
		return PlanFree, err
	}
	return PlanFor(sub, now), nil
}
