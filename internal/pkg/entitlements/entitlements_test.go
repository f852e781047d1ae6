package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readerFunc func(ctx context.Context, userID uint) (*models.Subscription, error)

func (f readerFunc) CurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	return f(ctx, userID)
}

func TestPlanFor(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, PlanFree, PlanFor(nil, now))
	assert.Equal(t, PlanFree, PlanFor(&models.Subscription{State: models.SubscriptionStatePending}, now))
	assert.Equal(t, PlanFree, PlanFor(&models.Subscription{State: models.SubscriptionStateActive, EndDate: &past}, now))
	assert.Equal(t, PlanPaid, PlanFor(&models.Subscription{State: models.SubscriptionStateActive, EndDate: &future}, now))
	assert.True(t, CanViewPredictions(PlanPaid))
	assert.False(t, CanViewPredictions(PlanFree))
}

func TestResolvePropagatesReaderError(t *testing.T) {
	boom := errors.New("db down")
	plan, err := Resolve(context.Background(), readerFunc(func(context.Context, uint) (*models.Subscription, error) {
		return nil, boom
	}), 1, time.Now())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, PlanFree, plan)
}
