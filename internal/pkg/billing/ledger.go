package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const expireBatchSize = 200

// SubscriptionStateNone is reported when a user never subscribed.
const SubscriptionStateNone = "none"

// Ledger owns the subscription and payment state machine. Every transition
// runs inside one repository transaction.
type Ledger struct {
	repo  Repository
	cfg   Config
	now   func() time.Time
	newID func() string
}

// NewLedger creates a ledger from an injected repository.
func NewLedger(repo Repository, cfg Config) *Ledger {
	return &Ledger{
		repo:  repo,
		cfg:   cfg.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// NewLedgerFromDB creates a ledger from a GORM DB handle.
func NewLedgerFromDB(db *gorm.DB, cfg Config) *Ledger {
	return NewLedger(NewRepository(db), cfg)
}

func (l *Ledger) Config() Config { return l.cfg }

// OpenResult is returned by OpenSubscription.
type OpenResult struct {
	SubscriptionID    uint
	InternalReference string
	Payment           models.Payment
}

// AppliedResult reports the effect of ApplyPaymentStatus.
type AppliedResult struct {
	Applied           bool
	PaymentStatus     string
	SubscriptionID    uint
	SubscriptionState string
}

// CurrentSubscription is the read view of a user's latest subscription.
// State is SubscriptionStateNone when the user has none.
type CurrentSubscription struct {
	UserID         uint
	SubscriptionID uint
	State          string
	StartDate      *time.Time
	EndDate        *time.Time
	IsPaid         bool
	IsCancelled    bool
}

// OpenSubscription creates a pending subscription and an initiated payment
// with a fresh internal reference. Fails with a conflict error when the user
// already has a pending or active subscription.
func (l *Ledger) OpenSubscription(ctx context.Context, userID uint) (*OpenResult, error) {
	if userID == 0 {
		return nil, apperror.Validation("user id is required", nil)
	}

	var result *OpenResult
	err := l.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}

		open, err := tx.OpenSubscriptions(ctx, userID)
		if err != nil {
			return err
		}
		now := l.now()
		for i := range open {
			sub := &open[i]
			if sub.HasLapsed(now) {
				if err := l.expire(ctx, tx, sub); err != nil {
					return err
				}
				continue
			}
			return apperror.Conflict(fmt.Sprintf("user %d already has a %s subscription", userID, sub.State))
		}

		sub := &models.Subscription{
			UserID: userID,
			State:  models.SubscriptionStatePending,
		}
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return err
		}

		payment := &models.Payment{
			SubscriptionID:    sub.ID,
			UserID:            userID,
			Provider:          models.PaymentProviderPayFast,
			InternalReference: l.newID(),
			Status:            models.PaymentStatusInitiated,
			Amount:            l.cfg.Price,
			Currency:          l.cfg.Currency,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		result = &OpenResult{
			SubscriptionID:    sub.ID,
			InternalReference: payment.InternalReference,
			Payment:           *payment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Billing] Opened subscription %d for user %d (payment %s)", result.SubscriptionID, userID, result.InternalReference)
	return result, nil
}

// ApplyPaymentStatus records a provider status for the payment identified by
// internalReference and derives the subscription transition. Re-applying an
// already recorded (status, providerReference) pair is a no-op, and so is any
// status arriving after the payment reached a terminal status.
func (l *Ledger) ApplyPaymentStatus(ctx context.Context, internalReference, providerReference, status string) (*AppliedResult, error) {
	ref := strings.TrimSpace(internalReference)
	providerRef := strings.TrimSpace(providerReference)
	if ref == "" {
		return nil, apperror.Validation("internal reference is required", nil)
	}
	if !isProviderStatus(status) {
		return nil, apperror.Validation(fmt.Sprintf("unsupported payment status %q", status), nil)
	}

	var result *AppliedResult
	err := l.repo.Transaction(ctx, func(tx Repository) error {
		payment, err := tx.GetPaymentForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		sub, err := tx.GetSubscriptionForUpdate(ctx, payment.SubscriptionID)
		if err != nil {
			return err
		}
		result = &AppliedResult{
			PaymentStatus:     payment.Status,
			SubscriptionID:    sub.ID,
			SubscriptionState: sub.State,
		}

		if payment.Status == status && (providerRef == "" || payment.ProviderReference == providerRef) {
			return nil
		}
		if models.IsTerminalPaymentStatus(payment.Status) {
			log.Warnf("[Billing] Ignoring %s for payment %s: already %s", status, ref, payment.Status)
			return nil
		}

		payment.Status = status
		if providerRef != "" {
			payment.ProviderReference = providerRef
		}
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}

		if sub.State == models.SubscriptionStatePending {
			now := l.now()
			switch status {
			case models.PaymentStatusCompleted:
				end := now.Add(l.cfg.Term)
				sub.State = models.SubscriptionStateActive
				sub.StartDate = &now
				sub.EndDate = &end
			case models.PaymentStatusFailed, models.PaymentStatusCancelled:
				sub.State = models.SubscriptionStateCancelled
				sub.CancelledAt = &now
			}
			if sub.State != models.SubscriptionStatePending {
				if err := tx.SaveSubscription(ctx, sub); err != nil {
					return err
				}
			}
		}

		result.Applied = true
		result.PaymentStatus = payment.Status
		result.SubscriptionState = sub.State
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		log.Infof("[Billing] Payment %s -> %s, subscription %d is %s", ref, result.PaymentStatus, result.SubscriptionID, result.SubscriptionState)
	}
	return result, nil
}

// CurrentSubscription returns the latest subscription of a user or nil,
// expiring it first if its term has passed.
func (l *Ledger) CurrentSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	sub, err := l.repo.LatestSubscription(ctx, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	if !sub.HasLapsed(l.now()) {
		return sub, nil
	}

	var expired *models.Subscription
	err = l.repo.Transaction(ctx, func(tx Repository) error {
		locked, err := tx.GetSubscriptionForUpdate(ctx, sub.ID)
		if err != nil {
			return err
		}
		if locked.HasLapsed(l.now()) {
			if err := l.expire(ctx, tx, locked); err != nil {
				return err
			}
		}
		expired = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// GetCurrentSubscription never fails for a user without subscriptions; it
// returns a view with State "none" instead.
func (l *Ledger) GetCurrentSubscription(ctx context.Context, userID uint) (*CurrentSubscription, error) {
	sub, err := l.CurrentSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &CurrentSubscription{
			UserID:      userID,
			State:       SubscriptionStateNone,
			IsPaid:      false,
			IsCancelled: true,
		}, nil
	}
	return &CurrentSubscription{
		UserID:         userID,
		SubscriptionID: sub.ID,
		State:          sub.State,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		IsPaid:         sub.IsPaid(l.now()),
		IsCancelled:    sub.State == models.SubscriptionStateCancelled,
	}, nil
}

// CancelSubscription cancels the user's open subscription. Open payments of a
// pending subscription are cancelled too so a late completion cannot revive it.
func (l *Ledger) CancelSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	var cancelled *models.Subscription
	err := l.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		open, err := tx.OpenSubscriptions(ctx, userID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return apperror.NotFound(fmt.Sprintf("user %d has no open subscription", userID))
		}

		now := l.now()
		for i := range open {
			sub := &open[i]
			payments, err := tx.ListOpenPayments(ctx, sub.ID)
			if err != nil {
				return err
			}
			for j := range payments {
				payments[j].Status = models.PaymentStatusCancelled
				if err := tx.SavePayment(ctx, &payments[j]); err != nil {
					return err
				}
			}
			sub.State = models.SubscriptionStateCancelled
			sub.CancelledAt = &now
			if err := tx.SaveSubscription(ctx, sub); err != nil {
				return err
			}
			cancelled = sub
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Billing] Cancelled subscription %d for user %d", cancelled.ID, userID)
	return cancelled, nil
}

// ExpireDue moves active subscriptions whose end date passed to expired and
// returns how many were changed.
func (l *Ledger) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		lapsed, err := l.repo.ListLapsedSubscriptions(ctx, now, expireBatchSize)
		if err != nil {
			return total, err
		}
		if len(lapsed) == 0 {
			return total, nil
		}

		changed := 0
		for _, candidate := range lapsed {
			err := l.repo.Transaction(ctx, func(tx Repository) error {
				sub, err := tx.GetSubscriptionForUpdate(ctx, candidate.ID)
				if err != nil {
					return err
				}
				if !sub.HasLapsed(now) {
					return nil
				}
				if err := l.expire(ctx, tx, sub); err != nil {
					return err
				}
				changed++
				return nil
			})
			if err != nil {
				return total, err
			}
		}
		total += changed
		if changed == 0 || len(lapsed) < expireBatchSize {
			if total > 0 {
				log.Infof("[Billing] Expired %d subscriptions", total)
			}
			return total, nil
		}
	}
}

func (l *Ledger) expire(ctx context.Context, tx Repository, sub *models.Subscription) error {
	sub.State = models.SubscriptionStateExpired
	return tx.SaveSubscription(ctx, sub)
}

func isProviderStatus(status string) bool {
	switch status {
	case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed, models.PaymentStatusCancelled:
		return true
	}
	return false
}
