package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger and webhook processor.
// Methods called inside Transaction run on the same unit of work; the *ForUpdate
// lookups hold row locks until it commits.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	LockUser(ctx context.Context, userID uint) error
	LatestSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
	OpenSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error)
	GetSubscriptionForUpdate(ctx context.Context, id uint) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	ListLapsedSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentForUpdate(ctx context.Context, internalReference string) (*models.Payment, error)
	ListOpenPayments(ctx context.Context, subscriptionID uint) ([]models.Payment, error)
	SavePayment(ctx context.Context, p *models.Payment) error

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, outcome string, signatureValid bool, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

// LockUser serializes subscription creation per user.
func (r *gormRepository) LockUser(ctx context.Context, userID uint) error {
	var u models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(fmt.Sprintf("user %d not found", userID))
	}
	return err
}

func (r *gormRepository) LatestSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) OpenSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state IN ?", userID, []string{models.SubscriptionStatePending, models.SubscriptionStateActive}).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) GetSubscriptionForUpdate(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("subscription %d not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(fmt.Sprintf("user %d already has an open subscription", sub.UserID))
	}
	return err
}

func (r *gormRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *gormRepository) ListLapsedSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("state = ? AND end_date IS NOT NULL AND end_date <= ?", models.SubscriptionStateActive, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetPaymentForUpdate locks the payment row keyed by internal reference.
func (r *gormRepository) GetPaymentForUpdate(ctx context.Context, internalReference string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("internal_reference = ?", internalReference).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("payment %s not found", internalReference))
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListOpenPayments(ctx context.Context, subscriptionID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subscription_id = ? AND status IN ?", subscriptionID, []string{models.PaymentStatusInitiated, models.PaymentStatusPending}).
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) SavePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, outcome string, signatureValid bool, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"outcome":          outcome,
		"signature_valid":  signatureValid,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
