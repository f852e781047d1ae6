package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
)

// memoryRepository is an in-memory Repository. Transactions are serialized by
// a mutex and rolled back from a snapshot on error.
type memoryRepository struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users         map[uint]bool
	subscriptions map[uint]models.Subscription
	payments      map[string]models.Payment
	events        map[string]models.PaymentWebhookEvent
	nextID        uint
	clock         time.Time
}

func newMemoryRepository(userIDs ...uint) *memoryRepository {
	r := &memoryRepository{
		users:         map[uint]bool{},
		subscriptions: map[uint]models.Subscription{},
		payments:      map[string]models.Payment{},
		events:        map[string]models.PaymentWebhookEvent{},
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, id := range userIDs {
		r.users[id] = true
	}
	return r
}

type txRepository struct {
	*memoryRepository
}

func (r *memoryRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	subs := make(map[uint]models.Subscription, len(r.subscriptions))
	for k, v := range r.subscriptions {
		subs[k] = v
	}
	payments := make(map[string]models.Payment, len(r.payments))
	for k, v := range r.payments {
		payments[k] = v
	}
	r.mu.Unlock()

	if err := fn(txRepository{r}); err != nil {
		r.mu.Lock()
		r.subscriptions = subs
		r.payments = payments
		r.mu.Unlock()
		return err
	}
	return nil
}

// Nested transactions reuse the outer one.
func (t txRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

func (r *memoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

// tick keeps created_at strictly increasing so "latest" is deterministic.
func (r *memoryRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepository) LockUser(ctx context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.users[userID] {
		return apperror.NotFound(fmt.Sprintf("user %d not found", userID))
	}
	return nil
}

func (r *memoryRepository) LatestSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Subscription
	for _, s := range r.subscriptions {
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			cp := s
			latest = &cp
		}
	}
	return latest, nil
}

func (r *memoryRepository) OpenSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Subscription
	for _, s := range r.subscriptions {
		if s.UserID == userID && s.IsOpen() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) GetSubscriptionForUpdate(ctx context.Context, id uint) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subscriptions[id]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("subscription %d not found", id))
	}
	return &s, nil
}

func (r *memoryRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.SyncOpenSlot()
	if sub.OpenSlot != nil {
		for _, s := range r.subscriptions {
			if s.OpenSlot != nil && *s.OpenSlot == *sub.OpenSlot {
				return apperror.Conflict("open slot taken")
			}
		}
	}
	sub.ID = r.id()
	sub.CreatedAt = r.tick()
	sub.UpdatedAt = sub.CreatedAt
	r.subscriptions[sub.ID] = *sub
	return nil
}

func (r *memoryRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.SyncOpenSlot()
	sub.UpdatedAt = r.tick()
	r.subscriptions[sub.ID] = *sub
	return nil
}

func (r *memoryRepository) ListLapsedSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Subscription
	for _, s := range r.subscriptions {
		if s.HasLapsed(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.InternalReference]; ok {
		return fmt.Errorf("duplicate internal reference %s", p.InternalReference)
	}
	p.ID = r.id()
	r.payments[p.InternalReference] = *p
	return nil
}

func (r *memoryRepository) GetPaymentForUpdate(ctx context.Context, internalReference string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[internalReference]
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("payment %s not found", internalReference))
	}
	return &p, nil
}

func (r *memoryRepository) ListOpenPayments(ctx context.Context, subscriptionID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.SubscriptionID == subscriptionID && !models.IsTerminalPaymentStatus(p.Status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepository) SavePayment(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.InternalReference] = *p
	return nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.events[event.ProviderEventID]; ok {
		return false, &stored, nil
	}
	event.ID = r.id()
	r.events[event.ProviderEventID] = *event
	stored := *event
	return true, &stored, nil
}

func (r *memoryRepository) MarkWebhookProcessed(ctx context.Context, id uint, outcome string, signatureValid bool, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.Outcome = outcome
			e.SignatureValid = signatureValid
			e.ProcessingError = processingError
			e.ProcessedAt = &now
			r.events[k] = e
		}
	}
	return nil
}

func (r *memoryRepository) subscription(id uint) models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscriptions[id]
}

func (r *memoryRepository) payment(ref string) models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[ref]
}

func (r *memoryRepository) openCount(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subscriptions {
		if s.UserID == userID && s.IsOpen() {
			n++
		}
	}
	return n
}
