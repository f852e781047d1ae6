package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionStatePending   = "pending"
	SubscriptionStateActive    = "active"
	SubscriptionStateCancelled = "cancelled"
	SubscriptionStateExpired   = "expired"
)

// Subscription is a user's paid access window. At most one row per user may be
// pending or active; OpenSlot carries the user id only while the row is open so
// the unique index enforces that at the storage layer.
type Subscription struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index:idx_subscriptions_user_created,priority:1" json:"user_id"`
	State       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"state"`
	StartDate   *time.Time `gorm:"type:timestamp;default:null" json:"start_date,omitempty"`
	EndDate     *time.Time `gorm:"type:timestamp;default:null;index" json:"end_date,omitempty"`
	CancelledAt *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	OpenSlot    *uint      `gorm:"uniqueIndex:ux_subscriptions_open_slot" json:"-"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index:idx_subscriptions_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// IsOpen reports whether the subscription is pending or active.
func (s *Subscription) IsOpen() bool {
	return s.State == SubscriptionStatePending || s.State == SubscriptionStateActive
}

// IsTerminal reports whether no further transitions are allowed.
func (s *Subscription) IsTerminal() bool {
	return s.State == SubscriptionStateCancelled || s.State == SubscriptionStateExpired
}

// IsPaid reports whether the subscription currently grants access.
func (s *Subscription) IsPaid(now time.Time) bool {
	return s.State == SubscriptionStateActive && s.EndDate != nil && now.Before(*s.EndDate)
}

// HasLapsed reports whether an active subscription ran past its end date.
func (s *Subscription) HasLapsed(now time.Time) bool {
	return s.State == SubscriptionStateActive && s.EndDate != nil && !now.Before(*s.EndDate)
}

// SyncOpenSlot sets OpenSlot from the current state.
func (s *Subscription) SyncOpenSlot() {
	if s.IsOpen() {
		uid := s.UserID
		s.OpenSlot = &uid
		return
	}
	s.OpenSlot = nil
}

func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	s.SyncOpenSlot()
	return nil
}
