package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	WebhookOutcomeReceived  = "received"
	WebhookOutcomeApplied   = "applied"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeRejected  = "rejected"
)

// PaymentWebhookEvent stores provider notifications with deduplication
// metadata. ProviderEventID is the sha256 of the raw body.
type PaymentWebhookEvent struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Provider          string         `gorm:"type:varchar(20);not null;index:ux_payment_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID   string         `gorm:"type:varchar(64);not null;index:ux_payment_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	InternalReference string         `gorm:"type:varchar(36);not null;default:'';index" json:"internal_reference"`
	PaymentStatus     string         `gorm:"type:varchar(32);not null;default:''" json:"payment_status"`
	Payload           datatypes.JSON `gorm:"type:json" json:"payload"`
	SignatureValid    bool           `gorm:"default:false;index" json:"signature_valid"`
	Outcome           string         `gorm:"type:varchar(20);not null;default:'received';index" json:"outcome"`
	ProcessedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError   string         `gorm:"type:text" json:"processing_error"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentWebhookEvent) TableName() string { return "payment_webhook_events" }
