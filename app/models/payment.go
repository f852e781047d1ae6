package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusInitiated = "initiated"
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

const PaymentProviderPayFast = "payfast"

// Payment tracks one provider checkout for a subscription. InternalReference is
// generated locally and sent as m_payment_id; ProviderReference arrives via webhook.
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint            `gorm:"not null;index" json:"subscription_id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	Provider          string          `gorm:"type:varchar(20);not null;default:'payfast'" json:"provider"`
	InternalReference string          `gorm:"type:varchar(36);not null;uniqueIndex:ux_payments_internal_reference" json:"internal_reference"`
	ProviderReference string          `gorm:"type:varchar(191);not null;default:'';index" json:"provider_reference"`
	Status            string          `gorm:"type:varchar(20);not null;default:'initiated';index" json:"status"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'ZAR'" json:"currency"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// IsTerminalPaymentStatus reports whether status ends the payment lifecycle.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}
