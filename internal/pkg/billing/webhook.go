package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2/log"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/datatypes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebhookState is the processing state of one notification.
type WebhookState string

const (
	WebhookReceived WebhookState = "received"
	WebhookVerified WebhookState = "verified"
	WebhookApplied  WebhookState = "applied"
	WebhookRejected WebhookState = "rejected"
)

// StatusApplier is the part of the ledger the processor depends on.
type StatusApplier interface {
	ApplyPaymentStatus(ctx context.Context, internalReference, providerReference, status string) (*AppliedResult, error)
}

// WebhookOutcome describes what happened to a notification.
type WebhookOutcome struct {
	State             WebhookState
	Applied           bool
	InternalReference string
	PaymentStatus     string
	SubscriptionState string
}

// WebhookProcessor verifies provider notifications and forwards status changes
// to the ledger. It keeps no state of its own; the audit rows it writes are
// informational.
type WebhookProcessor struct {
	ledger   StatusApplier
	repo     Repository
	verifier Verifier
}

func NewWebhookProcessor(ledger StatusApplier, repo Repository, verifier Verifier) *WebhookProcessor {
	return &WebhookProcessor{ledger: ledger, repo: repo, verifier: verifier}
}

// Process handles one notification body. The returned error classifies
// rejections; callers acknowledge the provider regardless.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte) (WebhookOutcome, error) {
	outcome := WebhookOutcome{State: WebhookReceived}

	n, err := ParseNotification(body)
	if err != nil {
		outcome.State = WebhookRejected
		log.Warnf("[Webhook] Unparseable notification: %v", err)
		return outcome, apperror.MalformedPayload(err.Error())
	}
	outcome.InternalReference = n.Get("m_payment_id")

	event := p.recordEvent(ctx, n)

	if err := p.verifier.Verify(ctx, n); err != nil {
		if !errors.Is(err, apperror.ErrVerification) {
			err = apperror.Verification("verification failed", err)
		}
		outcome.State = WebhookRejected
		log.Warnf("[Webhook] Rejected notification for %q: %v", outcome.InternalReference, err)
		p.markEvent(ctx, event, models.WebhookOutcomeRejected, false, err)
		return outcome, err
	}
	outcome.State = WebhookVerified

	internalRef := n.Get("m_payment_id")
	providerRef := n.Get("payfast_reference")
	rawStatus := n.Get("payment_status")
	if internalRef == "" || providerRef == "" || rawStatus == "" {
		err := apperror.MalformedPayload(fmt.Sprintf("missing required fields (m_payment_id=%q, payfast_reference=%q, payment_status=%q)",
			internalRef, providerRef, rawStatus))
		outcome.State = WebhookRejected
		log.Warnf("[Webhook] %v", err)
		p.markEvent(ctx, event, models.WebhookOutcomeRejected, true, err)
		return outcome, err
	}

	status := PayFastStatusToPaymentStatus(rawStatus)
	outcome.PaymentStatus = status
	res, err := p.ledger.ApplyPaymentStatus(ctx, internalRef, providerRef, status)
	if err != nil {
		outcome.State = WebhookRejected
		log.Errorf("[Webhook] Apply %s for payment %s failed: %v", status, internalRef, err)
		p.markEvent(ctx, event, models.WebhookOutcomeRejected, true, err)
		return outcome, err
	}

	outcome.State = WebhookApplied
	outcome.Applied = res.Applied
	outcome.PaymentStatus = res.PaymentStatus
	outcome.SubscriptionState = res.SubscriptionState
	if res.Applied {
		p.markEvent(ctx, event, models.WebhookOutcomeApplied, true, nil)
	} else {
		log.Infof("[Webhook] Duplicate or stale %s for payment %s ignored", status, internalRef)
		p.markEvent(ctx, event, models.WebhookOutcomeDuplicate, true, nil)
	}
	return outcome, nil
}

func (p *WebhookProcessor) recordEvent(ctx context.Context, n Notification) *models.PaymentWebhookEvent {
	if p.repo == nil {
		return nil
	}
	payload := make(map[string]string, len(n.Fields))
	for _, f := range n.Fields {
		payload[f.Key] = f.Value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	sum := sha256.Sum256(n.Raw)

	event := &models.PaymentWebhookEvent{
		Provider:          models.PaymentProviderPayFast,
		ProviderEventID:   hex.EncodeToString(sum[:]),
		InternalReference: truncate(n.Get("m_payment_id"), 36),
		PaymentStatus:     truncate(n.Get("payment_status"), 32),
		Payload:           datatypes.JSON(raw),
		Outcome:           models.WebhookOutcomeReceived,
	}
	created, stored, err := p.repo.CreateWebhookEventIfNotExists(ctx, event)
	if err != nil {
		log.Errorf("[Webhook] Failed to record notification: %v", err)
		return nil
	}
	if !created {
		log.Infof("[Webhook] Notification %s delivered again", stored.ProviderEventID)
		// The first delivery's outcome stays on record; only an unfinished row is picked up again.
		if stored.Outcome != models.WebhookOutcomeReceived {
			return nil
		}
	}
	return stored
}

func (p *WebhookProcessor) markEvent(ctx context.Context, event *models.PaymentWebhookEvent, outcome string, signatureValid bool, procErr error) {
	if p.repo == nil || event == nil {
		return
	}
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := p.repo.MarkWebhookProcessed(ctx, event.ID, outcome, signatureValid, msg); err != nil {
		log.Errorf("[Webhook] Failed to mark notification %d: %v", event.ID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
