package billing

import (
	"context"
	"testing"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acceptAll = VerifierFunc(func(context.Context, Notification) error { return nil })

func TestWebhookCompleteActivatesThenDuplicateIsNoop(t *testing.T) {
	repo := newMemoryRepository(1)
	ledger := newTestLedger(repo)
	p := NewWebhookProcessor(ledger, repo, &PayFastVerifier{MerchantID: "10000100", Passphrase: "pass"})
	ctx := context.Background()

	open, err := ledger.OpenSubscription(ctx, 1)
	require.NoError(t, err)

	body := signedBody([][2]string{
		{"m_payment_id", open.InternalReference},
		{"payfast_reference", "PF1"},
		{"payment_status", "COMPLETE"},
		{"merchant_id", "10000100"},
	}, "pass")

	out, err := p.Process(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, WebhookApplied, out.State)
	assert.True(t, out.Applied)
	assert.Equal(t, models.SubscriptionStateActive, repo.subscription(open.SubscriptionID).State)

	before := repo.subscription(open.SubscriptionID)
	out, err = p.Process(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, WebhookApplied, out.State)
	assert.False(t, out.Applied)
	assert.Equal(t, before, repo.subscription(open.SubscriptionID))

	require.Len(t, repo.events, 1)
	for _, e := range repo.events {
		assert.Equal(t, models.WebhookOutcomeApplied, e.Outcome)
		assert.True(t, e.SignatureValid)
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	repo := newMemoryRepository(1)
	ledger := newTestLedger(repo)
	p := NewWebhookProcessor(ledger, repo, &PayFastVerifier{Passphrase: "pass"})
	ctx := context.Background()

	open, err := ledger.OpenSubscription(ctx, 1)
	require.NoError(t, err)

	body := signedBody([][2]string{
		{"m_payment_id", open.InternalReference},
		{"payfast_reference", "PF1"},
		{"payment_status", "COMPLETE"},
	}, "wrong-pass")

	out, err := p.Process(ctx, body)
	assert.ErrorIs(t, err, apperror.ErrVerification)
	assert.Equal(t, WebhookRejected, out.State)
	assert.Equal(t, models.SubscriptionStatePending, repo.subscription(open.SubscriptionID).State)
	assert.Equal(t, models.PaymentStatusInitiated, repo.payment(open.InternalReference).Status)

	for _, e := range repo.events {
		assert.Equal(t, models.WebhookOutcomeRejected, e.Outcome)
		assert.False(t, e.SignatureValid)
	}
}

func TestWebhookMissingFields(t *testing.T) {
	repo := newMemoryRepository(1)
	p := NewWebhookProcessor(newTestLedger(repo), repo, acceptAll)

	tests := []string{
		"payfast_reference=PF1&payment_status=COMPLETE",
		"m_payment_id=R1&payment_status=COMPLETE",
		"m_payment_id=R1&payfast_reference=PF1",
	}
	for _, body := range tests {
		out, err := p.Process(context.Background(), []byte(body))
		assert.ErrorIs(t, err, apperror.ErrMalformedPayload, body)
		assert.Equal(t, WebhookRejected, out.State)
	}
}

func TestWebhookUnknownReference(t *testing.T) {
	repo := newMemoryRepository(1)
	p := NewWebhookProcessor(newTestLedger(repo), repo, acceptAll)

	out, err := p.Process(context.Background(), []byte("m_payment_id=nope&payfast_reference=PF1&payment_status=COMPLETE"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, WebhookRejected, out.State)
}

func TestWebhookOutOfOrderPendingAfterComplete(t *testing.T) {
	repo := newMemoryRepository(1)
	ledger := newTestLedger(repo)
	p := NewWebhookProcessor(ledger, nil, acceptAll)
	ctx := context.Background()

	open, err := ledger.OpenSubscription(ctx, 1)
	require.NoError(t, err)
	ref := open.InternalReference

	_, err = p.Process(ctx, []byte("m_payment_id="+ref+"&payfast_reference=PF1&payment_status=COMPLETE"))
	require.NoError(t, err)

	out, err := p.Process(ctx, []byte("m_payment_id="+ref+"&payfast_reference=PF1&payment_status=PENDING"))
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.SubscriptionStateActive, out.SubscriptionState)
}

func TestWebhookRedeliveryFinishesUnmarkedEvent(t *testing.T) {
	repo := newMemoryRepository(1)
	ledger := newTestLedger(repo)
	p := NewWebhookProcessor(ledger, repo, acceptAll)
	ctx := context.Background()

	open, err := ledger.OpenSubscription(ctx, 1)
	require.NoError(t, err)
	body := []byte("m_payment_id=" + open.InternalReference + "&payfast_reference=PF1&payment_status=COMPLETE")

	// A crash after recording left the audit row in its initial state.
	n, err := ParseNotification(body)
	require.NoError(t, err)
	require.NotNil(t, p.recordEvent(ctx, n))

	out, err := p.Process(ctx, body)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	require.Len(t, repo.events, 1)
	for _, e := range repo.events {
		assert.Equal(t, models.WebhookOutcomeApplied, e.Outcome)
		assert.NotNil(t, e.ProcessedAt)
	}
}
