package billing

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
)

// Verifier checks the authenticity of a provider notification.
type Verifier interface {
	Verify(ctx context.Context, n Notification) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, n Notification) error

func (f VerifierFunc) Verify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// PayFastVerifier recomputes the notification signature and checks that the
// notification targets our merchant account.
type PayFastVerifier struct {
	MerchantID string
	Passphrase string
}

func NewPayFastVerifier(cfg PayFastConfig) *PayFastVerifier {
	return &PayFastVerifier{MerchantID: cfg.MerchantID, Passphrase: cfg.Passphrase}
}

func (v *PayFastVerifier) Verify(_ context.Context, n Notification) error {
	got := strings.ToLower(strings.TrimSpace(n.Get("signature")))
	if got == "" {
		return apperror.Verification("missing signature", nil)
	}
	want := PayFastNotificationSignature(n.Fields, v.Passphrase)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return apperror.Verification("signature mismatch", nil)
	}
	if v.MerchantID != "" && n.Get("merchant_id") != v.MerchantID {
		return apperror.Verification("unexpected merchant_id", nil)
	}
	return nil
}
