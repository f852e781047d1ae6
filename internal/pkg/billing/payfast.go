package billing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuelReschke/OddsRaiders/app/models"
)

// Field is one key/value pair of a form payload; order matters for signatures.
type Field struct {
	Key   string
	Value string
}

// Notification is a parsed provider notification with its raw body.
type Notification struct {
	Raw    []byte
	Fields []Field
}

// ParseNotification decodes a form-encoded body keeping field order.
func ParseNotification(body []byte) (Notification, error) {
	n := Notification{Raw: body}
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return n, fmt.Errorf("decode field name %q: %w", k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return n, fmt.Errorf("decode field %q: %w", key, err)
		}
		n.Fields = append(n.Fields, Field{Key: key, Value: val})
	}
	return n, nil
}

// Get returns the first value for key.
func (n Notification) Get(key string) string {
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// PayFastSignature signs checkout data: the md5 of the url-encoded, non-empty
// fields in order, excluding "signature", with the passphrase appended when set.
func PayFastSignature(fields []Field, passphrase string) string {
	return payFastDigest(fields, passphrase, true)
}

// PayFastNotificationSignature signs an ITN the way PayFast does: every posted
// field except "signature" in the order received, blank values included and
// left untrimmed.
func PayFastNotificationSignature(fields []Field, passphrase string) string {
	return payFastDigest(fields, passphrase, false)
}

func payFastDigest(fields []Field, passphrase string, skipBlank bool) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Key == "signature" {
			continue
		}
		v := f.Value
		if skipBlank {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if p := strings.TrimSpace(passphrase); p != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString("passphrase=")
		b.WriteString(url.QueryEscape(p))
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// PayFastStatusToPaymentStatus maps payment_status values to ledger statuses.
func PayFastStatusToPaymentStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETE":
		return models.PaymentStatusCompleted
	case "FAILED":
		return models.PaymentStatusFailed
	case "CANCELLED":
		return models.PaymentStatusCancelled
	default:
		return models.PaymentStatusPending
	}
}

// PayFastRedirectURL builds the signed checkout URL for a payment.
func PayFastRedirectURL(cfg Config, payment models.Payment, email string) string {
	fields := []Field{
		{Key: "merchant_id", Value: cfg.PayFast.MerchantID},
		{Key: "merchant_key", Value: cfg.PayFast.MerchantKey},
		{Key: "return_url", Value: cfg.PayFast.ReturnURL},
		{Key: "cancel_url", Value: cfg.PayFast.CancelURL},
		{Key: "notify_url", Value: cfg.PayFast.NotifyURL},
		{Key: "email_address", Value: email},
		{Key: "m_payment_id", Value: payment.InternalReference},
		{Key: "amount", Value: payment.Amount.StringFixed(2)},
		{Key: "item_name", Value: cfg.ItemName},
	}

	var b strings.Builder
	b.WriteString(cfg.PayFast.ProcessURL)
	b.WriteByte('?')
	for _, f := range fields {
		v := strings.TrimSpace(f.Value)
		if v == "" {
			continue
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
		b.WriteByte('&')
	}
	b.WriteString("signature=")
	b.WriteString(PayFastSignature(fields, cfg.PayFast.Passphrase))
	return b.String()
}
