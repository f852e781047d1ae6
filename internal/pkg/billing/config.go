package billing

import (
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
)

const (
	defaultTermDays = 30
	defaultPrice    = "99.00"
	defaultCurrency = "ZAR"
	defaultItemName = "OddsRaiders Premium"

	payFastSandboxProcessURL = "https://sandbox.payfast.co.za/eng/process"
)

// PayFastConfig holds merchant credentials and redirect targets.
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ProcessURL  string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// Config controls subscription pricing and term.
type Config struct {
	Term     time.Duration
	Price    decimal.Decimal
	Currency string
	ItemName string
	PayFast  PayFastConfig
}

// ConfigFromEnv reads SUBSCRIPTION_* and PAYFAST_* settings.
func ConfigFromEnv() Config {
	price, err := decimal.NewFromString(env.GetEnv("SUBSCRIPTION_PRICE", defaultPrice))
	if err != nil || !price.IsPositive() {
		log.Warnf("[Billing] invalid SUBSCRIPTION_PRICE, using %s", defaultPrice)
		price = decimal.RequireFromString(defaultPrice)
	}
	days := env.GetEnvInt("SUBSCRIPTION_TERM_DAYS", defaultTermDays)
	if days <= 0 {
		days = defaultTermDays
	}

	return Config{
		Term:     time.Duration(days) * 24 * time.Hour,
		Price:    price,
		Currency: defaultCurrency,
		ItemName: env.GetEnv("SUBSCRIPTION_ITEM_NAME", defaultItemName),
		PayFast: PayFastConfig{
			MerchantID:  env.GetEnv("PAYFAST_MERCHANT_ID", ""),
			MerchantKey: env.GetEnv("PAYFAST_MERCHANT_KEY", ""),
			Passphrase:  env.GetEnv("PAYFAST_PASSPHRASE", ""),
			ProcessURL:  env.GetEnv("PAYFAST_PROCESS_URL", payFastSandboxProcessURL),
			ReturnURL:   env.GetEnv("PAYFAST_RETURN_URL", ""),
			CancelURL:   env.GetEnv("PAYFAST_CANCEL_URL", ""),
			NotifyURL:   env.GetEnv("PAYFAST_NOTIFY_URL", ""),
		},
	}
}

func (c Config) withDefaults() Config {
	if c.Term <= 0 {
		c.Term = defaultTermDays * 24 * time.Hour
	}
	if !c.Price.IsPositive() {
		c.Price = decimal.RequireFromString(defaultPrice)
	}
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.ItemName == "" {
		c.ItemName = defaultItemName
	}
	if c.PayFast.ProcessURL == "" {
		c.PayFast.ProcessURL = payFastSandboxProcessURL
	}
	return c
}
