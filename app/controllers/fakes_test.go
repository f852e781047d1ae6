package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/billing"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type memUsers struct {
	mu     sync.Mutex
	byID   map[uint]*models.User
	nextID uint
	logins map[uint]time.Time
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint]*models.User{}, nextID: 1, logins: map[uint]time.Time{}}
}

func (m *memUsers) Create(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = m.nextID
	u.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.nextID++
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) Update(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) TouchLastLogin(id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[id] = at
	return nil
}

func (m *memUsers) mustCreate(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	u, err := models.CreateUser(name, email, password)
	require.NoError(t, err)
	require.NoError(t, m.Create(u))
	return u
}

type fakeLedger struct {
	current   map[uint]*billing.CurrentSubscription
	opened    []uint
	cancelled []uint
	openErr   error
	cancelErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{current: map[uint]*billing.CurrentSubscription{}}
}

func (f *fakeLedger) OpenSubscription(_ context.Context, userID uint) (*billing.OpenResult, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened = append(f.opened, userID)
	return &billing.OpenResult{
		SubscriptionID:    10,
		InternalReference: "sub-ref-1",
		Payment:           models.Payment{InternalReference: "sub-ref-1", Amount: decimal.RequireFromString("99.00")},
	}, nil
}

func (f *fakeLedger) GetCurrentSubscription(_ context.Context, userID uint) (*billing.CurrentSubscription, error) {
	if cur, ok := f.current[userID]; ok {
		return cur, nil
	}
	return &billing.CurrentSubscription{UserID: userID, State: billing.SubscriptionStateNone, IsCancelled: true}, nil
}

func (f *fakeLedger) CancelSubscription(_ context.Context, userID uint) (*models.Subscription, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	f.cancelled = append(f.cancelled, userID)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.Subscription{UserID: userID, State: models.SubscriptionStateCancelled, CancelledAt: &at}, nil
}

func (f *fakeLedger) Config() billing.Config {
	return billing.Config{
		ItemName: "OddsRaiders monthly",
		PayFast: billing.PayFastConfig{
			MerchantID: "10000100",
			ProcessURL: "https://sandbox.payfast.co.za/eng/process",
		},
	}
}

var errNoOpenSubscription = apperror.NotFound("no open subscription")

// asUser authenticates every request as the given user.
func asUser(id uint, admin bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id != 0 {
			usercontext.Set(c, usercontext.UserContext{UserID: id, Email: "user@example.com", IsLoggedIn: true, IsAdmin: admin})
		}
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
