// Package testutil provides utilities for testing
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gatekeeper/internal/account"
	"gatekeeper/internal/api/routes"
	"gatekeeper/internal/auth"
	"gatekeeper/internal/config"
	"gatekeeper/internal/models"
	"gatekeeper/internal/repository"
	"gatekeeper/internal/repository/memory"
	"gatekeeper/internal/testutil/db"
	"gatekeeper/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads the test configuration
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return db.LoadTestConfig(t)
}

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockNotifier records the codes and reset tokens it is asked to deliver
type MockNotifier struct {
	mu     sync.Mutex
	otps   map[string][]string
	resets map[string][]string
	// Err, when set, is returned from every send
	Err error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{otps: map[string][]string{}, resets: map[string][]string{}}
}

func (n *MockNotifier) SendOTP(_ context.Context, to, otp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.otps[to] = append(n.otps[to], otp)
	return nil
}

func (n *MockNotifier) SendResetLink(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.resets[to] = append(n.resets[to], token)
	return nil
}

// LastOTP returns the most recent code sent to an address, or "" if none
func (n *MockNotifier) LastOTP(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.otps[to]) == 0 {
		return ""
	}
	return n.otps[to][len(n.otps[to])-1]
}

// LastResetToken returns the most recent reset token sent to an address, or "" if none
func (n *MockNotifier) LastResetToken(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets[to]) == 0 {
		return ""
	}
	return n.resets[to][len(n.resets[to])-1]
}

// TestContext holds common test dependencies
type TestContext struct {
	T        *testing.T
	Config   *config.Config
	Clock    *Clock
	Repo     *memory.AccountRepository
	Notifier *MockNotifier
	Issuer   *auth.JWTIssuer
	Service  *account.Service
	Router   *gin.Engine
}

// NewTestContext wires the full HTTP stack over an in-memory repository
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
	validation.Initialize()

	cfg := LoadTestConfig(t)
	clock := NewClock(time.Date(2024, 3, 20, 13, 0, 0, 0, time.UTC))
	repo := memory.NewAccountRepository().WithClock(clock.Now)
	notifier := NewMockNotifier()
	issuer := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	service := account.NewService(
		repo,
		notifier,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		issuer,
		account.ConfigFrom(cfg),
		zerolog.Nop(),
		account.WithClock(clock.Now),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := routes.SetupRoutes(ctx, routes.Dependencies{
		Config:  cfg,
		Service: service,
		Tokens:  issuer,
		Logger:  zerolog.Nop(),
	})

	return &TestContext{
		T:        t,
		Config:   cfg,
		Clock:    clock,
		Repo:     repo,
		Notifier: notifier,
		Issuer:   issuer,
		Service:  service,
		Router:   router,
	}
}

// Do sends a JSON request through the router. An empty token sends no Authorization header.
func (tc *TestContext) Do(method, path string, body any, token string) *httptest.ResponseRecorder {
	tc.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(tc.T, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	tc.Router.ServeHTTP(w, req)
	return w
}

// CreateVerifiedAccount stores an account that can log in immediately
func (tc *TestContext) CreateVerifiedAccount(email, password string) *models.Account {
	tc.T.Helper()

	hash, err := auth.NewBcryptHasher(tc.Config.Auth.BcryptCost).Hash(password)
	require.NoError(tc.T, err)

	acc, err := tc.Repo.Create(context.Background(), email, hash)
	require.NoError(tc.T, err)

	verified := true
	require.NoError(tc.T, tc.Repo.Update(context.Background(), acc.ID, repository.AccountUpdate{Verified: &verified}))
	acc.Verified = true
	return acc
}

// GetTestJWT signs a token for the given account
func (tc *TestContext) GetTestJWT(accountID uuid.UUID) string {
	tc.T.Helper()

	token, err := tc.Issuer.Sign(auth.NewAccountClaims(accountID), tc.Config.Auth.TokenTTL)
	require.NoError(tc.T, err)
	return token
}

// DecodeJSON unmarshals a recorded response body
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// RequireStatus fails the test with the response body when the status differs
func RequireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}
