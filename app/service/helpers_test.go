package service_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"

	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret"
	testAudience = "test-salt"
)

var userColumns = []string{
	"id",
	"email",
	"password_hash",
	"is_confirmed",
	"confirmed_on",
	"pending_reset_token",
	"registered_on",
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type accountServices struct {
	store        *repository.MemoryUserRepository
	clock        *fakeClock
	tokens       *service.TokenCodec
	credentials  *service.CredentialService
	confirmation *service.ConfirmationFlow
	reset        *service.PasswordResetFlow
}

func newAccountServices(t *testing.T) *accountServices {
	t.Helper()

	clock := newFakeClock()
	tokens, err := service.NewTokenCodec(testSecret, testAudience, 24*time.Hour, clock)
	if err != nil {
		t.Fatalf("failed to create token codec: %v", err)
	}
	store := repository.NewMemoryUserRepository()
	hasher := service.NewBcryptHasher(bcrypt.MinCost)

	return &accountServices{
		store:        store,
		clock:        clock,
		tokens:       tokens,
		credentials:  service.NewCredentialService(store, hasher, clock),
		confirmation: service.NewConfirmationFlow(store, tokens, clock),
		reset:        service.NewPasswordResetFlow(store, tokens, hasher, 24*time.Hour),
	}
}

// tamper flips one character in the middle of the token signature.
func tamper(token string) string {
	dot := strings.LastIndex(token, ".")
	sig := []byte(token[dot+1:])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	return token[:dot+1] + string(sig)
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// tamperLast swaps the final signature character for its alphabet neighbour.
// The two characters differ only in the trailing padding bits.
func tamperLast(token string) string {
	last := strings.IndexByte(base64URLAlphabet, token[len(token)-1])
	return token[:len(token)-1] + string(base64URLAlphabet[last^1])
}
