package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newManager(t *testing.T) (*session.Manager, *entity.User, *testClock) {
	t.Helper()

	store := repository.NewMemoryUserRepository()
	user := &entity.User{Email: "u@test.io", PasswordHash: "hash", RegisteredOn: time.Now()}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	clock := &testClock{now: time.Now()}
	manager, err := session.NewManager(store, "test-secret", session.Options{
		CookieName: "sid",
		TTL:        time.Hour,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return manager, user, clock
}

func newContext(cookie *http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := session.NewManager(repository.NewMemoryUserRepository(), "", session.Options{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestManager_StartAndResolve(t *testing.T) {
	manager, user, _ := newManager(t)

	ctx, rec := newContext(nil)
	if err := manager.Start(ctx, user); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	current, ok := manager.Current(ctx)
	if !ok || current.ID != user.ID {
		t.Fatalf("expected user bound to the starting request, got %+v", current)
	}

	cookie := sessionCookie(t, rec, "sid")
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.MaxAge != 3600 {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	next, _ := newContext(&http.Cookie{Name: "sid", Value: cookie.Value})
	current, ok = manager.Current(next)
	if !ok || current.Email != "u@test.io" {
		t.Fatalf("expected user on next request, got %+v", current)
	}
}

func TestManager_AnonymousRequest(t *testing.T) {
	manager, _, _ := newManager(t)

	ctx, _ := newContext(nil)
	if _, ok := manager.Current(ctx); ok {
		t.Fatalf("expected anonymous request")
	}
	if _, err := manager.Resolve(ctx); err != session.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestManager_End(t *testing.T) {
	manager, user, _ := newManager(t)

	ctx, rec := newContext(nil)
	if err := manager.Start(ctx, user); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	manager.End(ctx)

	if _, ok := manager.Current(ctx); ok {
		t.Fatalf("expected session to be cleared")
	}

	cookies := rec.Result().Cookies()
	last := cookies[len(cookies)-1]
	if last.Name != "sid" || last.MaxAge >= 0 || last.Value != "" {
		t.Fatalf("expected expiring cookie, got %+v", last)
	}
}

func TestManager_RejectsBadCookies(t *testing.T) {
	manager, user, clock := newManager(t)

	ctx, rec := newContext(nil)
	if err := manager.Start(ctx, user); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	valid := sessionCookie(t, rec, "sid").Value

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "1",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, valid[len(valid)-1])
	padded := valid[:len(valid)-1] + string(alphabet[last^1])

	for name, value := range map[string]string{
		"garbage":      "not-a-jwt",
		"forged":       forged,
		"no expiry":    noExpiry,
		"padding bits": padded,
	} {
		ctx, _ := newContext(&http.Cookie{Name: "sid", Value: value})
		if _, err := manager.Resolve(ctx); err != session.ErrInvalidSession {
			t.Fatalf("%s: expected ErrInvalidSession, got %v", name, err)
		}
	}

	clock.now = clock.now.Add(2 * time.Hour)
	expired, _ := newContext(&http.Cookie{Name: "sid", Value: valid})
	if _, ok := manager.Current(expired); ok {
		t.Fatalf("expected expired session to be anonymous")
	}

	clock.now = clock.now.Add(-2 * time.Hour)
	stranger, _ := session.NewManager(repository.NewMemoryUserRepository(), "test-secret", session.Options{CookieName: "sid", Now: clock.Now})
	missing, _ := newContext(&http.Cookie{Name: "sid", Value: valid})
	if _, err := stranger.Resolve(missing); err != session.ErrInvalidSession {
		t.Fatalf("expected ErrInvalidSession for unknown user, got %v", err)
	}
}
