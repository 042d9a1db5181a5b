package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	userContextKey   = "session_user"
	loadedContextKey = "session_loaded"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
	ErrEmptySecret    = errors.New("session secret must not be empty")
)

type UserFinder interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Now        func() time.Time
}

// Manager binds a user to the requests of one browser through a signed cookie.
// The cookie only carries the user id; the user is reloaded on every request.
type Manager struct {
	users      UserFinder
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(users UserFinder, secret string, opts Options) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		users:      users,
		secret:     []byte(secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        opts.Now,
	}, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// Start logs user in for the rest of the request and for later requests
// presenting the returned cookie.
func (m *Manager) Start(c echo.Context, user *entity.User) error {
	value, err := m.sign(user.ID)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.bind(c, user)
	return nil
}

// End logs the current user out.
func (m *Manager) End(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.bind(c, nil)
}

// Current returns the user bound to the request, or false for anonymous requests.
func (m *Manager) Current(c echo.Context) (*entity.User, bool) {
	if loaded, _ := c.Get(loadedContextKey).(bool); !loaded {
		user, err := m.Resolve(c)
		if err != nil {
			user = nil
		}
		m.bind(c, user)
	}

	user, ok := c.Get(userContextKey).(*entity.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// Resolve loads the user named by the session cookie. Unknown users and bad
// cookies yield ErrInvalidSession; a missing cookie yields ErrNoSession.
func (m *Manager) Resolve(c echo.Context) (*entity.User, error) {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	userID, err := m.parse(cookie.Value)
	if err != nil {
		return nil, err
	}

	user, err := m.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidSession
	}
	return user, nil
}

// Refresh replaces the bound user, e.g. after it was modified by the request.
func (m *Manager) Refresh(c echo.Context, user *entity.User) {
	m.bind(c, user)
}

func (m *Manager) bind(c echo.Context, user *entity.User) {
	c.Set(userContextKey, user)
	c.Set(loadedContextKey, true)
}

func (m *Manager) sign(userID uint64) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(value string) (uint64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	).ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, ErrInvalidSession
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, ErrInvalidSession
	}
	return userID, nil
}
