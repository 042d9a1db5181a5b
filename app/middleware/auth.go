package middleware

import (
	"errors"
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-account/app/dto/http"
	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/session"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	loginRequiredMessage     = "Please log in to access this page."
	confirmationRequiredText = "Please confirm your account!"
)

type sessionResolver interface {
	Resolve(c echo.Context) (*entity.User, error)
	Refresh(c echo.Context, user *entity.User)
	Current(c echo.Context) (*entity.User, bool)
}

type AuthMiddleware struct {
	sessions sessionResolver
}

func NewAuthMiddleware(sessions sessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// LoadSession resolves the session user once per request. Requests with a bad
// or stale cookie continue anonymously.
func (m *AuthMiddleware) LoadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.sessions.Resolve(c)
		switch {
		case err == nil:
		case errors.Is(err, session.ErrNoSession):
		case errors.Is(err, session.ErrInvalidSession):
			logrus.Debug("Ignoring invalid session cookie")
		default:
			logrus.WithError(err).Error("Failed to load session user")
		}

		m.sessions.Refresh(c, user)
		return next(c)
	}
}

func (m *AuthMiddleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := m.sessions.Current(c); !ok {
			logrus.WithField("path", c.Path()).Debug("Login required")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: loginRequiredMessage})
		}

		return next(c)
	}
}

// RequireConfirmed must run after RequireLogin.
func (m *AuthMiddleware) RequireConfirmed(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := m.sessions.Current(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: loginRequiredMessage})
		}
		if !user.IsConfirmed {
			logrus.WithField("user_id", user.ID).Debug("Confirmed account required")
			return c.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: confirmationRequiredText})
		}

		return next(c)
	}
}
