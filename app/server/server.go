package server

import (
	"github.com/vibast-solutions/ms-go-account/app/controller"
	"github.com/vibast-solutions/ms-go-account/app/metrics"
	"github.com/vibast-solutions/ms-go-account/app/middleware"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/session"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Services holds the account components built from one configuration.
type Services struct {
	Store        repository.UserStore
	Tokens       *service.TokenCodec
	Credentials  *service.CredentialService
	Confirmation *service.ConfirmationFlow
	Reset        *service.PasswordResetFlow
	Notifier     *service.Notifier
	Sessions     *session.Manager
}

func NewServices(cfg *config.Config, store repository.UserStore, sender service.MailSender, clock service.Clock) (*Services, error) {
	if clock == nil {
		clock = service.SystemClock{}
	}

	tokens, err := service.NewTokenCodec(cfg.Security.SecretKey, cfg.Security.PasswordSalt, cfg.Tokens.ConfirmMaxAge, clock)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(store, cfg.Security.SecretKey, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.CookieSecure,
		Now:        clock.Now,
	})
	if err != nil {
		return nil, err
	}

	hasher := service.NewBcryptHasher(cfg.Security.BcryptCost)

	return &Services{
		Store:        store,
		Tokens:       tokens,
		Credentials:  service.NewCredentialService(store, hasher, clock),
		Confirmation: service.NewConfirmationFlow(store, tokens, clock),
		Reset:        service.NewPasswordResetFlow(store, tokens, hasher, cfg.Tokens.ResetMaxAge),
		Notifier:     service.NewNotifier(sender, cfg.BaseURL),
		Sessions:     sessions,
	}, nil
}

// NewMailSender returns an SMTP sender, or a log-only sender when no relay is configured.
func NewMailSender(cfg config.MailConfig) service.MailSender {
	if cfg.Server == "" {
		return service.LogMailSender{From: cfg.DefaultSender}
	}
	return &service.SMTPMailSender{
		Host:     cfg.Server,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.DefaultSender,
	}
}

// NewHTTPHandler builds the echo instance serving every account route.
func NewHTTPHandler(cfg *config.Config, svc *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"route":      c.Path(),
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(metrics.Middleware)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	accountController := controller.NewAccountController(
		svc.Credentials,
		svc.Confirmation,
		svc.Reset,
		svc.Notifier,
		svc.Sessions,
		cfg.Password.Policy,
	)
	authMiddleware := middleware.NewAuthMiddleware(svc.Sessions)

	e.Use(authMiddleware.LoadSession)

	requireLogin := authMiddleware.RequireLogin
	requireConfirmed := authMiddleware.RequireConfirmed

	e.GET("/", accountController.Home)
	e.POST("/register", accountController.Register)
	e.POST("/login", accountController.Login)
	e.POST("/logout", accountController.Logout, requireLogin)
	e.GET("/unconfirmed", accountController.Unconfirmed, requireLogin)
	e.GET("/resend", accountController.ResendConfirmation, requireLogin)
	e.GET("/confirm/:token", accountController.Confirm, requireLogin)
	e.POST("/profile", accountController.ChangePassword, requireLogin, requireConfirmed)
	e.POST("/forgot", accountController.Forgot)
	e.GET("/forgot/new/:token", accountController.BeginReset)
	e.POST("/forgot/new/:token", accountController.CompleteReset)

	return e
}
