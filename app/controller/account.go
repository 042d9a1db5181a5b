package controller

import (
	"errors"
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-account/app/dto/http"
	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/session"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	msgInvalidBody        = "invalid request body"
	msgInternalError      = "internal server error"
	msgConfirmationSent   = "A confirmation email has been sent via email."
	msgConfirmationResent = "A new confirmation email has been sent."
	msgConfirmationFailed = "Your account was created but the confirmation email could not be sent. Please request a new one."
	msgWelcome            = "Welcome."
	msgInvalidLogin       = "Invalid email and/or password."
	msgLoggedOut          = "You were logged out."
	msgEmailRegistered    = "Email already registered."
	msgConfirmed          = "You have confirmed your account. Thanks!"
	msgAlreadyConfirmed   = "Account already confirmed. Please login."
	msgInvalidConfirmLink = "The confirmation link is invalid or has expired."
	msgPleaseConfirm      = "Please confirm your account!"
	msgPasswordChanged    = "Password successfully changed."
	msgPasswordNotChanged = "Password change was unsuccessful."
	msgResetSent          = "A password reset email has been sent via email."
	msgEmailNotRegistered = "Email not registered."
	msgResetAllowed       = "You can now change your password."
	msgResetNotPossible   = "Can not reset the password, try again."
	msgInvalidResetLink   = "The reset link is invalid or has expired."
	msgPasswordTooLong    = "Password is too long."
)

type AccountController struct {
	credentials  *service.CredentialService
	confirmation *service.ConfirmationFlow
	reset        *service.PasswordResetFlow
	notifier     *service.Notifier
	sessions     *session.Manager
	policy       config.PasswordPolicy
}

func NewAccountController(
	credentials *service.CredentialService,
	confirmation *service.ConfirmationFlow,
	reset *service.PasswordResetFlow,
	notifier *service.Notifier,
	sessions *session.Manager,
	policy config.PasswordPolicy,
) *AccountController {
	return &AccountController{
		credentials:  credentials,
		confirmation: confirmation,
		reset:        reset,
		notifier:     notifier,
		sessions:     sessions,
		policy:       policy,
	}
}

func (c *AccountController) Home(ctx echo.Context) error {
	user, ok := c.sessions.Current(ctx)
	if !ok {
		return ctx.JSON(http.StatusOK, httpdto.SessionResponse{})
	}

	return ctx.JSON(http.StatusOK, httpdto.SessionResponse{
		Authenticated: true,
		Email:         user.Email,
		Confirmed:     user.IsConfirmed,
	})
}

func (c *AccountController) Register(ctx echo.Context) error {
	req, err := httpdto.NewRegisterRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(c.policy); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	user, err := c.credentials.Register(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			logrus.WithField("email", req.Email).Warn("Register failed: email already registered")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: msgEmailRegistered})
		}
		if errors.Is(err, service.ErrPasswordTooLong) {
			logrus.WithField("email", req.Email).Debug("Register failed: password too long")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgPasswordTooLong})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	// The account exists at this point; a failed mail is recovered through /resend.
	message := msgConfirmationSent
	if err := c.sendConfirmation(ctx, user); err != nil {
		message = msgConfirmationFailed
	}

	if err := c.sessions.Start(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to start session")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusCreated, httpdto.UserResponse{
		Message:   message,
		Email:     user.Email,
		Confirmed: user.IsConfirmed,
	})
}

func (c *AccountController) Login(ctx echo.Context) error {
	req, err := httpdto.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	user, err := c.credentials.Authenticate(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthFailure) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: msgInvalidLogin})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	if err := c.sessions.Start(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to start session")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return ctx.JSON(http.StatusOK, httpdto.UserResponse{
		Message:   msgWelcome,
		Email:     user.Email,
		Confirmed: user.IsConfirmed,
	})
}

func (c *AccountController) Logout(ctx echo.Context) error {
	user, _ := c.sessions.Current(ctx)
	c.sessions.End(ctx)

	if user != nil {
		logrus.WithField("user_id", user.ID).Info("User logged out")
	}
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgLoggedOut})
}

func (c *AccountController) Unconfirmed(ctx echo.Context) error {
	user, _ := c.sessions.Current(ctx)
	if user.IsConfirmed {
		return ctx.JSON(http.StatusOK, httpdto.UserResponse{
			Message:   msgAlreadyConfirmed,
			Email:     user.Email,
			Confirmed: true,
		})
	}

	return ctx.JSON(http.StatusOK, httpdto.UserResponse{
		Message: msgPleaseConfirm,
		Email:   user.Email,
	})
}

func (c *AccountController) ResendConfirmation(ctx echo.Context) error {
	user, _ := c.sessions.Current(ctx)

	if err := c.sendConfirmation(ctx, user); err != nil {
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgConfirmationResent})
}

func (c *AccountController) Confirm(ctx echo.Context) error {
	user, _ := c.sessions.Current(ctx)

	confirmed, err := c.confirmation.Confirm(ctx.Request().Context(), user, ctx.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyConfirmed):
			logrus.WithField("user_id", user.ID).Info("Confirmation skipped: already confirmed")
			return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgAlreadyConfirmed})
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
			logrus.WithField("user_id", user.ID).Warn("Confirmation failed: invalid or expired token")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidConfirmLink})
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	c.sessions.Refresh(ctx, confirmed)
	logrus.WithField("user_id", confirmed.ID).Info("Account confirmed")
	return ctx.JSON(http.StatusOK, httpdto.UserResponse{
		Message:   msgConfirmed,
		Email:     confirmed.Email,
		Confirmed: true,
	})
}

func (c *AccountController) ChangePassword(ctx echo.Context) error {
	user, _ := c.sessions.Current(ctx)

	req, err := httpdto.NewChangePasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind change password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(c.policy); err != nil {
		logrus.WithField("user_id", user.ID).Debug("Change password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	if err := c.credentials.ChangePassword(ctx.Request().Context(), user.ID, req.Password); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", user.ID).Warn("Change password failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: msgPasswordNotChanged})
		}
		if errors.Is(err, service.ErrPasswordTooLong) {
			logrus.WithField("user_id", user.ID).Debug("Change password failed: password too long")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgPasswordTooLong})
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Change password failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	logrus.WithField("user_id", user.ID).Info("Password changed")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgPasswordChanged})
}

func (c *AccountController) Forgot(ctx echo.Context) error {
	req, err := httpdto.NewForgotRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind forgot request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Forgot validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	token, err := c.reset.RequestReset(ctx.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("email", req.Email).Warn("Password reset requested for unknown email")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: msgEmailNotRegistered})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	if err := c.notifier.SendPasswordReset(ctx.Request().Context(), req.Email, token); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("Failed to send password reset email")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: msgResetSent})
}

func (c *AccountController) BeginReset(ctx echo.Context) error {
	user, err := c.reset.BeginReset(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return c.resetFailure(ctx, err)
	}

	return ctx.JSON(http.StatusOK, httpdto.ResetStatusResponse{
		Message: msgResetAllowed,
		Email:   user.Email,
	})
}

func (c *AccountController) CompleteReset(ctx echo.Context) error {
	req, err := httpdto.NewChangePasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidBody})
	}

	if err = req.Validate(c.policy); err != nil {
		logrus.Debug("Reset password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	user, err := c.reset.CompleteReset(ctx.Request().Context(), ctx.Param("token"), req.Password)
	if err != nil {
		return c.resetFailure(ctx, err)
	}

	if err := c.sessions.Start(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to start session")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
	}

	logrus.WithField("user_id", user.ID).Info("Password reset completed")
	return ctx.JSON(http.StatusOK, httpdto.UserResponse{
		Message:   msgPasswordChanged,
		Email:     user.Email,
		Confirmed: user.IsConfirmed,
	})
}

func (c *AccountController) resetFailure(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		logrus.Warn("Password reset failed: invalid or expired token")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgInvalidResetLink})
	case errors.Is(err, service.ErrUserNotFound):
		logrus.Warn("Password reset failed: user not found")
		return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: msgEmailNotRegistered})
	case errors.Is(err, service.ErrPasswordTooLong):
		logrus.Debug("Password reset failed: password too long")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: msgPasswordTooLong})
	case errors.Is(err, service.ErrNoActiveResetRequest):
		logrus.Warn("Password reset failed: no active request")
		return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: msgResetNotPossible})
	}

	logrus.WithError(err).Error("Password reset failed")
	return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msgInternalError})
}

func (c *AccountController) sendConfirmation(ctx echo.Context, user *entity.User) error {
	token, err := c.confirmation.IssueToken(user)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to issue confirmation token")
		return err
	}

	if err := c.notifier.SendConfirmation(ctx.Request().Context(), user.Email, token); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send confirmation email")
		return err
	}

	logrus.WithField("user_id", user.ID).Info("Confirmation email sent")
	return nil
}
