package http

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/labstack/echo/v4"
)

const (
	emailMinLength = 6
	emailMaxLength = 255

	// bcrypt ignores input past this many bytes.
	passwordMaxBytes = 72
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordMismatch = errors.New("passwords must match")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
)

type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

type ForgotRequest struct {
	Email string `json:"email" form:"email"`
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RegisterRequest) Validate(policy config.PasswordPolicy) error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}

	return validateNewPassword(r.Password, r.Confirm, policy)
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}

	return nil
}

func NewChangePasswordRequestFromContext(ctx echo.Context) (*ChangePasswordRequest, error) {
	var body ChangePasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ChangePasswordRequest) Validate(policy config.PasswordPolicy) error {
	return validateNewPassword(r.Password, r.Confirm, policy)
}

func NewForgotRequestFromContext(ctx echo.Context) (*ForgotRequest, error) {
	var body ForgotRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ForgotRequest) Validate() error {
	return validateEmail(r.Email)
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if len(email) < emailMinLength || len(email) > emailMaxLength {
		return ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}

	return nil
}

func validateNewPassword(password, confirm string, policy config.PasswordPolicy) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	if len(password) > passwordMaxBytes {
		return ErrPasswordTooLong
	}
	if err := policy.Validate(password); err != nil {
		return err
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	return nil
}
