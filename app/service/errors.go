package service

import "errors"

var (
	ErrMissingCredentials   = errors.New("email and password are required")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrAuthFailure          = errors.New("invalid email and/or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoActiveResetRequest = errors.New("no active password reset request")
	ErrAlreadyConfirmed     = errors.New("account is already confirmed")
	ErrEmptySecret          = errors.New("signing secret must not be empty")
	ErrPasswordTooLong      = errors.New("password exceeds 72 bytes")
)
