package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/metrics"
	"github.com/vibast-solutions/ms-go-account/app/repository"
)

const (
	resetStageRequest  = "request"
	resetStageBegin    = "begin"
	resetStageComplete = "complete"
)

// PasswordResetFlow drives the forgotten password flow: a reset token is stored
// on the user as the pending request and consumed exactly once.
type PasswordResetFlow struct {
	users  repository.UserStore
	tokens *TokenCodec
	hasher PasswordHasher
	maxAge time.Duration
}

func NewPasswordResetFlow(users repository.UserStore, tokens *TokenCodec, hasher PasswordHasher, maxAge time.Duration) *PasswordResetFlow {
	return &PasswordResetFlow{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		maxAge: maxAge,
	}
}

// RequestReset stores a fresh reset token for email, replacing any pending one,
// and returns it for delivery.
func (f *PasswordResetFlow) RequestReset(ctx context.Context, email string) (string, error) {
	token, err := f.tokens.Encode(email)
	if err != nil {
		f.observe(resetStageRequest, err)
		return "", err
	}

	err = f.users.Atomic(ctx, func(store repository.UserStore) error {
		user, err := store.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		user.PendingResetToken = sql.NullString{String: token, Valid: true}
		return store.Update(ctx, user)
	})
	f.observe(resetStageRequest, err)
	if err != nil {
		return "", err
	}

	metrics.TokensIssuedTotal.WithLabelValues(PurposeReset).Inc()
	return token, nil
}

// BeginReset checks that token may be used to set a new password. It does not
// change any state.
func (f *PasswordResetFlow) BeginReset(ctx context.Context, token string) (*entity.User, error) {
	email, err := f.tokens.DecodeMaxAge(token, f.maxAge)
	if err != nil {
		f.observe(resetStageBegin, err)
		return nil, err
	}

	user, err := f.users.FindByEmail(ctx, email)
	if err == nil {
		err = checkResetEligible(user)
	}
	f.observe(resetStageBegin, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CompleteReset sets newPassword on the user token was issued for and clears the
// pending request. On failure the stored user is left unchanged.
func (f *PasswordResetFlow) CompleteReset(ctx context.Context, token, newPassword string) (*entity.User, error) {
	if newPassword == "" {
		f.observe(resetStageComplete, ErrMissingCredentials)
		return nil, ErrMissingCredentials
	}

	email, err := f.tokens.DecodeMaxAge(token, f.maxAge)
	if err != nil {
		f.observe(resetStageComplete, err)
		return nil, err
	}

	hashed, err := f.hasher.Hash(newPassword)
	if err != nil {
		f.observe(resetStageComplete, err)
		return nil, err
	}

	var updated *entity.User
	err = f.users.Atomic(ctx, func(store repository.UserStore) error {
		user, err := store.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if err := checkResetEligible(user); err != nil {
			return err
		}

		user.PasswordHash = hashed
		user.PendingResetToken = sql.NullString{}
		if err := store.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	f.observe(resetStageComplete, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func checkResetEligible(user *entity.User) error {
	if user == nil {
		return ErrUserNotFound
	}
	if !user.HasPendingReset() {
		return ErrNoActiveResetRequest
	}
	return nil
}

func (f *PasswordResetFlow) observe(stage string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoActiveResetRequest),
		errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrPasswordTooLong):
		result = metrics.ResultFailure
	default:
		result = metrics.ResultError
	}
	metrics.PasswordResetsTotal.WithLabelValues(stage, result).Inc()
}
