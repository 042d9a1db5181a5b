package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/metrics"
	"github.com/vibast-solutions/ms-go-account/app/repository"
)

const (
	confirmResultConfirmed = "confirmed"
	confirmResultAlready   = "already_confirmed"
	confirmResultInvalid   = "invalid"
	confirmResultError     = "error"

	PurposeConfirm = "confirm"
	PurposeReset   = "reset"
)

// ConfirmationFlow issues email confirmation tokens and applies them.
type ConfirmationFlow struct {
	users  repository.UserStore
	tokens *TokenCodec
	clock  Clock
}

func NewConfirmationFlow(users repository.UserStore, tokens *TokenCodec, clock Clock) *ConfirmationFlow {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ConfirmationFlow{
		users:  users,
		tokens: tokens,
		clock:  clock,
	}
}

func (f *ConfirmationFlow) IssueToken(user *entity.User) (string, error) {
	token, err := f.tokens.Encode(user.Email)
	if err != nil {
		return "", err
	}
	metrics.TokensIssuedTotal.WithLabelValues(PurposeConfirm).Inc()
	return token, nil
}

// Confirm marks sessionUser as confirmed when token attests to sessionUser's own
// email. A token for any other address is rejected even when it is well formed.
// Decode failures, expired tokens included, match ErrInvalidToken.
func (f *ConfirmationFlow) Confirm(ctx context.Context, sessionUser *entity.User, token string) (*entity.User, error) {
	if sessionUser.IsConfirmed {
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultAlready).Inc()
		return nil, ErrAlreadyConfirmed
	}

	email, err := f.tokens.Decode(token)
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultInvalid).Inc()
		if errors.Is(err, ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if email != sessionUser.Email {
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultInvalid).Inc()
		return nil, ErrInvalidToken
	}

	var confirmed *entity.User
	err = f.users.Atomic(ctx, func(store repository.UserStore) error {
		user, err := store.FindByID(ctx, sessionUser.ID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.IsConfirmed {
			return ErrAlreadyConfirmed
		}
		if user.Email != email {
			return ErrInvalidToken
		}

		user.IsConfirmed = true
		user.ConfirmedOn = sql.NullTime{Time: f.clock.Now(), Valid: true}
		if err := store.Update(ctx, user); err != nil {
			return err
		}
		confirmed = user
		return nil
	})
	switch {
	case err == nil:
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultConfirmed).Inc()
		return confirmed, nil
	case errors.Is(err, ErrAlreadyConfirmed):
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultAlready).Inc()
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound):
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultInvalid).Inc()
	default:
		metrics.ConfirmationsTotal.WithLabelValues(confirmResultError).Inc()
	}
	return nil, err
}
