package service

import (
	"context"
	"errors"
	"sync"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/metrics"
	"github.com/vibast-solutions/ms-go-account/app/repository"
)

// CredentialService registers accounts, authenticates logins and changes passwords.
type CredentialService struct {
	users  repository.UserStore
	hasher PasswordHasher
	clock  Clock

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(users repository.UserStore, hasher PasswordHasher, clock Clock) *CredentialService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CredentialService{
		users:  users,
		hasher: hasher,
		clock:  clock,
	}
}

// Register creates an unconfirmed user. The email is stored verbatim.
func (s *CredentialService) Register(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" || password == "" {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrMissingCredentials
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if existing != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrDuplicateEmail
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, ErrPasswordTooLong) {
			result = metrics.ResultFailure
		}
		metrics.RegistrationsTotal.WithLabelValues(result).Inc()
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hashed,
		IsConfirmed:  false,
		RegisteredOn: s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return nil, ErrDuplicateEmail
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return user, nil
}

// Authenticate returns the user whose stored hash matches password. Unknown
// emails and wrong passwords both yield ErrAuthFailure.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if user == nil {
		// Spend the same hashing work as a real comparison.
		s.hasher.Verify(password, s.dummy())
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrAuthFailure
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrAuthFailure
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return user, nil
}

// ChangePassword replaces the stored hash of userID. Old password is not required.
func (s *CredentialService) ChangePassword(ctx context.Context, userID uint64, newPassword string) error {
	if newPassword == "" {
		return ErrMissingCredentials
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return s.users.Atomic(ctx, func(store repository.UserStore) error {
		user, err := store.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		user.PasswordHash = hashed
		return store.Update(ctx, user)
	})
}

func (s *CredentialService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("account-dummy-password")
	})
	return s.dummyHash
}
