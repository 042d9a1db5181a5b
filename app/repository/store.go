package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/entity"
)

var (
	// ErrDuplicateKey is returned by Create when the email is already taken.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by the memory store when Update names an unknown user.
	// MySQL reports zero affected rows for unchanged rows too, so UserRepository
	// cannot tell the two apart and returns nil.
	ErrNotFound = errors.New("user not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserStore persists accounts. Lookups return (nil, nil) when nothing matches.
//
// Atomic runs fn against a view of the store in which every user read through
// FindByEmail or FindByID stays locked until fn returns. Changes made through
// the view are committed only if fn returns nil.
type UserStore interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Atomic(ctx context.Context, fn func(store UserStore) error) error
	Ping(ctx context.Context) error
}
