package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/entity"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

const selectUserColumns = `
		SELECT id, email, password_hash, is_confirmed, confirmed_on, pending_reset_token, registered_on
		FROM users`

type UserRepository struct {
	conn      *sql.DB
	db        DBTX
	forUpdate bool
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{conn: db, db: db}
}

func (r *UserRepository) withTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{conn: r.conn, db: tx, forUpdate: true}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, password_hash, is_confirmed, confirmed_on, pending_reset_token, registered_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.IsConfirmed,
		user.ConfirmedOn,
		user.PendingResetToken,
		user.RegisteredOn,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateKey
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE email = ?`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE id = ?`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	if r.forUpdate {
		query += ` FOR UPDATE`
	}

	user := &entity.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsConfirmed,
		&user.ConfirmedOn,
		&user.PendingResetToken,
		&user.RegisteredOn,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			password_hash = ?,
			is_confirmed = ?,
			confirmed_on = ?,
			pending_reset_token = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		user.PasswordHash,
		user.IsConfirmed,
		user.ConfirmedOn,
		user.PendingResetToken,
		user.ID,
	)
	return err
}

func (r *UserRepository) Atomic(ctx context.Context, fn func(store UserStore) error) error {
	if r.forUpdate {
		return fn(r)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = fn(r.withTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}
