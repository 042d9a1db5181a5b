package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID                uint64
	Email             string
	PasswordHash      string
	IsConfirmed       bool
	ConfirmedOn       sql.NullTime
	PendingResetToken sql.NullString
	RegisteredOn      time.Time
}

// HasPendingReset reports whether a password reset was requested and not yet consumed.
func (u *User) HasPendingReset() bool {
	return u.PendingResetToken.Valid
}
