// Package account holds staff accounts and the Verifier that authenticates them, counts failed logins and locks
// accounts out after repeated failures.
package account

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Account is the stored record. It is only ever handed out of this package as a Profile.
type Account struct {
	ID                string
	Username          string
	Email             string
	FullName          string
	Role              Role
	PasswordHash      string
	Active            bool
	FailedAttempts    int
	LockedUntil       *time.Time
	LastLogin         *time.Time
	CreatedAt         time.Time
	PasswordChangedAt time.Time
}

// Profile is an Account without its password hash.
type Profile struct {
	ID                string
	Username          string
	Email             string
	FullName          string
	Role              Role
	Active            bool
	FailedAttempts    int
	LockedUntil       *time.Time
	LastLogin         *time.Time
	CreatedAt         time.Time
	PasswordChangedAt time.Time
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsLocked reports whether the profile carries a lock that is still in force at now.
func (p Profile) IsLocked(now time.Time) bool {
	return p.LockedUntil != nil && p.LockedUntil.After(now)
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		FullName:          a.FullName,
		Role:              a.Role,
		Active:            a.Active,
		FailedAttempts:    a.FailedAttempts,
		LockedUntil:       a.LockedUntil,
		LastLogin:         a.LastLogin,
		CreatedAt:         a.CreatedAt,
		PasswordChangedAt: a.PasswordChangedAt,
	}
}

// AccountUpdate is a partial update. Nil fields are left untouched. ClearLock removes any lock and wins over
// LockedUntil.
type AccountUpdate struct {
	PasswordHash      *string
	PasswordChangedAt *time.Time
	Active            *bool
	FailedAttempts    *int
	LockedUntil       *time.Time
	ClearLock         bool
	LastLogin         *time.Time
}

type NewAccount struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     Role
}

// ImportedAccount is an account brought over from another system with its password hash already computed.
type ImportedAccount struct {
	Username     string
	PasswordHash string
	FullName     string
	Email        string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

type BootstrapAdmin struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Store is the persistence the Verifier needs. Lookups return nil, nil when nothing matches.
type Store interface {
	FindAccountByUsername(ctx context.Context, username string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	InsertAccount(ctx context.Context, a *Account) (string, error)
	UpdateAccountFields(ctx context.Context, username string, update AccountUpdate) (int64, error)
	// RecordFailedLogin adds one to the failure counter and, when the new count reaches threshold, sets the lock to
	// lockUntil, all in one atomic step. It returns the new count, or 0 when no account matched.
	RecordFailedLogin(ctx context.Context, username string, threshold int, lockUntil time.Time) (int, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
}
