package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/account"
)

const accountColumns = "id, username, email, full_name, role, password_hash, active, failed_attempts, locked_until, last_login, created_at, password_changed_at"

type accountRow struct {
	ID                string        `db:"id"`
	Username          string        `db:"username"`
	Email             string        `db:"email"`
	FullName          string        `db:"full_name"`
	Role              string        `db:"role"`
	PasswordHash      string        `db:"password_hash"`
	Active            bool          `db:"active"`
	FailedAttempts    int           `db:"failed_attempts"`
	LockedUntil       sql.NullInt64 `db:"locked_until"`
	LastLogin         sql.NullInt64 `db:"last_login"`
	CreatedAt         int64         `db:"created_at"`
	PasswordChangedAt int64         `db:"password_changed_at"`
}

func (r *accountRow) toAccount() *account.Account {
	return &account.Account{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		FullName:          r.FullName,
		Role:              account.Role(r.Role),
		PasswordHash:      r.PasswordHash,
		Active:            r.Active,
		FailedAttempts:    r.FailedAttempts,
		LockedUntil:       fromNullMillis(r.LockedUntil),
		LastLogin:         fromNullMillis(r.LastLogin),
		CreatedAt:         fromMillis(r.CreatedAt),
		PasswordChangedAt: fromMillis(r.PasswordChangedAt),
	}
}

func (s *SQLite) findAccount(ctx context.Context, column string, value string) (*account.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, "SELECT "+accountColumns+" FROM accounts WHERE "+column+" = ?", value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug().Str(column, value).Msg("account not found")
			return nil, nil
		}
		return nil, err
	}
	return row.toAccount(), nil
}

func (s *SQLite) FindAccountByUsername(ctx context.Context, username string) (*account.Account, error) {
	a, err := s.findAccount(ctx, "username", username)
	if err != nil {
		return nil, fmt.Errorf("sqlite: FindAccountByUsername: %w", err)
	}
	return a, nil
}

func (s *SQLite) FindAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	a, err := s.findAccount(ctx, "email", email)
	if err != nil {
		return nil, fmt.Errorf("sqlite: FindAccountByEmail: %w", err)
	}
	return a, nil
}

// uniqueViolation maps a UNIQUE constraint failure on accounts to the matching account error.
func uniqueViolation(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "accounts.username"):
		return account.ErrDuplicateUsername
	case strings.Contains(msg, "accounts.email"):
		return account.ErrDuplicateContact
	}
	return nil
}

func (s *SQLite) InsertAccount(ctx context.Context, a *account.Account) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id,
		a.Username,
		a.Email,
		a.FullName,
		string(a.Role),
		a.PasswordHash,
		a.Active,
		a.FailedAttempts,
		toNullMillis(a.LockedUntil),
		toNullMillis(a.LastLogin),
		toMillis(a.CreatedAt),
		toMillis(a.PasswordChangedAt),
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return "", dup
		}
		log.Error().Err(err).Str("username", a.Username).Msg("could not save account")
		return "", fmt.Errorf("sqlite: InsertAccount: %w", err)
	}

	return id, nil
}

func (s *SQLite) UpdateAccountFields(ctx context.Context, username string, u account.AccountUpdate) (int64, error) {
	var sets []string
	var args []any

	if u.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *u.PasswordHash)
	}
	if u.PasswordChangedAt != nil {
		sets = append(sets, "password_changed_at = ?")
		args = append(args, toMillis(*u.PasswordChangedAt))
	}
	if u.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, *u.Active)
	}
	if u.FailedAttempts != nil {
		sets = append(sets, "failed_attempts = ?")
		args = append(args, *u.FailedAttempts)
	}
	if u.ClearLock {
		sets = append(sets, "locked_until = NULL")
	} else if u.LockedUntil != nil {
		sets = append(sets, "locked_until = ?")
		args = append(args, toMillis(*u.LockedUntil))
	}
	if u.LastLogin != nil {
		sets = append(sets, "last_login = ?")
		args = append(args, toMillis(*u.LastLogin))
	}

	if len(sets) == 0 {
		// nothing to write, but callers still want to know if the account exists
		var count int64
		err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM accounts WHERE username = ?", username)
		if err != nil {
			return 0, fmt.Errorf("sqlite: UpdateAccountFields: %w", err)
		}
		return count, nil
	}

	args = append(args, username)
	res, err := s.db.ExecContext(ctx, "UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE username = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: UpdateAccountFields: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: UpdateAccountFields: %w", err)
	}

	if ra == 0 {
		log.Warn().Str("username", username).Msg("attempted to update; no rows changed")
	}

	return ra, nil
}

// RecordFailedLogin increments and conditionally locks in a single statement. SQLite evaluates every SET expression
// against the old row, so failed_attempts + 1 is the new count in both places.
func (s *SQLite) RecordFailedLogin(ctx context.Context, username string, threshold int, lockUntil time.Time) (int, error) {
	var attempts int
	err := s.db.QueryRowxContext(ctx, `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE locked_until END
		WHERE username = ?
		RETURNING failed_attempts`,
		threshold, toMillis(lockUntil), username).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("sqlite: RecordFailedLogin: %w", err)
	}
	return attempts, nil
}

func (s *SQLite) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+accountColumns+" FROM accounts ORDER BY username"); err != nil {
		return nil, fmt.Errorf("sqlite: ListAccounts: %w", err)
	}

	ret := make([]*account.Account, len(rows))
	for i := range rows {
		ret[i] = rows[i].toAccount()
	}
	return ret, nil
}
