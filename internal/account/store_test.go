package account

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for exercising the Verifier.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	failWith error
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*Account{}}
}

func (m *memStore) get(username string) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.accounts[username]
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func (m *memStore) FindAccountByUsername(_ context.Context, username string) (*Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.get(username), nil
}

func (m *memStore) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertAccount(_ context.Context, a *Account) (string, error) {
	if m.failWith != nil {
		return "", m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[a.Username]; exists {
		return "", ErrDuplicateUsername
	}
	cp := *a
	cp.ID = uuid.NewString()
	m.accounts[a.Username] = &cp
	return cp.ID, nil
}

func (m *memStore) UpdateAccountFields(_ context.Context, username string, u AccountUpdate) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.accounts[username]
	if a == nil {
		return 0, nil
	}
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.PasswordChangedAt != nil {
		a.PasswordChangedAt = *u.PasswordChangedAt
	}
	if u.Active != nil {
		a.Active = *u.Active
	}
	if u.FailedAttempts != nil {
		a.FailedAttempts = *u.FailedAttempts
	}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		a.LockedUntil = &t
	}
	if u.ClearLock {
		a.LockedUntil = nil
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		a.LastLogin = &t
	}
	return 1, nil
}

func (m *memStore) RecordFailedLogin(_ context.Context, username string, threshold int, lockUntil time.Time) (int, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.accounts[username]
	if a == nil {
		return 0, nil
	}
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		t := lockUntil
		a.LockedUntil = &t
	}
	return a.FailedAttempts, nil
}

func (m *memStore) ListAccounts(_ context.Context) ([]*Account, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var ret []*Account
	for _, a := range m.accounts {
		cp := *a
		ret = append(ret, &cp)
	}
	slices.SortFunc(ret, func(a, b *Account) int {
		return strings.Compare(a.Username, b.Username)
	})
	return ret, nil
}

var errBoom = errors.New("disk on fire")
