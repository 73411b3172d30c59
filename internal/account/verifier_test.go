package account

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evolutecode/leaddesk/internal/argon"
)

var testParams = argon.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func makeTestVerifier(t *testing.T, mutators ...func(*Settings)) (*Verifier, *memStore, *testClock) {
	t.Helper()

	s := Settings{Hash: testParams}
	for _, m := range mutators {
		m(&s)
	}

	store := newMemStore()
	clock := &testClock{now: time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)}
	return NewVerifier(store, s, WithClock(clock.Now)), store, clock
}

func createAlice(t *testing.T, v *Verifier) *Profile {
	t.Helper()

	p, err := v.CreateAccount(context.Background(), NewAccount{
		Username: "alice",
		Password: "Secret1",
		FullName: "Alice Example",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	return p
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active staff account", func(t *testing.T) {
		v, store, clock := makeTestVerifier(t)

		p := createAlice(t, v)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "alice", p.Username)
		assert.Equal(t, RoleStaff, p.Role)
		assert.True(t, p.Active)
		assert.Equal(t, clock.now, p.CreatedAt)

		stored := store.get("alice")
		require.NotNil(t, stored)
		assert.Equal(t, 0, stored.FailedAttempts)
		assert.Nil(t, stored.LockedUntil)
		assert.Regexp(t, `^\$argon2id\$`, stored.PasswordHash)
		assert.NotContains(t, stored.PasswordHash, "Secret1")
	})

	t.Run("duplicate username", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)

		_, err := v.CreateAccount(ctx, NewAccount{Username: "alice", Password: "Secret2", Email: "other@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("duplicate contact ignores case", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)

		_, err := v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "Secret2", Email: " ALICE@example.com "})
		assert.ErrorIs(t, err, ErrDuplicateContact)
	})

	t.Run("username is checked before contact", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)

		_, err := v.CreateAccount(ctx, NewAccount{Username: "alice", Password: "Secret2", Email: "alice@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("short password", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)

		_, err := v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "12345", Email: "bob@example.com"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		assert.Nil(t, store.get("bob"))
	})

	t.Run("missing fields", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)

		_, err := v.CreateAccount(ctx, NewAccount{Username: " ", Password: "Secret1", Email: "bob@example.com"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "Secret1"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown role", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)

		_, err := v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "Secret1", Email: "b@example.com", Role: "root"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("store failure", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		store.failWith = errBoom

		_, err := v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "Secret1", Email: "b@example.com"})
		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("correct password", func(t *testing.T) {
		v, store, clock := makeTestVerifier(t)
		createAlice(t, v)

		p, err := v.Authenticate(ctx, "alice", "Secret1")
		require.NoError(t, err)
		assert.Equal(t, "alice", p.Username)
		require.NotNil(t, p.LastLogin)
		assert.Equal(t, clock.now, *p.LastLogin)

		stored := store.get("alice")
		assert.Equal(t, 0, stored.FailedAttempts)
		assert.Nil(t, stored.LockedUntil)
		require.NotNil(t, stored.LastLogin)
	})

	t.Run("wrong password counts attempts", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)

		for i := 1; i <= 4; i++ {
			_, err := v.Authenticate(ctx, "alice", "wrong")
			var ice *InvalidCredentialsError
			require.ErrorAs(t, err, &ice)
			assert.Equal(t, i, ice.Attempts)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		}

		assert.Equal(t, 4, store.get("alice").FailedAttempts)
		assert.Nil(t, store.get("alice").LockedUntil)
	})

	t.Run("fifth failure locks and lock beats the right password", func(t *testing.T) {
		v, store, clock := makeTestVerifier(t)
		createAlice(t, v)

		for i := 0; i < 4; i++ {
			_, err := v.Authenticate(ctx, "alice", "wrong")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}

		_, err := v.Authenticate(ctx, "alice", "wrong")
		var locked *AccountLockedError
		require.ErrorAs(t, err, &locked)
		assert.Equal(t, clock.now.Add(15*time.Minute), locked.Until)
		assert.True(t, locked.JustLocked)

		stored := store.get("alice")
		assert.Equal(t, 5, stored.FailedAttempts)
		require.NotNil(t, stored.LockedUntil)

		p, err := v.Authenticate(ctx, "alice", "Secret1")
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrAccountLocked)
		require.ErrorAs(t, err, &locked)
		assert.False(t, locked.JustLocked, "refusal of an existing lock")

		// a locked account does not count further attempts
		assert.Equal(t, 5, store.get("alice").FailedAttempts)
	})

	t.Run("lock expires", func(t *testing.T) {
		v, store, clock := makeTestVerifier(t)
		createAlice(t, v)

		for i := 0; i < 5; i++ {
			_, _ = v.Authenticate(ctx, "alice", "wrong")
		}

		clock.Advance(15*time.Minute + time.Second)

		p, err := v.Authenticate(ctx, "alice", "Secret1")
		require.NoError(t, err)
		assert.Equal(t, 0, p.FailedAttempts)
		assert.Nil(t, store.get("alice").LockedUntil)
	})

	t.Run("failure after an expired lock locks again", func(t *testing.T) {
		v, _, clock := makeTestVerifier(t)
		createAlice(t, v)

		for i := 0; i < 5; i++ {
			_, _ = v.Authenticate(ctx, "alice", "wrong")
		}
		clock.Advance(16 * time.Minute)

		_, err := v.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("permanent lock never expires", func(t *testing.T) {
		v, _, clock := makeTestVerifier(t, func(s *Settings) { s.PermanentLock = true })
		createAlice(t, v)

		for i := 0; i < 5; i++ {
			_, _ = v.Authenticate(ctx, "alice", "wrong")
		}
		clock.Advance(24 * time.Hour)

		_, err := v.Authenticate(ctx, "alice", "Secret1")
		assert.ErrorIs(t, err, ErrAccountLocked)

		require.NoError(t, v.AdminResetPassword(ctx, "alice", "NewSecret"))
		_, err = v.Authenticate(ctx, "alice", "NewSecret")
		assert.NoError(t, err)
	})

	t.Run("unknown user looks like a wrong password", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)

		_, ghostErr := v.Authenticate(ctx, "ghost", "anything")
		_, wrongErr := v.Authenticate(ctx, "alice", "anything")

		assert.IsType(t, &InvalidCredentialsError{}, ghostErr)
		assert.IsType(t, &InvalidCredentialsError{}, wrongErr)
		assert.Equal(t, ghostErr.Error(), wrongErr.Error())
	})

	t.Run("disabled account refused even with the right password", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)
		require.NoError(t, v.Deactivate(ctx, "alice"))

		_, err := v.Authenticate(ctx, "alice", "Secret1")
		assert.ErrorIs(t, err, ErrAccountDisabled)

		_, err = v.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrAccountDisabled)
		assert.Equal(t, 0, store.get("alice").FailedAttempts)
	})

	t.Run("success resets earlier failures", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)

		for i := 0; i < 3; i++ {
			_, _ = v.Authenticate(ctx, "alice", "wrong")
		}
		_, err := v.Authenticate(ctx, "alice", "Secret1")
		require.NoError(t, err)

		assert.Equal(t, 0, store.get("alice").FailedAttempts)
	})

	t.Run("profile never carries the hash", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)

		p, err := v.Authenticate(ctx, "alice", "Secret1")
		require.NoError(t, err)

		assert.NotContains(t, fmt.Sprintf("%+v", *p), store.get("alice").PasswordHash)
	})

	t.Run("store failure on lookup", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		store.failWith = errBoom

		_, err := v.Authenticate(ctx, "alice", "Secret1")
		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "Authenticate", se.Op)
	})

	t.Run("legacy bcrypt hash is accepted and upgraded", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)

		legacy, err := bcrypt.GenerateFromPassword([]byte("Admin@123"), bcrypt.MinCost)
		require.NoError(t, err)

		require.NoError(t, v.ImportAccount(ctx, ImportedAccount{
			Username:     "admin",
			PasswordHash: string(legacy),
			Email:        "admin@evolutecode.com",
			Role:         RoleAdmin,
			Active:       true,
		}))

		_, err = v.Authenticate(ctx, "admin", "wrong-one")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		p, err := v.Authenticate(ctx, "admin", "Admin@123")
		require.NoError(t, err)
		assert.True(t, p.IsAdmin())

		upgraded := store.get("admin").PasswordHash
		assert.Regexp(t, `^\$argon2id\$`, upgraded)

		_, err = v.Authenticate(ctx, "admin", "Admin@123")
		assert.NoError(t, err)
	})

	t.Run("no upgrade when migration disabled", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t, func(s *Settings) { s.DisableMigrate = true })

		legacy, err := bcrypt.GenerateFromPassword([]byte("Admin@123"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, v.ImportAccount(ctx, ImportedAccount{Username: "admin", PasswordHash: string(legacy), Email: "a@b.c", Active: true}))

		_, err = v.Authenticate(ctx, "admin", "Admin@123")
		require.NoError(t, err)
		assert.Equal(t, string(legacy), store.get("admin").PasswordHash)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		v, store, clock := makeTestVerifier(t)
		createAlice(t, v)
		clock.Advance(time.Hour)

		require.NoError(t, v.ChangePassword(ctx, "alice", "Secret1", "Better2"))

		assert.Equal(t, clock.now, store.get("alice").PasswordChangedAt)

		_, err := v.Authenticate(ctx, "alice", "Better2")
		assert.NoError(t, err)
		_, err = v.Authenticate(ctx, "alice", "Secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong old password does not touch counters", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)

		err := v.ChangePassword(ctx, "alice", "nope", "Better2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, 0, store.get("alice").FailedAttempts)
	})

	t.Run("too short leaves hash unchanged", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)
		before := store.get("alice").PasswordHash

		err := v.ChangePassword(ctx, "alice", "Secret1", "abc")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		assert.Equal(t, before, store.get("alice").PasswordHash)
	})

	t.Run("counters are left alone on success", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)
		_, _ = v.Authenticate(ctx, "alice", "wrong")

		require.NoError(t, v.ChangePassword(ctx, "alice", "Secret1", "Better2"))
		assert.Equal(t, 1, store.get("alice").FailedAttempts)
	})

	t.Run("unknown account", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		assert.ErrorIs(t, v.ChangePassword(ctx, "ghost", "a", "bbbbbbbb"), ErrNotFound)
	})
}

func TestAdminResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("clears lock and counters", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		createAlice(t, v)

		for i := 0; i < 5; i++ {
			_, _ = v.Authenticate(ctx, "alice", "wrong")
		}
		require.NotNil(t, store.get("alice").LockedUntil)

		require.NoError(t, v.AdminResetPassword(ctx, "alice", "Fresh123"))

		stored := store.get("alice")
		assert.Equal(t, 0, stored.FailedAttempts)
		assert.Nil(t, stored.LockedUntil)

		_, err := v.Authenticate(ctx, "alice", "Fresh123")
		assert.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		assert.ErrorIs(t, v.AdminResetPassword(ctx, "ghost", "Fresh123"), ErrNotFound)
	})

	t.Run("minimum length still applies", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)
		assert.ErrorIs(t, v.AdminResetPassword(ctx, "alice", "x"), ErrPasswordTooShort)
	})
}

func TestDeactivateActivate(t *testing.T) {
	ctx := context.Background()
	v, store, _ := makeTestVerifier(t)
	createAlice(t, v)

	require.NoError(t, v.Deactivate(ctx, "alice"))
	assert.False(t, store.get("alice").Active)

	require.NoError(t, v.Activate(ctx, "alice"))
	assert.True(t, store.get("alice").Active)

	assert.ErrorIs(t, v.Deactivate(ctx, "ghost"), ErrNotFound)
	assert.ErrorIs(t, v.Activate(ctx, "ghost"), ErrNotFound)
}

func TestUsernamesAreTrimmed(t *testing.T) {
	ctx := context.Background()
	v, store, _ := makeTestVerifier(t)
	createAlice(t, v)

	require.NoError(t, v.ChangePassword(ctx, " alice ", "Secret1", "Better2"))
	_, err := v.Authenticate(ctx, "alice", "Better2")
	require.NoError(t, err)

	require.NoError(t, v.AdminResetPassword(ctx, "alice\t", "Fresh123"))
	_, err = v.Authenticate(ctx, " alice", "Fresh123")
	require.NoError(t, err)

	require.NoError(t, v.Deactivate(ctx, " alice"))
	assert.False(t, store.get("alice").Active)
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	v, _, _ := makeTestVerifier(t)
	createAlice(t, v)
	_, err := v.CreateAccount(ctx, NewAccount{Username: "bob", Password: "Secret2", Email: "bob@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	profiles, err := v.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alice", profiles[0].Username)
	assert.Equal(t, "bob", profiles[1].Username)
	assert.True(t, profiles[1].IsAdmin())
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	v, _, _ := makeTestVerifier(t)
	createAlice(t, v)

	p, err := v.Lookup(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice@example.com", p.Email)

	p, err = v.Lookup(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)

		created, err := v.EnsureAdmin(ctx, BootstrapAdmin{Username: "admin", Password: "Admin@123", Email: "admin@evolutecode.com", FullName: "Administrador"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, RoleAdmin, store.get("admin").Role)

		created, err = v.EnsureAdmin(ctx, BootstrapAdmin{Username: "admin", Password: "Admin@123", Email: "admin@evolutecode.com"})
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("generates a password when none is configured", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)

		created, err := v.EnsureAdmin(ctx, BootstrapAdmin{Username: "admin", Email: "admin@example.com"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, store.get("admin").PasswordHash)
	})
}

func TestImportAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown hash formats", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		err := v.ImportAccount(ctx, ImportedAccount{Username: "x", Email: "x@example.com", PasswordHash: "plaintext"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicates are rejected", func(t *testing.T) {
		v, _, _ := makeTestVerifier(t)
		createAlice(t, v)

		legacy, err := bcrypt.GenerateFromPassword([]byte("whatever1"), bcrypt.MinCost)
		require.NoError(t, err)

		err = v.ImportAccount(ctx, ImportedAccount{Username: "alice", Email: "new@example.com", PasswordHash: string(legacy)})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("keeps inactive flag", func(t *testing.T) {
		v, store, _ := makeTestVerifier(t)
		legacy, err := bcrypt.GenerateFromPassword([]byte("whatever1"), bcrypt.MinCost)
		require.NoError(t, err)

		require.NoError(t, v.ImportAccount(ctx, ImportedAccount{Username: "old", Email: "old@example.com", PasswordHash: string(legacy), Active: false}))
		assert.False(t, store.get("old").Active)

		_, err = v.Authenticate(ctx, "old", "whatever1")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestErrorTypes(t *testing.T) {
	locked := &AccountLockedError{Until: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC)}
	assert.ErrorIs(t, locked, ErrAccountLocked)
	assert.Equal(t, "account: account is locked until 2024-01-01T00:15:00Z", locked.Error())

	se := storeErr("Deactivate", errBoom)
	assert.ErrorIs(t, se, ErrStore)
	assert.ErrorIs(t, se, errBoom)
	assert.NotErrorIs(t, se, ErrNotFound)
}
