package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/util"
)

var baseTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "leaddesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func insertAccount(t *testing.T, s *SQLite, username string, email string) *account.Account {
	t.Helper()
	a := &account.Account{
		Username:          username,
		Email:             email,
		FullName:          "Test " + username,
		Role:              account.RoleStaff,
		PasswordHash:      "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		Active:            true,
		CreatedAt:         baseTime,
		PasswordChangedAt: baseTime,
	}
	id, err := s.InsertAccount(context.Background(), a)
	require.NoError(t, err)
	a.ID = id
	return a
}

func TestNewSQLiteFromConfig(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		_, err := NewSQLiteFromConfig()
		assert.Error(t, err)
	})

	t.Run("reopening an existing database", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		path := filepath.Join(t.TempDir(), "leaddesk.db")
		viper.Set("db.file", path)

		first, err := NewSQLiteFromConfig()
		require.NoError(t, err)
		insertAccount(t, first, "alice", "alice@example.com")
		require.NoError(t, first.Close())

		second, err := NewSQLiteFromConfig()
		require.NoError(t, err)
		defer second.Close()

		count, err := second.CountAccounts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMigrateDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaddesk.db")

	open := func() *sql.DB {
		conn, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		return conn
	}

	version, err := migrateDatabase(open())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	version, err = migrateDatabase(open())
	require.NoError(t, err, "an up to date schema is not an error")
	assert.Equal(t, uint(2), version)
}

func TestNewSQLite_SetupFailureClosesConnection(t *testing.T) {
	var opened *sqlx.DB
	prepareConn = func(conn *sqlx.DB) error {
		opened = conn
		return errors.New("no foreign keys for you")
	}
	t.Cleanup(func() {
		prepareConn = enableForeignKeys
	})

	_, err := NewSQLite(filepath.Join(t.TempDir(), "leaddesk.db"))
	assert.ErrorContains(t, err, "could not enable foreign keys")

	require.NotNil(t, opened)
	assert.ErrorContains(t, opened.Ping(), "database is closed")
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s := openTestDB(t)
		inserted := insertAccount(t, s, "alice", "alice@example.com")

		a, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, inserted.ID, a.ID)
		assert.Equal(t, "alice@example.com", a.Email)
		assert.Equal(t, account.RoleStaff, a.Role)
		assert.True(t, a.Active)
		assert.Nil(t, a.LockedUntil)
		assert.Nil(t, a.LastLogin)
		assert.True(t, baseTime.Equal(a.CreatedAt))

		byEmail, err := s.FindAccountByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, "alice", byEmail.Username)
	})

	t.Run("missing account is nil without error", func(t *testing.T) {
		s := openTestDB(t)

		a, err := s.FindAccountByUsername(ctx, "nobody")
		assert.NoError(t, err)
		assert.Nil(t, a)

		a, err = s.FindAccountByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("duplicates map to account errors", func(t *testing.T) {
		s := openTestDB(t)
		insertAccount(t, s, "alice", "alice@example.com")

		_, err := s.InsertAccount(ctx, &account.Account{Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: account.RoleStaff})
		assert.ErrorIs(t, err, account.ErrDuplicateUsername)

		_, err = s.InsertAccount(ctx, &account.Account{Username: "bob", Email: "alice@example.com", PasswordHash: "x", Role: account.RoleStaff})
		assert.ErrorIs(t, err, account.ErrDuplicateContact)
	})

	t.Run("partial update", func(t *testing.T) {
		s := openTestDB(t)
		insertAccount(t, s, "alice", "alice@example.com")

		login := baseTime.Add(time.Hour)
		matched, err := s.UpdateAccountFields(ctx, "alice", account.AccountUpdate{
			Active:         util.P(false),
			FailedAttempts: util.P(3),
			LockedUntil:    util.P(baseTime.Add(15 * time.Minute)),
			LastLogin:      &login,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		a, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, a.Active)
		assert.Equal(t, 3, a.FailedAttempts)
		require.NotNil(t, a.LockedUntil)
		assert.True(t, baseTime.Add(15*time.Minute).Equal(*a.LockedUntil))
		require.NotNil(t, a.LastLogin)
		assert.True(t, login.Equal(*a.LastLogin))
		assert.Equal(t, "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA", a.PasswordHash)

		_, err = s.UpdateAccountFields(ctx, "alice", account.AccountUpdate{ClearLock: true, LockedUntil: util.P(baseTime)})
		require.NoError(t, err)
		a, err = s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, a.LockedUntil)
	})

	t.Run("update of unknown account matches nothing", func(t *testing.T) {
		s := openTestDB(t)

		matched, err := s.UpdateAccountFields(ctx, "ghost", account.AccountUpdate{Active: util.P(true)})
		require.NoError(t, err)
		assert.Zero(t, matched)

		matched, err = s.UpdateAccountFields(ctx, "ghost", account.AccountUpdate{})
		require.NoError(t, err)
		assert.Zero(t, matched)
	})

	t.Run("list is sorted by username", func(t *testing.T) {
		s := openTestDB(t)
		insertAccount(t, s, "carol", "carol@example.com")
		insertAccount(t, s, "alice", "alice@example.com")
		insertAccount(t, s, "bob", "bob@example.com")

		accounts, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, "alice", accounts[0].Username)
		assert.Equal(t, "bob", accounts[1].Username)
		assert.Equal(t, "carol", accounts[2].Username)

		count, err := s.CountAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestRecordFailedLogin(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	insertAccount(t, s, "alice", "alice@example.com")
	lockUntil := baseTime.Add(15 * time.Minute)

	for i := 1; i < 5; i++ {
		attempts, err := s.RecordFailedLogin(ctx, "alice", 5, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)

		a, err := s.FindAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, a.LockedUntil, "locked after %d attempts", i)
	}

	attempts, err := s.RecordFailedLogin(ctx, "alice", 5, lockUntil)
	require.NoError(t, err)
	assert.Equal(t, 5, attempts)

	a, err := s.FindAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, a.LockedUntil)
	assert.True(t, lockUntil.Equal(*a.LockedUntil))

	attempts, err = s.RecordFailedLogin(ctx, "ghost", 5, lockUntil)
	require.NoError(t, err)
	assert.Zero(t, attempts)
}

func TestRecordFailedLogin_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	insertAccount(t, s, "alice", "alice@example.com")
	lockUntil := baseTime.Add(15 * time.Minute)

	const workers = 40
	results := make(chan int, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for range workers {
		wg.Go(func() {
			<-start
			attempts, err := s.RecordFailedLogin(ctx, "alice", 5, lockUntil)
			if err != nil {
				errs <- err
				return
			}
			results <- attempts
		})
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var seen []int
	for n := range results {
		seen = append(seen, n)
	}
	slices.Sort(seen)
	require.Len(t, seen, workers)
	for i, n := range seen {
		assert.Equal(t, i+1, n, "every failure gets its own count")
	}

	a, err := s.FindAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, workers, a.FailedAttempts)
	require.NotNil(t, a.LockedUntil)
	assert.True(t, lockUntil.Equal(*a.LockedUntil))
}

func sampleLead(id string, created time.Time) *lead.Lead {
	return &lead.Lead{
		ID:        id,
		Name:      "Lead " + id,
		Email:     id + "@example.com",
		Message:   "hello",
		Source:    lead.SourceForm,
		Status:    lead.StatusNew,
		Priority:  lead.PriorityMedium,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestLeads(t *testing.T) {
	ctx := context.Background()

	t.Run("insert get update", func(t *testing.T) {
		s := openTestDB(t)
		require.NoError(t, s.InsertLead(ctx, sampleLead("a", baseTime)))

		l, err := s.GetLead(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, "Lead a", l.Name)
		assert.Nil(t, l.NextContact)

		l.Status = lead.StatusQualified
		l.EstimatedValue = 4200
		l.NextContact = util.P(baseTime.Add(48 * time.Hour))
		matched, err := s.UpdateLead(ctx, l)
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		l, err = s.GetLead(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, lead.StatusQualified, l.Status)
		assert.Equal(t, int64(4200), l.EstimatedValue)
		require.NotNil(t, l.NextContact)
		assert.True(t, baseTime.Add(48*time.Hour).Equal(*l.NextContact))
	})

	t.Run("unknown lead", func(t *testing.T) {
		s := openTestDB(t)

		l, err := s.GetLead(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, l)

		matched, err := s.UpdateLead(ctx, sampleLead("nope", baseTime))
		assert.NoError(t, err)
		assert.Zero(t, matched)
	})

	t.Run("list newest first with status filter", func(t *testing.T) {
		s := openTestDB(t)
		require.NoError(t, s.InsertLead(ctx, sampleLead("old", baseTime)))
		require.NoError(t, s.InsertLead(ctx, sampleLead("new", baseTime.Add(time.Hour))))
		won := sampleLead("won", baseTime.Add(30*time.Minute))
		won.Status = lead.StatusWon
		require.NoError(t, s.InsertLead(ctx, won))

		all, err := s.ListLeads(ctx, lead.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "new", all[0].ID)
		assert.Equal(t, "won", all[1].ID)
		assert.Equal(t, "old", all[2].ID)

		onlyWon, err := s.ListLeads(ctx, lead.Filter{Status: lead.StatusWon})
		require.NoError(t, err)
		require.Len(t, onlyWon, 1)
		assert.Equal(t, "won", onlyWon[0].ID)
	})

	t.Run("notes are deleted with their lead", func(t *testing.T) {
		s := openTestDB(t)
		require.NoError(t, s.InsertLead(ctx, sampleLead("a", baseTime)))
		require.NoError(t, s.InsertNote(ctx, &lead.Note{ID: "n2", LeadID: "a", Author: "alice", Body: "second", CreatedAt: baseTime.Add(time.Minute)}))
		require.NoError(t, s.InsertNote(ctx, &lead.Note{ID: "n1", LeadID: "a", Author: "alice", Body: "first", CreatedAt: baseTime}))

		notes, err := s.ListNotes(ctx, "a")
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "first", notes[0].Body)
		assert.Equal(t, "second", notes[1].Body)

		matched, err := s.DeleteLead(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		notes, err = s.ListNotes(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, notes)

		matched, err = s.DeleteLead(ctx, "a")
		require.NoError(t, err)
		assert.Zero(t, matched)
	})

	t.Run("note for a missing lead violates the foreign key", func(t *testing.T) {
		s := openTestDB(t)

		err := s.InsertNote(ctx, &lead.Note{ID: "n1", LeadID: "ghost", Author: "alice", Body: "x", CreatedAt: baseTime})
		assert.Error(t, err)
	})

	t.Run("due before skips closed and future leads", func(t *testing.T) {
		s := openTestDB(t)

		overdue := sampleLead("overdue", baseTime)
		overdue.NextContact = util.P(baseTime.Add(-48 * time.Hour))
		today := sampleLead("today", baseTime)
		today.NextContact = util.P(baseTime)
		future := sampleLead("future", baseTime)
		future.NextContact = util.P(baseTime.Add(time.Hour))
		lost := sampleLead("lost", baseTime)
		lost.Status = lead.StatusLost
		lost.NextContact = util.P(baseTime.Add(-time.Hour))
		none := sampleLead("none", baseTime)

		for _, l := range []*lead.Lead{overdue, today, future, lost, none} {
			require.NoError(t, s.InsertLead(ctx, l))
		}

		due, err := s.ListLeadsDueBefore(ctx, baseTime)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "overdue", due[0].ID)
		assert.Equal(t, "today", due[1].ID)
	})
}
