// Package sqlite is the SQLite implementation of db.DB.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/db"

	_ "github.com/mattn/go-sqlite3"
)

func enableForeignKeys(conn *sqlx.DB) error {
	_, err := conn.Exec("PRAGMA foreign_keys = ON")
	return err
}

// prepareConn runs per-connection setup on a freshly opened database.
var prepareConn = enableForeignKeys

type SQLite struct {
	db *sqlx.DB
}

var _ db.DB = (*SQLite)(nil)

func NewSQLiteFromConfig() (*SQLite, error) {
	config.Lock.RLock()
	file := viper.GetString(config.KeyDBFile)
	config.Lock.RUnlock()

	if file == "" {
		return nil, errors.New("db: NewSQLiteFromConfig: db file not set")
	}

	return NewSQLite(file)
}

// NewSQLite opens (creating if needed) the database at file and migrates it to the current schema.
func NewSQLite(file string) (*SQLite, error) {
	absDBFile, err := filepath.Abs(file)
	if err != nil {
		log.Warn().Str("raw_db_file", file).Err(err).Msg("could not get db file absolute path")
	}

	log.Info().Str("raw_db_file", file).Str("abs_db_file", absDBFile).Msg("starting database initialization")

	database, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("db: NewSQLite: could not open db: %w", err)
	}

	version, err := migrateDatabase(database)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("db: NewSQLite: could not migrate: %w", err)
	}

	// the migrator closes the handle it was given
	conn, err := sqlx.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("db: NewSQLite: could not open db: %w", err)
	}

	// one connection keeps PRAGMA foreign_keys in effect for every statement
	conn.SetMaxOpenConns(1)

	if err := prepareConn(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db: NewSQLite: could not enable foreign keys: %w", err)
	}

	log.Info().Str("abs_db_file", absDBFile).Uint("schema_version", version).Msg("finished database initialization")

	return &SQLite{db: conn}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CountAccounts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM accounts"); err != nil {
		return 0, fmt.Errorf("sqlite: CountAccounts: %w", err)
	}
	return count, nil
}

// Timestamps are stored as unix milliseconds.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
