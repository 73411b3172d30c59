package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrateDatabase applies every pending migration and returns the resulting schema version.
func migrateDatabase(conn *sql.DB) (uint, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("db: migrateDatabase: migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("db: migrateDatabase: sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("db: migrateDatabase: migrate instance: %w", err)
	}
	defer m.Close()
	m.Log = migrationLogger{}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("db: migrateDatabase: reading version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error().Err(err).Uint("from_version", before).Msg("schema migration failed")
		return 0, fmt.Errorf("db: migrateDatabase: %w", err)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("db: migrateDatabase: reading version: %w", err)
	}
	if dirty {
		return after, fmt.Errorf("db: migrateDatabase: schema version %d is dirty", after)
	}

	if after == before {
		log.Debug().Uint("version", after).Msg("schema up to date")
	} else {
		log.Info().Uint("from_version", before).Uint("version", after).Msg("schema migrated")
	}
	return after, nil
}

type migrationLogger struct{}

var _ migrate.Logger = migrationLogger{}

func (migrationLogger) Printf(format string, v ...any) {
	log.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (migrationLogger) Verbose() bool { return false }
