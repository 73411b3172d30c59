// Package pwmigrate upgrades stored password hashes to the current argon2id parameters after a successful login.
package pwmigrate

import (
	"context"

	"github.com/rs/zerolog/log"
)

// HashWriter persists a replacement hash for the same password. It must not touch the password change timestamp.
type HashWriter interface {
	WritePasswordHash(ctx context.Context, username string, hash string) error
}

// MigrateAccount computes a new hash with rehash and stores it. Only one migration per account runs at a time; a
// concurrent call for the same account returns false without doing anything.
func MigrateAccount(ctx context.Context, accountID string, username string, rehash func() (string, error), w HashWriter) bool {
	if !tryLockAccount(accountID) {
		log.Trace().Str("username", username).Msg("hash migration already running, ignoring")
		return false
	}
	defer unlockAccount(accountID)

	log.Warn().Str("username", username).Msg("password hash needs migration")

	hash, err := rehash()
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("unable to rehash password on login")
		return false
	}

	if err := w.WritePasswordHash(ctx, username, hash); err != nil {
		log.Error().Err(err).Str("username", username).Msg("could not persist migrated password hash")
		return false
	}

	log.Warn().Str("username", username).Msg("migrated password hash to current parameters")
	return true
}
