package account

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/secure/precis"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/evolutecode/leaddesk/internal/argon"
)

var (
	errWrongPassword = errors.New("account: wrong password")
	errUnusableHash  = errors.New("account: unusable password hash")
)

// cleanPassword applies the PRECIS OpaqueString profile. disablePrecis is an escape hatch for passwords stored before
// normalization that contain code points the profile rejects.
func cleanPassword(input string, disablePrecis bool) (string, error) {
	if disablePrecis {
		return input, nil
	}
	return precis.OpaqueString.String(input)
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

func passwordLength(password string) int {
	return utf8.RuneCountInString(password)
}

// checkHash compares a candidate against a stored hash. Legacy bcrypt hashes were made from the raw password, argon2id
// hashes from the normalized one.
func checkHash(raw string, cleaned string, hash string) error {
	if isBcryptHash(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errWrongPassword
		}
		if err != nil {
			log.Warn().Err(err).Msg("stored bcrypt hash is unusable")
			return errUnusableHash
		}
		return nil
	}

	err := argon.Verify(cleaned, hash)
	if errors.Is(err, argon.ErrWrongPassword) {
		return errWrongPassword
	}
	if err != nil {
		log.Warn().Err(err).Msg("stored argon2 hash is unusable")
		return errUnusableHash
	}

	return nil
}

// looksLikeHash accepts the hash formats checkHash understands.
func looksLikeHash(hash string) bool {
	if isBcryptHash(hash) {
		_, err := bcrypt.Cost([]byte(hash))
		return err == nil
	}
	return argon.IsArgonHash(hash)
}

func normalizeContact(email string) string {
	// transformers carry state, so each call gets its own chain
	chain := transform.Chain(norm.NFC, cases.Lower(language.Und))
	out, _, err := transform.String(chain, strings.TrimSpace(email))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(email))
	}
	return out
}
