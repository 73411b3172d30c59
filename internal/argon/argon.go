// Package argon produces and checks argon2id password hashes in the PHC string format.
package argon

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

const (
	MemoryKey      = "security.argon2.memory"
	IterationKey   = "security.argon2.iterations"
	ParallelismKey = "security.argon2.parallelism"
	SaltLengthKey  = "security.argon2.salt_length"
	KeyLengthKey   = "security.argon2.key_length"

	DisableMigrateKey = "security.disable_migrate_on_login"

	DefaultMemory      = 64 * 1024
	DefaultIterations  = 3
	DefaultParallelism = 2
	DefaultSaltLength  = 16
	DefaultKeyLength   = 32
)

var (
	ErrInvalidHash    = errors.New("argon: Verify: invalid password hash")
	ErrInvalidVersion = errors.New("argon: Verify: incorrect version of argon2")
	ErrWrongPassword  = errors.New("argon: Verify: wrong password")
	ErrSaltGeneration = errors.New("argon: Hash: could not generate salt")
)

func init() {
	viper.SetDefault(MemoryKey, DefaultMemory)
	viper.SetDefault(IterationKey, DefaultIterations)
	viper.SetDefault(ParallelismKey, DefaultParallelism)
	viper.SetDefault(SaltLengthKey, DefaultSaltLength)
	viper.SetDefault(KeyLengthKey, DefaultKeyLength)
}

// Params are the tunable argon2id cost settings.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultParams() Params {
	return Params{
		Memory:      DefaultMemory,
		Iterations:  DefaultIterations,
		Parallelism: DefaultParallelism,
		SaltLength:  DefaultSaltLength,
		KeyLength:   DefaultKeyLength,
	}
}

// ParamsFromConfig reads the configured cost settings. Anything unset or out of range falls back to the default.
func ParamsFromConfig() Params {
	p := DefaultParams()

	if m := viper.GetUint32(MemoryKey); m != 0 {
		p.Memory = m
	}
	if i := viper.GetUint32(IterationKey); i != 0 {
		p.Iterations = i
	}
	if raw := viper.GetInt(ParallelismKey); raw != 0 {
		par, err := safeCastUint8(raw)
		if err != nil {
			log.Warn().Err(err).Int("parallelism", raw).Msg("invalid argon configuration, using default parallelism")
		} else {
			p.Parallelism = par
		}
	}
	if s := viper.GetUint32(SaltLengthKey); s != 0 {
		p.SaltLength = s
	}
	if k := viper.GetUint32(KeyLengthKey); k != 0 {
		p.KeyLength = k
	}

	return p
}

// GenerateFromPassword hashes with the configured parameters.
func GenerateFromPassword(password string) (string, error) {
	return Hash(password, ParamsFromConfig())
}

func Hash(password string, p Params) (string, error) {
	log.Debug().
		Uint32("iteration_count", p.Iterations).
		Uint32("memory_count", p.Memory).
		Uint8("parallelism_count", p.Parallelism).
		Uint32("key_length", p.KeyLength).
		Uint32("salt_length", p.SaltLength).
		Msg("hashing password with argon2")

	generatedSalt := securecookie.GenerateRandomKey(int(p.SaltLength))
	if generatedSalt == nil {
		log.Error().Uint32("salt_length_bytes", p.SaltLength).Msg("could not generate random salt")
		return "", ErrSaltGeneration
	}

	hash := argon2.IDKey([]byte(password), generatedSalt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(generatedSalt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

func IsArgonHash(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$argon2id$")
}

// NeedsMigration reports whether a stored hash should be replaced by one made with the current parameters.
func NeedsMigration(encodedHash string) bool {
	if viper.GetBool(DisableMigrateKey) {
		return false
	}

	return NeedsRehash(encodedHash, ParamsFromConfig())
}

// NeedsRehash reports whether encodedHash is anything other than an argon2id hash made with want.
func NeedsRehash(encodedHash string, want Params) bool {
	if !IsArgonHash(encodedHash) {
		return true
	}

	decoded, err := decode(encodedHash)
	if err != nil {
		log.Warn().Err(err).Msg("invalid argon2 hash")
		return true
	}

	return decoded.params != want
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encodedHash string) (*decodedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidHash
	}

	if version != argon2.Version {
		log.Warn().Int("expected_version", argon2.Version).Int("hash_version", version).Msg("invalid argon2 version")
		return nil, ErrInvalidVersion
	}

	d := &decodedHash{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.params.Memory, &d.params.Iterations, &d.params.Parallelism); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}

	var err error
	d.salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	d.params.SaltLength, err = safeCastUint32(len(d.salt))
	if err != nil {
		return nil, fmt.Errorf("%w: salt length: %w", ErrInvalidHash, err)
	}

	d.key, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}
	d.params.KeyLength, err = safeCastUint32(len(d.key))
	if err != nil {
		return nil, fmt.Errorf("%w: key length: %w", ErrInvalidHash, err)
	}

	if d.params.KeyLength == 0 || d.params.Iterations == 0 || d.params.Parallelism == 0 {
		return nil, ErrInvalidHash
	}

	return d, nil
}

// Verify checks password against encodedHash in constant time. A mismatch is ErrWrongPassword.
func Verify(password, encodedHash string) error {
	d, err := decode(encodedHash)
	if err != nil {
		return err
	}

	calcedHash := argon2.IDKey([]byte(password), d.salt, d.params.Iterations, d.params.Memory, d.params.Parallelism, d.params.KeyLength)

	if subtle.ConstantTimeCompare(d.key, calcedHash) != 1 {
		return ErrWrongPassword
	}

	return nil
}
