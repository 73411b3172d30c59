// Package salt derives the session cookie keys from server.secret_key and a per-install salt file.
package salt

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/crypto/pbkdf2"
)

const (
	FileKey = "salt_file"

	saltLength   = 32
	keyLength    = 32
	version      = 1
	fallbackName = ".leaddesk_salt"

	iterations     = 600000
	iterationsTest = 15
)

// Keys is the derived key material for signing and encrypting cookies.
type Keys struct {
	Signing    []byte
	Encryption []byte
}

var (
	loaded   *payload
	keys     *Keys
	saltPath string

	lock sync.Mutex
)

func resolvePath() string {
	if p := os.Getenv("SALT_FILE"); p != "" {
		return p
	}

	if p := viper.GetString(FileKey); p != "" {
		return p
	}

	return filepath.Join(filepath.Dir(viper.ConfigFileUsed()), fallbackName)
}

// Load reads the salt file (creating it when missing) and derives the cookie keys. It only does work once per process.
func Load() *Keys {
	lock.Lock()
	defer lock.Unlock()

	if keys != nil {
		return keys
	}

	path := resolvePath()
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded = create(path)
	case err != nil:
		log.Warn().Err(err).Str("salt_path", path).Msg("could not stat salt file, regenerating")
		loaded = create(path)
	default:
		if info.Mode().Perm() != 0600 {
			log.Warn().Str("salt_path", path).Msg("salt file has improper permissions, should be 0600")
		}
		loaded = read(path)
	}
	saltPath = path

	secret := []byte(viper.GetString("server.secret_key"))
	count := iterationCount()

	start := time.Now()
	keys = &Keys{
		Signing:    pbkdf2.Key(secret, loaded.Signing, count, keyLength, sha256.New),
		Encryption: pbkdf2.Key(secret, loaded.Encryption, count, keyLength, sha256.New),
	}
	log.Info().Int("iteration_count", count).Dur("key_generation_time", time.Since(start)).Msg("derived cookie keys")

	return keys
}

func Path() string {
	Load()

	lock.Lock()
	defer lock.Unlock()
	return saltPath
}

// Forget drops the cached keys so the next Load starts over.
func Forget() {
	lock.Lock()
	defer lock.Unlock()

	loaded = nil
	keys = nil
	saltPath = ""
}

func create(path string) *payload {
	signing := securecookie.GenerateRandomKey(saltLength)
	encryption := securecookie.GenerateRandomKey(saltLength)
	if signing == nil || encryption == nil {
		log.Fatal().Msg("could not generate salt")
	}

	p := &payload{
		Version:    version,
		Signing:    signing,
		Encryption: encryption,
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		log.Fatal().Err(err).Msg("could not encode salt")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.Warn().Err(err).Str("salt_path", path).Msg("could not create salt directory; sessions will not survive a restart")
	}

	if err := os.WriteFile(path, encoded, 0600); err != nil {
		log.Warn().Err(err).Str("salt_path", path).Msg("could not write salt file; sessions will not survive a restart")
	} else {
		log.Info().Str("salt_path", path).Msg("generated and wrote salt")
	}

	return p
}

func read(path string) *payload {
	data, err := os.ReadFile(path) // #nosec G304 -- path is configurable
	if err != nil {
		log.Warn().Err(err).Str("salt_path", path).Msg("could not read salt, generating new one")
		return create(path)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("salt_path", path).Msg("could not decode salt, generating new one")
		return create(path)
	}

	if p.Version != version || len(p.Signing) == 0 || len(p.Encryption) == 0 {
		log.Warn().Int("version", p.Version).Int("expected_version", version).Msg("unusable salt file, generating new one")
		return create(path)
	}

	log.Debug().Str("salt_path", path).Msg("loaded salt")
	return &p
}

func iterationCount() int {
	if testing.Testing() {
		return iterationsTest
	}
	return iterations
}
