package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	Lock sync.RWMutex

	initLock  sync.Mutex
	hasInit   bool
	initError error

	updateLock      sync.RWMutex
	updateListeners []func(fsnotify.Event)
)

func IsProductionMode() bool {
	return os.Getenv("ENVIRONMENT") == "prod"
}

func IsDebugLoggingEnabled() bool {
	return os.Getenv("DEBUG_LOG") == "true"
}

func Init() error {
	initLock.Lock()
	defer initLock.Unlock()

	if hasInit {
		return initError
	}

	Lock.Lock()
	defer Lock.Unlock()

	viper.SetEnvPrefix("LEADDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	configFilePath := os.Getenv("CONFIG_FILE_PATH")
	if configFilePath == "" {
		viper.SetConfigName("leaddesk")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(configFilePath)
	}

	hasInit = true

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// environment variables alone are enough to run, so keep going and let the caller decide
			log.Warn().Msg("no config file found; using defaults and environment only")
			initError = err
			return initError
		}

		log.Fatal().Str("config_file", viper.ConfigFileUsed()).Err(err).Msg("could not read config")
	}
	log.Info().Str("config_file_path", viper.ConfigFileUsed()).Msg("initialized configuration")

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("config file changed")

		updateLock.RLock()
		defer updateLock.RUnlock()
		for _, curr := range updateListeners {
			curr(e)
		}
	})
	viper.WatchConfig()

	return nil
}

func setDefaults() {
	viper.SetDefault(KeyServerPort, DefaultPort)
	viper.SetDefault(KeyDBKind, "sqlite")
	viper.SetDefault(KeyLeadsTimezone, DefaultLeadsTimezone)
	viper.SetDefault(KeyBootstrapAdminUsername, DefaultBootstrapAdminUsername)
	viper.SetDefault(KeyBootstrapAdminEmail, DefaultBootstrapAdminEmail)
	viper.SetDefault(KeyBootstrapAdminFullName, DefaultBootstrapAdminFullName)
}

// RegisterForUpdates adds a callback that runs every time the config file changes on disk.
func RegisterForUpdates(f func(event fsnotify.Event)) {
	updateLock.Lock()
	defer updateLock.Unlock()

	updateListeners = append(updateListeners, f)
}

func ValidateConfig() []string {
	var errorsFound []string

	if dbKind := viper.GetString(KeyDBKind); dbKind != "sqlite" {
		log.Error().Str("db.kind", dbKind).Msg("invalid db kind; must be sqlite")
		errorsFound = append(errorsFound, "invalid `db.kind`; must be `sqlite`")
	}

	if viper.GetString(KeyDBFile) == "" {
		log.Error().Msg("db.file is not set")
		errorsFound = append(errorsFound, "`db.file` is not set")
	}

	if secret := viper.GetString(KeySecretKey); secret == "" {
		log.Error().Msg("server.secret_key is not set")
		errorsFound = append(errorsFound, "`server.secret_key` is not set")
	} else if len(secret) < 16 {
		log.Error().Int("length", len(secret)).Msg("server.secret_key is too short")
		errorsFound = append(errorsFound, "`server.secret_key` must be at least 16 characters")
	}

	if tz := viper.GetString(KeyLeadsTimezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			log.Error().Err(err).Str("timezone", tz).Msg("leads.timezone is not a valid location")
			errorsFound = append(errorsFound, "`leads.timezone` is not a valid IANA time zone")
		}
	}

	if viper.GetBool(KeyTLSEnabled) {
		if viper.GetString(KeyTLSCertFile) == "" || viper.GetString(KeyTLSKeyFile) == "" {
			log.Error().Msg("tls is enabled but cert or key file is missing")
			errorsFound = append(errorsFound, "`server.tls.cert_file` and `server.tls.key_file` are required when TLS is enabled")
		}
	}

	return errorsFound
}

// Location is the zone leads are stamped and displayed in.
func Location() *time.Location {
	tz := viper.GetString(KeyLeadsTimezone)
	if tz == "" {
		tz = DefaultLeadsTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn().Err(err).Str("timezone", tz).Msg("could not load time zone, falling back to UTC")
		return time.UTC
	}

	return loc
}
