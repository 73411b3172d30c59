// Package ainit sets up logging before anything else runs. Import it first from main.
package ainit

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/config"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().
		Str("arch", runtime.GOARCH).
		Str("os", runtime.GOOS).
		Str("go_version", strings.TrimPrefix(runtime.Version(), "go")).
		Str("git_commit", revision()).
		Msg("leaddesk starting")

	level := logLevel(config.IsProductionMode(), config.IsDebugLoggingEnabled())
	zerolog.SetGlobalLevel(level)
	log.WithLevel(level).Str("environment", os.Getenv("ENVIRONMENT")).Stringer("level", level).Msg("log level set")
}

// logLevel is trace everywhere except production, where DEBUG_LOG=true is needed to get it.
func logLevel(production bool, debugEnabled bool) zerolog.Level {
	if production && !debugEnabled {
		return zerolog.InfoLevel
	}
	return zerolog.TraceLevel
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
