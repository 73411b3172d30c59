//go:build !windows

package server

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// toggleTraceLogging flips between trace logging and the level the process started with.
func toggleTraceLogging(startLevel zerolog.Level) zerolog.Level {
	next := zerolog.TraceLevel
	if zerolog.GlobalLevel() == zerolog.TraceLevel {
		next = startLevel
	}
	zerolog.SetGlobalLevel(next)
	return next
}

// listenEnableDebugLogging toggles trace logging on each SIGUSR2, for looking at a misbehaving production instance.
func listenEnableDebugLogging() {
	startLevel := zerolog.GlobalLevel()
	if startLevel == zerolog.TraceLevel {
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGUSR2)

	go func() {
		for range c {
			level := toggleTraceLogging(startLevel)
			log.WithLevel(zerolog.InfoLevel).Str("level", level.String()).Msg("log level changed")
		}
	}()
}
