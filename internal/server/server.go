package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/db/sqlite"
	"github.com/evolutecode/leaddesk/internal/handlers"
	"github.com/evolutecode/leaddesk/internal/loginlimit"
	"github.com/evolutecode/leaddesk/internal/render"
	"github.com/evolutecode/leaddesk/internal/salt"
	"github.com/evolutecode/leaddesk/internal/trueip"
)

func RunServer() {
	render.Init()

	err := config.Init()
	var fileNotFoundError viper.ConfigFileNotFoundError
	if errors.As(err, &fileNotFoundError) {
		log.Warn().Msg("no config file found; run `leaddesk init-config` to write one")
	}

	configErrors := config.ValidateConfig()
	if configErrors != nil {
		log.Error().Strs("errors", configErrors).Msg("invalid configuration")
		config.RunErrorServer(configErrors)
		os.Exit(1)
	}

	salt.Load()
	trueip.Initialize()

	config.Lock.RLock()
	port := viper.GetInt(config.KeyServerPort)
	if port == 0 {
		log.Warn().Int("port", config.DefaultPort).Msg("no port specified, using default")
		port = config.DefaultPort
	}
	config.Lock.RUnlock()

	database, err := sqlite.NewSQLiteFromConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize database")
	}

	loginLimiter := loginlimit.NewIPLoginLimiter()
	submitLimiter := loginlimit.NewSubmissionLimiter()

	e := handlers.NewEnv(database, loginLimiter, submitLimiter)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	err = EnsureBootstrapAdmin(startupCtx, e.Accounts, BootstrapFromConfig())
	cancelStartup()
	if err != nil {
		log.Fatal().Err(err).Msg("could not set up initial admin account")
	}

	log.Info().Msg("services initialized")

	listenEnableDebugLogging()

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
		Handler:      e.BuildRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = serve(ctx, srv, tlsFromConfig())
	stop()
	if err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	loginLimiter.Close()
	submitLimiter.Close()

	log.Info().Msg("closing database")
	if err := database.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing database")
	}

	if err != nil {
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

type tlsFiles struct {
	cert string
	key  string
}

func tlsFromConfig() *tlsFiles {
	config.Lock.RLock()
	defer config.Lock.RUnlock()

	if !viper.GetBool(config.KeyTLSEnabled) {
		return nil
	}
	return &tlsFiles{
		cert: viper.GetString(config.KeyTLSCertFile),
		key:  viper.GetString(config.KeyTLSKeyFile),
	}
}

// serve runs srv until ctx is cancelled or the listener fails, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, tls *tlsFiles) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls != nil {
			log.Info().Str("addr", srv.Addr).Str("key_file", tls.key).Str("cert_file", tls.cert).Msg("starting with tls enabled")
			err = srv.ListenAndServeTLS(tls.cert, tls.key)
		} else {
			log.Info().Str("addr", srv.Addr).Msg("starting plain HTTP server")
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
