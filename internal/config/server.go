package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/render"
)

// errorHandler answers every request with the configuration problems: JSON for API clients, a page for browsers.
func errorHandler(errorsFound []string) http.Handler {
	params := struct {
		ErrorsFound []string
	}{errorsFound}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			render.RenderJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":  "Serviço indisponível: configuração inválida.",
				"fields": errorsFound,
			})
			return
		}
		render.RenderStatus(w, http.StatusServiceUnavailable, "config_errors.gohtml", params)
	})
	mux.Handle("GET /static/", render.StaticFSHandler())

	return mux
}

// RunErrorServer serves the configuration problems on the normal port until the process is told to stop, so a
// misconfigured container explains itself instead of restarting in a loop.
func RunErrorServer(errorsFound []string) {
	Lock.RLock()
	port := viper.GetInt(KeyServerPort)
	Lock.RUnlock()
	if port == 0 {
		port = DefaultPort
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
		Handler:      errorHandler(errorsFound),
	}

	go func() {
		log.Warn().Int("port", port).Int("problems", len(errorsFound)).Msg("starting configuration error server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic().Err(err).Msg("error starting server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error shutting down configuration error server")
	}
}
