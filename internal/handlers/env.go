package handlers

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/db"
	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/loginlimit"
	"github.com/evolutecode/leaddesk/internal/metrics"
	"github.com/evolutecode/leaddesk/internal/middlewares/securityheaders"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/render"
)

type Env struct {
	Database      db.DB
	Accounts      *account.Verifier
	Leads         *lead.Service
	LoginLimiter  loginlimit.Limiter
	SubmitLimiter loginlimit.Limiter
}

// NewEnv wires the verifier and lead service over database using the current configuration.
func NewEnv(database db.DB, loginLimiter loginlimit.Limiter, submitLimiter loginlimit.Limiter) *Env {
	return &Env{
		Database:      database,
		Accounts:      account.NewVerifierFromConfig(database),
		Leads:         lead.NewService(database),
		LoginLimiter:  loginLimiter,
		SubmitLimiter: submitLimiter,
	}
}

const (
	loginMessageNotLoggedIn = "not_logged_in"
	loginMessageLoggedOut   = "logged_out"
)

var validLoginMessages = map[string]string{
	loginMessageNotLoggedIn: "Faça login para continuar.",
	loginMessageLoggedOut:   "Você saiu da sua conta.",
}

func apiCORS() func(http.Handler) http.Handler {
	origins := viper.GetStringSlice(config.KeyCORSAllowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}

func (e *Env) BuildRouter() http.Handler {
	log.Info().Msg("setting up listeners")

	mux := http.NewServeMux()
	withCORS := apiCORS()

	mux.HandleFunc("GET /{$}", e.HandleIndex)
	mux.HandleFunc("POST /contact", e.HandleContactSubmit)

	mux.Handle("GET /api", withCORS(http.HandlerFunc(e.HandleAPIBanner)))
	mux.Handle("/api/leads", withCORS(http.HandlerFunc(e.HandleAPILeads)))

	mux.HandleFunc("GET /login", e.HandleLoginPage)
	mux.HandleFunc("POST /login", e.HandleLoginPost)
	mux.HandleFunc("GET /logout", e.HandleLogout)
	mux.HandleFunc("POST /logout", e.HandleLogout)

	mux.HandleFunc("GET /admin", e.HandleAdminPage)
	mux.HandleFunc("GET /admin/leads/{id}", e.HandleLeadPage)
	mux.HandleFunc("POST /admin/leads/{id}", e.HandleLeadUpdate)
	mux.HandleFunc("POST /admin/leads/{id}/notes", e.HandleLeadNote)
	mux.HandleFunc("POST /admin/leads/{id}/delete", e.HandleLeadDelete)
	mux.HandleFunc("DELETE /admin/leads/{id}", e.HandleLeadDelete)

	mux.HandleFunc("GET /admin/accounts", e.HandleAccountsPage)
	mux.HandleFunc("GET /admin/accounts/create", e.HandleCreateAccountPage)
	mux.HandleFunc("POST /admin/accounts/create", e.HandleCreateAccountPost)
	mux.HandleFunc("POST /admin/accounts/{username}/reset", e.HandleAccountReset)
	mux.HandleFunc("POST /admin/accounts/{username}/deactivate", e.HandleAccountDeactivate)
	mux.HandleFunc("POST /admin/accounts/{username}/activate", e.HandleAccountActivate)

	mux.HandleFunc("GET /account/password", e.HandlePasswordChangePage)
	mux.HandleFunc("POST /account/password", e.HandlePasswordChangePost)

	if !viper.GetBool(config.KeyMetricsDisabled) {
		mux.Handle("GET /metrics", metrics.Handler())
	} else {
		log.Info().Msg("metrics endpoint disabled")
	}

	mux.Handle("GET /static/", render.StaticFSHandler())

	sessionMiddleware := session.NewMiddleware(mux, e.Accounts)

	cop := http.NewCrossOriginProtection()
	cop.AddInsecureBypassPattern("/api/leads")

	handler := cop.Handler(sessionMiddleware)
	handler = metrics.Middleware(mux, handler)

	if !viper.GetBool(config.DisableSecurityHeaders) {
		handler = securityheaders.NewSecurityHeadersMiddleware(handler, viper.GetStringSlice(config.KeyFrameAncestors))
	} else {
		log.Warn().Msg("not enabling security headers")
	}

	return handler
}

// requireStaff returns the logged in profile. Anonymous visitors are sent to the login page and nil is returned.
func requireStaff(w http.ResponseWriter, r *http.Request) *account.Profile {
	u := session.GetUserFromRequest(r)
	if u == nil {
		http.Redirect(w, r, "/login?message="+loginMessageNotLoggedIn, http.StatusFound)
		return nil
	}
	return u
}

func requireAdmin(w http.ResponseWriter, r *http.Request) *account.Profile {
	u := requireStaff(w, r)
	if u == nil {
		return nil
	}
	if !u.IsAdmin() {
		log.Warn().Str("username", u.Username).Str("path", r.URL.Path).Msg("non-admin attempted admin action")
		http.Error(w, "você não tem acesso a esta página", http.StatusForbidden)
		return nil
	}
	return u
}
