package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/durations"
	"github.com/evolutecode/leaddesk/internal/loginlimit"
	"github.com/evolutecode/leaddesk/internal/metrics"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/render"
	"github.com/evolutecode/leaddesk/internal/trueip"
)

const (
	loginMessageParam = "message"

	loginErrInvalid     = "Usuário ou senha inválidos."
	loginErrDisabled    = "Esta conta está desativada. Fale com um administrador."
	loginErrPermanent   = "Esta conta foi bloqueada após várias tentativas sem sucesso. Fale com um administrador."
	loginErrUnavailable = "Não foi possível fazer login agora. Tente novamente em instantes."
)

type loginPageParams struct {
	Username string
	Error    string
	Message  string
}

func getMessageFromRequest(r *http.Request) string {
	return validLoginMessages[r.URL.Query().Get(loginMessageParam)]
}

func (e *Env) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session.GetUserFromRequest(r) != nil {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	render.Render(w, "login.gohtml", &loginPageParams{
		Message: getMessageFromRequest(r),
	})
}

func ipLockedMessage() string {
	return fmt.Sprintf("Muitas tentativas de login a partir deste endereço. Tente novamente em %s.", durations.RoundedUp(loginlimit.IPLockDuration()))
}

func (e *Env) lockedMessage(until *account.AccountLockedError) string {
	if e.Accounts.Settings().PermanentLock {
		return loginErrPermanent
	}
	return fmt.Sprintf("Esta conta foi bloqueada após várias tentativas sem sucesso. Tente novamente após %s.", formatTime(until.Until))
}

// markIPFailure counts a failed login against the source address and returns the message to show instead of
// errorMessage when the address just got locked out.
func (e *Env) markIPFailure(sourceIPKey string, errorMessage string) string {
	_, err := e.LoginLimiter.MarkAttempt(sourceIPKey)
	if errors.Is(err, loginlimit.ErrLocked) {
		return ipLockedMessage()
	} else if err != nil {
		log.Warn().Err(err).Str("source_ip_key", sourceIPKey).Msg("error when marking login failure")
	}
	return errorMessage
}

func (e *Env) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	sourceIP := trueip.Find(r)
	sourceIPKey := loginlimit.Key("ip", sourceIP)

	params := &loginPageParams{Username: username}

	if e.LoginLimiter.IsLocked(sourceIPKey) {
		log.Warn().Str("ip", sourceIP).Msg("login attempt from locked address")
		metrics.RecordLogin(metrics.LoginRateLimited)
		params.Error = ipLockedMessage()
		render.Render(w, "login.gohtml", params)
		return
	}

	p, err := e.Accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		var lockedErr *account.AccountLockedError
		switch {
		case errors.As(err, &lockedErr):
			metrics.RecordLogin(metrics.LoginLocked)
			if lockedErr.JustLocked {
				metrics.RecordLockout()
			}
			params.Error = e.markIPFailure(sourceIPKey, e.lockedMessage(lockedErr))
		case errors.Is(err, account.ErrAccountDisabled):
			metrics.RecordLogin(metrics.LoginDisabled)
			params.Error = e.markIPFailure(sourceIPKey, loginErrDisabled)
		case errors.Is(err, account.ErrInvalidCredentials):
			log.Info().Str("ip", sourceIP).Msg("invalid login")
			metrics.RecordLogin(metrics.LoginInvalid)
			params.Error = e.markIPFailure(sourceIPKey, loginErrInvalid)
		default:
			log.Error().Err(err).Str("ip", sourceIP).Msg("could not authenticate")
			metrics.RecordLogin(metrics.LoginError)
			params.Error = loginErrUnavailable
		}

		render.Render(w, "login.gohtml", params)
		return
	}

	e.LoginLimiter.Reset(sourceIPKey)

	// a fresh session so a cookie handed out before login is never promoted
	sess, err := session.New()
	if err != nil {
		log.Error().Err(err).Msg("could not create session")
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}
	sess.SignIn(p)

	err = session.WriteSession(w, r, sess)
	if err != nil {
		log.Error().Err(err).Msg("could not log user in")
		http.Error(w, "could not write session data", http.StatusInternalServerError)
		return
	}

	metrics.RecordLogin(metrics.LoginSuccess)
	log.Info().Str("ip", sourceIP).Str("username", p.Username).Msg("successful login")

	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (e *Env) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := session.New()
	if err != nil {
		log.Warn().Err(err).Msg("could not create default session")
		http.Error(w, "could not create default session", http.StatusInternalServerError)
		return
	}

	err = session.WriteSession(w, r, sess)
	if err != nil {
		log.Warn().Err(err).Msg("could not sign user out")
		http.Error(w, "could not sign user out", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/login?"+loginMessageParam+"="+loginMessageLoggedOut, http.StatusFound)
}
