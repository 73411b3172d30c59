// Package session keeps the staff login in a signed and encrypted cookie.
package session

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/salt"
)

type sessionContextKeyType string

const (
	SessionCookieName = "leaddesk_session"

	sessionContextKey sessionContextKeyType = "session_info"
)

// ProfileSource resolves the username stored in a session to a current profile. It returns nil, nil when the
// account no longer exists.
type ProfileSource interface {
	Lookup(ctx context.Context, username string) (*account.Profile, error)
}

type Middleware struct {
	sc      *securecookie.SecureCookie
	source  ProfileSource
	handler http.Handler
}

type sessionData struct {
	session    Session
	user       *account.Profile
	sc         *securecookie.SecureCookie
	writeCount int
}

func init() {
	gob.Register(Session{})
}

func NewMiddleware(next http.Handler, source ProfileSource) *Middleware {
	keys := salt.Load()
	sc := securecookie.New(keys.Signing, keys.Encryption)
	sc.MaxAge(int(CookieLifetime().Seconds()))
	return &Middleware{
		sc:      sc,
		handler: next,
		source:  source,
	}
}

func getSessionData(r *http.Request) *sessionData {
	info := r.Context().Value(sessionContextKey)
	if info == nil {
		panic("no session info in request, is middleware configured properly?")
	}
	return info.(*sessionData)
}

func GetSessionFromRequest(r *http.Request) Session {
	return getSessionData(r).session
}

// GetUserFromRequest returns the logged in profile, or nil for anonymous visitors.
func GetUserFromRequest(r *http.Request) *account.Profile {
	return getSessionData(r).user
}

func generateCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Secure:   true,
		HttpOnly: true,
		Domain:   viper.GetString(config.KeyServerDomain),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(CookieLifetime().Seconds()),
	}
}

func WriteSession(w http.ResponseWriter, r *http.Request, s Session) error {
	sd := getSessionData(r)

	if sd.writeCount > 0 {
		log.Warn().Int("write_count", sd.writeCount).Caller(1).Msg("more than one WriteSession call")
	}
	sd.writeCount++

	encoded, err := sd.sc.Encode(SessionCookieName, s)
	if err != nil {
		log.Error().Err(err).Msg("could not encode session data")
		return err
	}

	sd.session = s
	http.SetCookie(w, generateCookie(encoded))

	return nil
}

// SetFlash stores a one-shot message for the next page.
func SetFlash(w http.ResponseWriter, r *http.Request, msg string) {
	s := GetSessionFromRequest(r)
	s.Flash = msg
	if err := WriteSession(w, r, s); err != nil {
		log.Warn().Err(err).Msg("could not store flash message")
	}
}

// TakeFlash returns the pending flash message and clears it.
func TakeFlash(w http.ResponseWriter, r *http.Request) string {
	s := GetSessionFromRequest(r)
	if s.Flash == "" {
		return ""
	}
	msg := s.Flash
	s.Flash = ""
	if err := WriteSession(w, r, s); err != nil {
		log.Warn().Err(err).Msg("could not clear flash message")
	}
	return msg
}

func (m *Middleware) loadUser(r *http.Request, sess *Session) *account.Profile {
	if sess.Username == "" || sess.Expired() {
		return nil
	}

	p, err := m.source.Lookup(r.Context(), sess.Username)
	if err != nil {
		log.Warn().Err(err).Str("username", sess.Username).Msg("could not get account for session")
		return nil
	}
	if p == nil {
		log.Info().Str("username", sess.Username).Msg("session refers to missing account")
		return nil
	}
	if !p.Active {
		log.Info().Str("username", sess.Username).Msg("session refers to disabled account")
		return nil
	}
	if sess.PredatesPasswordChange(p) {
		log.Info().Str("username", sess.Username).Msg("session predates password change")
		return nil
	}

	return p
}

// readSession decodes the session cookie. A missing or tampered cookie yields nil.
func (m *Middleware) readSession(r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess *Session
	if err := m.sc.Decode(SessionCookieName, c.Value, &sess); err != nil {
		log.Warn().Err(err).Msg("could not validate session cookie")
		return nil, nil
	}
	return sess, nil
}

// issueSession starts an anonymous session and sets its cookie.
func (m *Middleware) issueSession(w http.ResponseWriter) (*Session, error) {
	sess, err := New()
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("issuing new anonymous session")
	encoded, err := m.sc.Encode(SessionCookieName, sess)
	if err != nil {
		log.Error().Err(err).Msg("could not encode session data")
	} else {
		http.SetCookie(w, generateCookie(encoded))
	}
	return &sess, nil
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/static") {
		m.handler.ServeHTTP(w, r)
		return
	}

	sess, err := m.readSession(r)
	if err != nil {
		log.Error().Err(err).Msg("could not pull session cookie")
		http.Error(w, "could not pull session cookie", http.StatusInternalServerError)
		return
	}

	var u *account.Profile
	if sess != nil {
		u = m.loadUser(r, sess)
		if u == nil && sess.Username != "" {
			// stale login, start over
			sess = nil
		}
	}

	if sess == nil {
		sess, err = m.issueSession(w)
		if err != nil {
			log.Error().Err(err).Msg("could not create new session")
			http.Error(w, "could not create new session", http.StatusInternalServerError)
			return
		}
	}

	info := &sessionData{
		session: *sess,
		user:    u,
		sc:      m.sc,
	}

	w.Header().Set("Vary", "Cookie")
	m.handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, info)))
}

// ArbitraryAttachSession attaches session information to a request without going through the middleware. It exists
// for handler tests.
func ArbitraryAttachSession(sess Session, r *http.Request, u *account.Profile, sc *securecookie.SecureCookie) *http.Request {
	if sc == nil {
		sc = securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	}

	info := &sessionData{
		session: sess,
		user:    u,
		sc:      sc,
	}

	newCtx := context.WithValue(r.Context(), sessionContextKey, info)

	return r.WithContext(newCtx)
}
