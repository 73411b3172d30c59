package session

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
)

const (
	IDLengthBytes = 32

	DefaultCookieLifetime  = 30 * 24 * time.Hour
	DefaultSessionLifetime = 12 * time.Hour
)

// Session is the cookie payload. A session without a Username is anonymous and only carries flash messages.
type Session struct {
	SessionID  string    `json:"id"`
	Username   string    `json:"u,omitempty"`
	IssuedAt   time.Time `json:"iat"`
	SignedInAt time.Time `json:"sat,omitzero"`
	Expires    time.Time `json:"exp"`

	// Flash is shown once on the next page render and then cleared.
	Flash string `json:"flash,omitempty"`
}

func New() (Session, error) {
	id, err := generateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("could not generate session id")
		return Session{}, err
	}

	now := time.Now()
	return Session{
		SessionID: id,
		IssuedAt:  now,
		Expires:   now.Add(SessionLifetime()),
	}, nil
}

func configuredDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

func CookieLifetime() time.Duration {
	return configuredDuration(config.DefaultCookieLifetime, DefaultCookieLifetime)
}

func SessionLifetime() time.Duration {
	return configuredDuration(config.DefaultSessionLifetime, DefaultSessionLifetime)
}

func (s *Session) ID() string {
	return s.SessionID
}

func (s *Session) Expired() bool {
	return s.Expires.Before(time.Now())
}

// SignIn binds the session to p and restarts its lifetime. Inactive accounts never get this far; doing so is a bug.
func (s *Session) SignIn(p *account.Profile) {
	if !p.Active {
		log.Panic().Str("username", p.Username).Msg("attempted to sign in a deactivated account")
	}

	now := time.Now()
	s.Username = p.Username
	s.SignedInAt = now
	s.Expires = now.Add(SessionLifetime())

	log.Debug().Str("username", p.Username).Time("expires", s.Expires).Msg("session signed in")
}

// PredatesPasswordChange reports whether the account's password changed after this session was issued.
func (s *Session) PredatesPasswordChange(p *account.Profile) bool {
	return p.PasswordChangedAt.After(s.IssuedAt)
}

func generateSessionID() (string, error) {
	b := make([]byte, IDLengthBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
