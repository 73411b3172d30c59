package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/render"
)

type passwordChangeParams struct {
	User    *account.Profile
	Error   string
	Message string
}

func (e *Env) HandlePasswordChangePage(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	render.Render(w, "password_change.gohtml", &passwordChangeParams{User: u})
}

func (e *Env) HandlePasswordChangePost(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	oldPw := r.PostFormValue("old_password")
	newPw := r.PostFormValue("new_password")
	newPw2 := r.PostFormValue("new_password_confirm")

	params := &passwordChangeParams{User: u}

	if newPw != newPw2 {
		params.Error = "As novas senhas não conferem."
		render.Render(w, "password_change.gohtml", params)
		return
	}

	err := e.Accounts.ChangePassword(r.Context(), u.Username, oldPw, newPw)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			params.Error = "Senha atual incorreta."
		default:
			msg, known := e.accountErrorMessage(err)
			if !known {
				log.Error().Err(err).Str("username", u.Username).Msg("could not change password")
			}
			params.Error = msg
		}
		render.Render(w, "password_change.gohtml", params)
		return
	}

	clearDefaultPasswordNotice(u.Username)

	// the old session predates the change and is no longer valid, so start a new one
	sess, err := session.New()
	if err != nil {
		log.Error().Err(err).Msg("could not create session")
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}
	sess.SignIn(u)
	sess.Flash = "Senha alterada com sucesso."

	if err := session.WriteSession(w, r, sess); err != nil {
		log.Error().Err(err).Msg("could not write session after password change")
		http.Error(w, "could not write session data", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusFound)
}
