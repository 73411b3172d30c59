package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/notices"
	"github.com/evolutecode/leaddesk/internal/render"
)

type accountsParams struct {
	User     *account.Profile
	Flash    string
	Error    string
	Accounts []accountView
}

type createAccountParams struct {
	User     *account.Profile
	Error    string
	Username string
	FullName string
	Email    string
	Role     string
}

// accountErrorMessage turns a Verifier error into something to show an admin. ok is false for errors that are not
// the admin's fault.
func (e *Env) accountErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, account.ErrDuplicateUsername):
		return "Já existe uma conta com este usuário.", true
	case errors.Is(err, account.ErrDuplicateContact):
		return "Este e-mail já está em uso por outra conta.", true
	case errors.Is(err, account.ErrPasswordTooShort):
		return fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", e.Accounts.Settings().MinPasswordLength), true
	case errors.Is(err, account.ErrInvalidInput):
		return "Usuário e e-mail são obrigatórios.", true
	case errors.Is(err, account.ErrNotFound):
		return "Conta não encontrada.", true
	}
	return "Não foi possível concluir a operação. Tente novamente.", false
}

func (e *Env) HandleAccountsPage(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	profiles, err := e.Accounts.ListAccounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("could not list accounts")
		render.RenderFullPageError(w, http.StatusInternalServerError, "Erro", "Não foi possível carregar as contas", "Tente novamente em instantes.")
		return
	}

	now := time.Now()
	permanent := e.Accounts.Settings().PermanentLock

	views := make([]accountView, len(profiles))
	for i, p := range profiles {
		views[i] = toAccountView(p, u.Username, now, permanent)
	}

	render.Render(w, "accounts.gohtml", &accountsParams{
		User:     u,
		Flash:    session.TakeFlash(w, r),
		Accounts: views,
	})
}

func (e *Env) HandleCreateAccountPage(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	render.Render(w, "account_create.gohtml", &createAccountParams{
		User: u,
		Role: string(account.RoleStaff),
	})
}

func (e *Env) HandleCreateAccountPost(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	role := account.Role(r.PostFormValue("role"))
	if !role.Valid() {
		role = account.RoleStaff
	}

	na := account.NewAccount{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Role:     role,
	}

	p, err := e.Accounts.CreateAccount(r.Context(), na)
	if err != nil {
		msg, known := e.accountErrorMessage(err)
		if !known {
			log.Error().Err(err).Str("username", na.Username).Msg("could not create account")
		}
		render.Render(w, "account_create.gohtml", &createAccountParams{
			User:     u,
			Error:    msg,
			Username: na.Username,
			FullName: na.FullName,
			Email:    na.Email,
			Role:     string(role),
		})
		return
	}

	log.Info().Str("username", p.Username).Str("created_by", u.Username).Str("role", string(p.Role)).Msg("account created")
	session.SetFlash(w, r, fmt.Sprintf("Conta %s criada.", p.Username))
	http.Redirect(w, r, "/admin/accounts", http.StatusFound)
}

// finishAccountAction flashes the outcome of an account action and returns to the list. Unknown accounts get a 404.
func (e *Env) finishAccountAction(w http.ResponseWriter, r *http.Request, err error, success string) {
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, "conta não encontrada", http.StatusNotFound)
			return
		}

		msg, known := e.accountErrorMessage(err)
		if !known {
			log.Error().Err(err).Str("username", r.PathValue("username")).Str("path", r.URL.Path).Msg("account action failed")
		}
		session.SetFlash(w, r, msg)
	} else {
		session.SetFlash(w, r, success)
	}

	http.Redirect(w, r, "/admin/accounts", http.StatusFound)
}

func (e *Env) HandleAccountReset(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	username := r.PathValue("username")
	err := e.Accounts.AdminResetPassword(r.Context(), username, r.PostFormValue("password"))
	if err == nil {
		log.Info().Str("username", username).Str("reset_by", u.Username).Msg("password reset by admin")
		clearDefaultPasswordNotice(username)
	}

	e.finishAccountAction(w, r, err, fmt.Sprintf("Senha de %s redefinida.", username))
}

func (e *Env) HandleAccountDeactivate(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	username := r.PathValue("username")
	if username == u.Username {
		session.SetFlash(w, r, "Você não pode desativar a sua própria conta.")
		http.Redirect(w, r, "/admin/accounts", http.StatusFound)
		return
	}

	err := e.Accounts.Deactivate(r.Context(), username)
	if err == nil {
		log.Info().Str("username", username).Str("deactivated_by", u.Username).Msg("account deactivated")
	}

	e.finishAccountAction(w, r, err, fmt.Sprintf("Conta %s desativada.", username))
}

func (e *Env) HandleAccountActivate(w http.ResponseWriter, r *http.Request) {
	u := requireAdmin(w, r)
	if u == nil {
		return
	}

	username := r.PathValue("username")
	err := e.Accounts.Activate(r.Context(), username)
	if err == nil {
		log.Info().Str("username", username).Str("activated_by", u.Username).Msg("account reactivated")
	}

	e.finishAccountAction(w, r, err, fmt.Sprintf("Conta %s reativada.", username))
}

// clearDefaultPasswordNotice drops the default password banner once the bootstrap admin has a new password.
func clearDefaultPasswordNotice(username string) {
	bootstrap := viper.GetString(config.KeyBootstrapAdminUsername)
	if bootstrap == "" {
		bootstrap = config.DefaultBootstrapAdminUsername
	}
	if username == bootstrap {
		notices.DeleteMessage(notices.DefaultAdminPassword)
	}
}
