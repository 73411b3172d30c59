package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/durations"
	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/loginlimit"
	"github.com/evolutecode/leaddesk/internal/metrics"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/render"
	"github.com/evolutecode/leaddesk/internal/trueip"
)

const contactErrorMessage = "Não foi possível enviar a sua mensagem agora. Tente novamente em instantes."

func contactRateLimitedMessage() string {
	return fmt.Sprintf("Você enviou muitas mensagens em pouco tempo. Tente novamente em %s.", durations.RoundedUp(loginlimit.SubmitWindow()))
}

var fieldMessages = map[string]string{
	"name":    "Informe o seu nome.",
	"email":   "Informe um e-mail válido.",
	"message": "Escreva a sua mensagem.",
}

type indexParams struct {
	Name    string
	Email   string
	Message string
	Errors  []string
	Invalid map[string]bool
}

type thanksParams struct {
	Name string
}

func (e *Env) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if session.GetUserFromRequest(r) != nil {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	render.Render(w, "index.gohtml", &indexParams{})
}

// submissionAllowed checks the per-address submission limit.
func (e *Env) submissionAllowed(r *http.Request, source lead.Source) (string, bool) {
	key := loginlimit.Key("ip", trueip.Find(r))
	if e.SubmitLimiter.IsLocked(key) {
		log.Warn().Str("ip", trueip.Find(r)).Str("source", string(source)).Msg("lead submission rate limited")
		metrics.RecordSubmission(string(source), metrics.SubmissionRateLimited)
		return key, false
	}
	return key, true
}

// countSubmission records an accepted submission against the limit. Hitting the limit only affects later requests.
func (e *Env) countSubmission(key string) {
	if _, err := e.SubmitLimiter.MarkAttempt(key); err != nil && !errors.Is(err, loginlimit.ErrLocked) {
		log.Warn().Err(err).Str("key", key).Msg("could not record lead submission")
	}
}

func (e *Env) HandleContactSubmit(w http.ResponseWriter, r *http.Request) {
	sub := lead.Submission{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}

	params := &indexParams{
		Name:    sub.Name,
		Email:   sub.Email,
		Message: sub.Message,
	}

	key, ok := e.submissionAllowed(r, lead.SourceForm)
	if !ok {
		params.Errors = []string{contactRateLimitedMessage()}
		render.Render(w, "index.gohtml", params)
		return
	}

	l, err := e.Leads.Submit(r.Context(), sub, lead.SourceForm)
	if err != nil {
		var verr *lead.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordSubmission(string(lead.SourceForm), metrics.SubmissionInvalid)
			params.Invalid = map[string]bool{}
			for _, f := range verr.Fields {
				params.Invalid[f] = true
				params.Errors = append(params.Errors, fieldMessages[f])
			}
			render.Render(w, "index.gohtml", params)
			return
		}

		log.Error().Err(err).Msg("could not store lead from contact form")
		metrics.RecordSubmission(string(lead.SourceForm), metrics.SubmissionError)
		params.Errors = []string{contactErrorMessage}
		render.Render(w, "index.gohtml", params)
		return
	}

	e.countSubmission(key)
	metrics.RecordSubmission(string(lead.SourceForm), metrics.SubmissionAccepted)

	render.Render(w, "thanks.gohtml", &thanksParams{Name: l.Name})
}
