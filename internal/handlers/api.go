package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/loginlimit"
	"github.com/evolutecode/leaddesk/internal/metrics"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/render"
	"github.com/evolutecode/leaddesk/internal/util"
)

const (
	apiVersion = "1.0.0"

	maxAPIBodyBytes = 64 * 1024

	// dd/mm/YYYY HH:MM:SS in the lead time zone, as the old frontend expects
	apiTimeFormat = "02/01/2006 15:04:05"

	apiMsgLeadCreated    = "Lead adicionado com sucesso!"
	apiMsgRequiredFields = "Nome, email e mensagem são obrigatórios."
	apiMsgInvalidFields  = "Dados inválidos."
	apiMsgInvalidJSON    = "Corpo da requisição deve ser um JSON válido."
	apiMsgRateLimited    = "Muitas requisições. Tente novamente mais tarde."
	apiMsgInternal       = "Erro interno ao processar o lead."
	apiMsgNotLoggedIn    = "Autenticação necessária."
	apiMsgNotAllowed     = "Método não permitido."
)

type apiError struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// apiLeadRequest accepts both the English keys and the Portuguese ones the old frontend sends.
type apiLeadRequest struct {
	Name     string `json:"name"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	Mensagem string `json:"mensagem"`
}

type apiLead struct {
	ID       string `json:"_id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Mensagem string `json:"mensagem"`
	Data     string `json:"data"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Source   string `json:"source"`
}

func toAPILead(l *lead.Lead) apiLead {
	return apiLead{
		ID:       l.ID,
		Nome:     l.Name,
		Email:    l.Email,
		Mensagem: l.Message,
		Data:     l.CreatedAt.In(config.Location()).Format(apiTimeFormat),
		Status:   string(l.Status),
		Priority: string(l.Priority),
		Source:   string(l.Source),
	}
}

func (e *Env) HandleAPIBanner(w http.ResponseWriter, r *http.Request) {
	render.RenderJSON(w, http.StatusOK, map[string]any{
		"message": "API EvoluteCode funcionando!",
		"version": apiVersion,
		"endpoints": map[string]string{
			"leads": "/api/leads",
		},
	})
}

func (e *Env) HandleAPILeads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		e.handleAPISubmit(w, r)
	case http.MethodGet, http.MethodHead:
		e.handleAPIList(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST, OPTIONS")
		render.RenderJSON(w, http.StatusMethodNotAllowed, apiError{Error: apiMsgNotAllowed})
	}
}

func (e *Env) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	var req apiLeadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBodyBytes))
	if err := dec.Decode(&req); err != nil {
		log.Debug().Err(err).Msg("invalid lead JSON")
		metrics.RecordSubmission(string(lead.SourceAPI), metrics.SubmissionInvalid)
		render.RenderJSON(w, http.StatusBadRequest, apiError{Error: apiMsgInvalidJSON})
		return
	}

	sub := lead.Submission{
		Name:    util.FirstNonEmpty(req.Name, req.Nome),
		Email:   req.Email,
		Message: util.FirstNonEmpty(req.Message, req.Mensagem),
	}

	key, ok := e.submissionAllowed(r, lead.SourceAPI)
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(loginlimit.SubmitWindow().Seconds())))
		render.RenderJSON(w, http.StatusTooManyRequests, apiError{Error: apiMsgRateLimited})
		return
	}

	l, err := e.Leads.Submit(r.Context(), sub, lead.SourceAPI)
	if err != nil {
		var verr *lead.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordSubmission(string(lead.SourceAPI), metrics.SubmissionInvalid)
			msg := apiMsgInvalidFields
			if strings.TrimSpace(sub.Name) == "" || strings.TrimSpace(sub.Email) == "" || strings.TrimSpace(sub.Message) == "" {
				msg = apiMsgRequiredFields
			}
			render.RenderJSON(w, http.StatusBadRequest, apiError{Error: msg, Fields: verr.Fields})
			return
		}

		log.Error().Err(err).Msg("could not store lead from api")
		metrics.RecordSubmission(string(lead.SourceAPI), metrics.SubmissionError)
		render.RenderJSON(w, http.StatusInternalServerError, apiError{Error: apiMsgInternal})
		return
	}

	e.countSubmission(key)
	metrics.RecordSubmission(string(lead.SourceAPI), metrics.SubmissionAccepted)

	render.RenderJSON(w, http.StatusCreated, map[string]any{
		"message": apiMsgLeadCreated,
		"lead":    toAPILead(l),
	})
}

func (e *Env) handleAPIList(w http.ResponseWriter, r *http.Request) {
	if session.GetUserFromRequest(r) == nil {
		render.RenderJSON(w, http.StatusUnauthorized, apiError{Error: apiMsgNotLoggedIn})
		return
	}

	leads, err := e.Leads.List(r.Context(), lead.Filter{Status: lead.Status(r.URL.Query().Get("status"))})
	if err != nil {
		var verr *lead.ValidationError
		if errors.As(err, &verr) {
			render.RenderJSON(w, http.StatusBadRequest, apiError{Error: apiMsgInvalidFields, Fields: verr.Fields})
			return
		}
		log.Error().Err(err).Msg("could not list leads for api")
		render.RenderJSON(w, http.StatusInternalServerError, apiError{Error: apiMsgInternal})
		return
	}

	ret := make([]apiLead, len(leads))
	for i, l := range leads {
		ret[i] = toAPILead(l)
	}

	render.RenderJSON(w, http.StatusOK, map[string]any{"leads": ret})
}
