package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/middlewares/session"
	"github.com/evolutecode/leaddesk/internal/notices"
	"github.com/evolutecode/leaddesk/internal/render"
	"github.com/evolutecode/leaddesk/internal/util"
)

const hideAdminNoticesKey = "unsafe_hide_admin_messages"

type adminParams struct {
	User     *account.Profile
	Flash    string
	Notices  []notices.Notice
	Due      []leadRowView
	Statuses []option
	Leads    []leadRowView
}

type leadEditParams struct {
	User       *account.Profile
	Flash      string
	Error      string
	Invalid    map[string]bool
	Lead       leadDetailView
	Statuses   []option
	Priorities []option
	Notes      []noteView
}

func (e *Env) HandleAdminPage(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	status := lead.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		log.Debug().Str("status", string(status)).Msg("ignoring unknown status filter")
		status = ""
	}

	leads, err := e.Leads.List(r.Context(), lead.Filter{Status: status})
	if err != nil {
		log.Error().Err(err).Msg("could not list leads")
		render.RenderFullPageError(w, http.StatusInternalServerError, "Erro", "Não foi possível carregar os leads", "Tente novamente em instantes.")
		return
	}

	now := time.Now()
	due, err := e.Leads.DueForFollowUp(r.Context(), now)
	if err != nil {
		// the dashboard is still useful without the follow-up list
		log.Warn().Err(err).Msg("could not list leads due for follow-up")
	}

	params := &adminParams{
		User:     u,
		Flash:    session.TakeFlash(w, r),
		Statuses: statusOptions(status),
		Leads:    make([]leadRowView, len(leads)),
		Due:      make([]leadRowView, len(due)),
	}
	for i, l := range leads {
		params.Leads[i] = toLeadRowView(l, now)
	}
	for i, l := range due {
		params.Due[i] = toLeadRowView(l, now)
	}
	if u.IsAdmin() && !viper.GetBool(hideAdminNoticesKey) {
		params.Notices = notices.GetNotices()
	}

	render.Render(w, "admin.gohtml", params)
}

func (e *Env) renderLeadPage(w http.ResponseWriter, r *http.Request, u *account.Profile, l *lead.Lead, params *leadEditParams) {
	params.User = u
	params.Statuses = statusOptions(l.Status)
	params.Priorities = priorityOptions(l.Priority)
	params.Notes = toNoteViews(l.Notes)
	if params.Lead.ID == "" {
		params.Lead = toLeadDetailView(l)
	}

	render.Render(w, "lead_edit.gohtml", params)
}

// loadLead fetches the lead named in the path, answering 404 or 500 itself when it cannot.
func (e *Env) loadLead(w http.ResponseWriter, r *http.Request) *lead.Lead {
	id := r.PathValue("id")

	l, err := e.Leads.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			http.Error(w, "lead não encontrado", http.StatusNotFound)
			return nil
		}
		log.Error().Err(err).Str("lead_id", id).Msg("could not load lead")
		http.Error(w, "could not load lead", http.StatusInternalServerError)
		return nil
	}
	return l
}

func (e *Env) HandleLeadPage(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	l := e.loadLead(w, r)
	if l == nil {
		return
	}

	e.renderLeadPage(w, r, u, l, &leadEditParams{Flash: session.TakeFlash(w, r)})
}

// leadChangesFromForm reads the edit form. Fields that cannot even be parsed are returned in invalid.
func leadChangesFromForm(r *http.Request) (lead.Changes, map[string]bool) {
	invalid := map[string]bool{}
	c := lead.Changes{
		Name:    util.P(r.PostFormValue("name")),
		Email:   util.P(r.PostFormValue("email")),
		Message: util.P(r.PostFormValue("message")),
	}

	if s := r.PostFormValue("status"); s != "" {
		c.Status = util.P(lead.Status(s))
	}
	if p := r.PostFormValue("priority"); p != "" {
		c.Priority = util.P(lead.Priority(p))
	}

	if raw := strings.TrimSpace(r.PostFormValue("estimated_value")); raw != "" {
		cents, err := parseMoney(raw)
		if err != nil {
			invalid["estimated_value"] = true
		} else {
			c.EstimatedValue = &cents
		}
	} else {
		c.EstimatedValue = util.P(int64(0))
	}

	if r.PostFormValue("clear_next_contact") == "true" {
		c.ClearNextContact = true
	} else if raw := strings.TrimSpace(r.PostFormValue("next_contact")); raw != "" {
		nc, err := time.ParseInLocation(formDateFormat, raw, config.Location())
		if err != nil {
			invalid["next_contact"] = true
		} else {
			c.NextContact = &nc
		}
	} else {
		c.ClearNextContact = true
	}

	return c, invalid
}

func (e *Env) HandleLeadUpdate(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	id := r.PathValue("id")
	changes, invalid := leadChangesFromForm(r)

	var err error
	if len(invalid) == 0 {
		_, err = e.Leads.Update(r.Context(), id, changes)
		if err == nil {
			log.Info().Str("lead_id", id).Str("username", u.Username).Msg("lead edited")
			session.SetFlash(w, r, "Lead atualizado.")
			http.Redirect(w, r, "/admin/leads/"+id, http.StatusFound)
			return
		}
	}

	var verr *lead.ValidationError
	switch {
	case err == nil, errors.As(err, &verr):
		if verr != nil {
			for _, f := range verr.Fields {
				invalid[f] = true
			}
		}
	case errors.Is(err, lead.ErrNotFound):
		http.Error(w, "lead não encontrado", http.StatusNotFound)
		return
	default:
		log.Error().Err(err).Str("lead_id", id).Msg("could not update lead")
		http.Error(w, "could not update lead", http.StatusInternalServerError)
		return
	}

	l := e.loadLead(w, r)
	if l == nil {
		return
	}

	// show what was typed, not what is stored
	view := toLeadDetailView(l)
	view.Name = *changes.Name
	view.Email = *changes.Email
	view.Message = *changes.Message
	view.EstimatedValueRaw = r.PostFormValue("estimated_value")
	view.NextContactRaw = r.PostFormValue("next_contact")
	if changes.Status != nil {
		l.Status = *changes.Status
	}
	if changes.Priority != nil {
		l.Priority = *changes.Priority
	}

	e.renderLeadPage(w, r, u, l, &leadEditParams{
		Error:   "Corrija os campos destacados.",
		Invalid: invalid,
		Lead:    view,
	})
}

func (e *Env) HandleLeadNote(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	id := r.PathValue("id")

	_, err := e.Leads.AddNote(r.Context(), id, u.Username, r.PostFormValue("body"))
	if err != nil {
		var verr *lead.ValidationError
		switch {
		case errors.Is(err, lead.ErrNotFound):
			http.Error(w, "lead não encontrado", http.StatusNotFound)
			return
		case errors.Is(err, lead.ErrEmptyNote):
			session.SetFlash(w, r, "A anotação não pode ficar vazia.")
		case errors.As(err, &verr):
			session.SetFlash(w, r, "A anotação é longa demais.")
		default:
			log.Error().Err(err).Str("lead_id", id).Msg("could not add note")
			http.Error(w, "could not add note", http.StatusInternalServerError)
			return
		}
	} else {
		session.SetFlash(w, r, "Anotação adicionada.")
	}

	http.Redirect(w, r, "/admin/leads/"+id, http.StatusFound)
}

// wantsNoContent is true for script callers that only need the status code.
func wantsNoContent(r *http.Request) bool {
	return r.Method == http.MethodDelete ||
		r.Header.Get("HX-Request") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (e *Env) HandleLeadDelete(w http.ResponseWriter, r *http.Request) {
	u := requireStaff(w, r)
	if u == nil {
		return
	}

	id := r.PathValue("id")

	err := e.Leads.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			http.Error(w, "lead não encontrado", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("lead_id", id).Msg("could not delete lead")
		http.Error(w, "could not delete lead", http.StatusInternalServerError)
		return
	}

	log.Info().Str("lead_id", id).Str("username", u.Username).Msg("lead removed from panel")

	if wantsNoContent(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	session.SetFlash(w, r, "Lead excluído.")
	http.Redirect(w, r, "/admin", http.StatusFound)
}
