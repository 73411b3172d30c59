package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/evolutecode/leaddesk/internal/lead"
	"github.com/evolutecode/leaddesk/internal/mocks"
	"github.com/evolutecode/leaddesk/internal/notices"
	"github.com/evolutecode/leaddesk/internal/render"
)

func sampleLead() *lead.Lead {
	created := time.Date(2024, 5, 2, 13, 30, 0, 0, time.UTC)
	return &lead.Lead{
		ID:        "lead-1",
		Name:      "Joana Lima",
		Email:     "joana@example.com",
		Message:   "Quero um orçamento para um site institucional",
		Source:    lead.SourceForm,
		Status:    lead.StatusNew,
		Priority:  lead.PriorityMedium,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func expectLead(db *mocks.MockDB, l *lead.Lead, notes []lead.Note) {
	db.On("GetLead", mock.Anything, l.ID).Return(l, nil)
	db.On("ListNotes", mock.Anything, l.ID).Return(notes, nil)
}

func leadForm(overrides map[string]string) *strings.Reader {
	v := url.Values{}
	v.Set("name", "Joana Lima")
	v.Set("email", "joana@example.com")
	v.Set("message", "Quero um orçamento")
	v.Set("status", "contacted")
	v.Set("priority", "high")
	v.Set("estimated_value", "1500,50")
	v.Set("next_contact", "2024-06-10")
	for k, val := range overrides {
		v.Set(k, val)
	}
	return strings.NewReader(v.Encode())
}

func TestEnv_HandleAdminPage(t *testing.T) {
	setupSalts(t)
	render.Init()

	t.Run("anonymous visitors must log in", func(t *testing.T) {
		_, _, _, e := makeTestEnv(t)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?message=not_logged_in", w.Header().Get("Location"))
	})

	t.Run("lists leads and follow-ups", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		l := sampleLead()
		l.EstimatedValue = 250000

		overdue := sampleLead()
		overdue.ID = "lead-2"
		overdue.Name = "Pedro Alves"
		past := time.Now().Add(-48 * time.Hour)
		overdue.NextContact = &past

		db.On("ListLeads", mock.Anything, lead.Filter{}).Return([]*lead.Lead{l, overdue}, nil)
		db.On("ListLeadsDueBefore", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*lead.Lead{overdue}, nil)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Joana Lima")
		assert.Contains(t, body, "Retornos pendentes")
		assert.Contains(t, body, `href="/admin/leads/lead-2"`)
		assert.Contains(t, body, "R$ 2.500,00")
		assert.Contains(t, body, "02/05/2024 10:30")
	})

	t.Run("status filter", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("ListLeads", mock.Anything, lead.Filter{Status: lead.StatusWon}).Return([]*lead.Lead{}, nil)
		db.On("ListLeadsDueBefore", mock.Anything, mock.Anything).Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin?status=won", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<option value="won" selected>`)
		assert.Contains(t, w.Body.String(), "Nenhum lead encontrado.")
	})

	t.Run("unknown status filter shows everything", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("ListLeads", mock.Anything, lead.Filter{}).Return([]*lead.Lead{}, nil)
		db.On("ListLeadsDueBefore", mock.Anything, mock.Anything).Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin?status=archived", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("follow-up failure still shows the dashboard", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("ListLeads", mock.Anything, lead.Filter{}).Return([]*lead.Lead{sampleLead()}, nil)
		db.On("ListLeadsDueBefore", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Joana Lima")
		assert.NotContains(t, w.Body.String(), "Retornos pendentes")
	})

	t.Run("listing failure", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("ListLeads", mock.Anything, lead.Filter{}).Return(nil, errors.New("boom"))

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleStaff)))

		assert.Contains(t, w.Body.String(), "Não foi possível carregar os leads")
	})

	t.Run("notices are for admins only", func(t *testing.T) {
		notices.Reset()
		notices.AddMessage("default-password", "A senha padrão do administrador ainda está em uso.")
		t.Cleanup(notices.Reset)

		db, _, _, e := makeTestEnv(t)
		db.On("ListLeads", mock.Anything, lead.Filter{}).Return([]*lead.Lead{}, nil)
		db.On("ListLeadsDueBefore", mock.Anything, mock.Anything).Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleStaff)))
		assert.NotContains(t, w.Body.String(), "A senha padrão do administrador")

		w = serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleAdmin)))
		assert.Contains(t, w.Body.String(), "A senha padrão do administrador")

		viper.Set(hideAdminNoticesKey, true)
		t.Cleanup(func() {
			viper.Set(hideAdminNoticesKey, false)
		})

		w = serve(e, makeTestRequest(t, http.MethodGet, "/admin", nil, withUser(db, sampleAdmin)))
		assert.NotContains(t, w.Body.String(), "A senha padrão do administrador")
	})
}

func TestEnv_HandleLeadPage(t *testing.T) {
	setupSalts(t)
	render.Init()

	t.Run("shows the lead with its notes", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		l := sampleLead()
		l.EstimatedValue = 150050
		expectLead(db, l, []lead.Note{
			{ID: "n1", LeadID: l.ID, Author: "maria", Body: "Pediu retorno na segunda", CreatedAt: l.CreatedAt},
		})

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin/leads/lead-1", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Joana Lima")
		assert.Contains(t, body, "Pediu retorno na segunda")
		assert.Contains(t, body, `value="1500.50"`)
		assert.Contains(t, body, "via formulário")
	})

	t.Run("unknown lead", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("GetLead", mock.Anything, "nope").Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin/leads/nope", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("GetLead", mock.Anything, "lead-1").Return(nil, errors.New("boom"))

		w := serve(e, makeTestRequest(t, http.MethodGet, "/admin/leads/lead-1", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestEnv_HandleLeadUpdate(t *testing.T) {
	setupSalts(t)
	render.Init()

	t.Run("saves the changes", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		expectLead(db, sampleLead(), nil)
		db.On("UpdateLead", mock.Anything, mock.MatchedBy(func(l *lead.Lead) bool {
			return l.Status == lead.StatusContacted &&
				l.Priority == lead.PriorityHigh &&
				l.EstimatedValue == 150050 &&
				l.NextContact != nil &&
				l.NextContact.Equal(time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)) &&
				l.Message == "Quero um orçamento"
		})).Return(int64(1), nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1", leadForm(nil), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/leads/lead-1", w.Header().Get("Location"))
	})

	t.Run("clearing the follow-up date", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		l := sampleLead()
		nc := time.Now().Add(24 * time.Hour)
		l.NextContact = &nc
		expectLead(db, l, nil)
		db.On("UpdateLead", mock.Anything, mock.MatchedBy(func(l *lead.Lead) bool {
			return l.NextContact == nil
		})).Return(int64(1), nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1", leadForm(map[string]string{"clear_next_contact": "true"}), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusFound, w.Code)
	})

	t.Run("unparseable value is sent back", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		expectLead(db, sampleLead(), nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1", leadForm(map[string]string{"estimated_value": "muito"}), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Corrija os campos destacados.")
		assert.Contains(t, body, `value="muito" aria-invalid="true"`)
		assert.Contains(t, body, `<option value="contacted" selected>`)
		db.AssertNotCalled(t, "UpdateLead", mock.Anything, mock.Anything)
	})

	t.Run("invalid email is sent back", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		expectLead(db, sampleLead(), nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1", leadForm(map[string]string{"email": "joana"}), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `value="joana" aria-invalid="true"`)
	})

	t.Run("unknown lead", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("GetLead", mock.Anything, "nope").Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/nope", leadForm(nil), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, _, _, e := makeTestEnv(t)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1", leadForm(nil)))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?message=not_logged_in", w.Header().Get("Location"))
	})
}

func TestEnv_HandleLeadNote(t *testing.T) {
	setupSalts(t)
	render.Init()

	noteForm := func(body string) *strings.Reader {
		return strings.NewReader(url.Values{"body": {body}}.Encode())
	}

	t.Run("adds a note as the logged in user", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("GetLead", mock.Anything, "lead-1").Return(sampleLead(), nil)
		db.On("InsertNote", mock.Anything, mock.MatchedBy(func(n *lead.Note) bool {
			return n.LeadID == "lead-1" && n.Author == "maria" && n.Body == "Ligar amanhã"
		})).Return(nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1/notes", noteForm(" Ligar amanhã "), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin/leads/lead-1", w.Header().Get("Location"))
		assert.True(t, hasSessionCookie(w))
	})

	t.Run("empty notes are refused", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1/notes", noteForm("   "), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusFound, w.Code)
		db.AssertNotCalled(t, "InsertNote", mock.Anything, mock.Anything)
	})

	t.Run("unknown lead", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("GetLead", mock.Anything, "nope").Return(nil, nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/nope/notes", noteForm("oi"), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEnv_HandleLeadDelete(t *testing.T) {
	setupSalts(t)
	render.Init()

	t.Run("form post redirects to the dashboard", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("DeleteLead", mock.Anything, "lead-1").Return(int64(1), nil)

		w := serve(e, makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1/delete", strings.NewReader(""), withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/admin", w.Header().Get("Location"))
	})

	t.Run("DELETE answers with no content", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("DeleteLead", mock.Anything, "lead-1").Return(int64(1), nil)

		w := serve(e, makeTestRequest(t, http.MethodDelete, "/admin/leads/lead-1", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("htmx callers get no content", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("DeleteLead", mock.Anything, "lead-1").Return(int64(1), nil)

		r := makeTestRequest(t, http.MethodPost, "/admin/leads/lead-1/delete", strings.NewReader(""), withUser(db, sampleStaff))
		r.Header.Set("HX-Request", "true")
		w := serve(e, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown lead", func(t *testing.T) {
		db, _, _, e := makeTestEnv(t)

		db.On("DeleteLead", mock.Anything, "nope").Return(int64(0), nil)

		w := serve(e, makeTestRequest(t, http.MethodDelete, "/admin/leads/nope", nil, withUser(db, sampleStaff)))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, _, _, e := makeTestEnv(t)

		w := serve(e, makeTestRequest(t, http.MethodDelete, "/admin/leads/lead-1", nil))

		assert.Equal(t, http.StatusFound, w.Code)
	})
}
