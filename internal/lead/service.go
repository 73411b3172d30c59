package lead

import (
	"context"
	"errors"
	"fmt"
	"html"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/util"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		return strings.ToLower(fld.Name)
	})
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	store  Store
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// cleanPasses bounds how many layers of entity encoding clean peels off.
const cleanPasses = 8

// maxNoteLength is counted in runes, like the validator's max on the other fields.
const maxNoteLength = 5000

// clean strips all markup. The policy escapes entities, which templates escape again, so they are undone; that can
// surface markup that was sent entity-encoded, so sanitizing repeats until the text stops changing.
func (s *Service) clean(input string) string {
	out := strings.TrimSpace(input)
	for range cleanPasses {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	// still changing: keep the escaped form, which carries no markup
	return strings.TrimSpace(s.policy.Sanitize(out))
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("lead: validate: %w", err)
	}

	var fields []string
	for _, fe := range verrs {
		if !slices.Contains(fields, fe.Field()) {
			fields = append(fields, fe.Field())
		}
	}
	return &ValidationError{Fields: fields}
}

// Submit validates and stores a new lead from the public side.
func (s *Service) Submit(ctx context.Context, sub Submission, source Source) (*Lead, error) {
	return s.create(ctx, sub, source, time.Time{})
}

// Import stores a lead brought over from an older system, keeping its original timestamp.
func (s *Service) Import(ctx context.Context, sub Submission, createdAt time.Time) (*Lead, error) {
	return s.create(ctx, sub, SourceImport, createdAt)
}

func (s *Service) create(ctx context.Context, sub Submission, source Source, createdAt time.Time) (*Lead, error) {
	sub.Name = s.clean(sub.Name)
	sub.Email = strings.ToLower(strings.TrimSpace(sub.Email))
	sub.Message = s.clean(sub.Message)

	if err := validate.Struct(sub); err != nil {
		return nil, validationError(err)
	}

	if source == "" {
		source = SourceForm
	}

	now := s.now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	l := &Lead{
		ID:        uuid.NewString(),
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		Source:    source,
		Status:    StatusNew,
		Priority:  PriorityMedium,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: now,
	}

	if err := s.store.InsertLead(ctx, l); err != nil {
		return nil, fmt.Errorf("lead: Submit: %w", err)
	}

	log.Info().Str("lead_id", l.ID).Str("source", string(source)).Msg("lead captured")
	return l, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Lead, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, &ValidationError{Fields: []string{"status"}}
	}

	leads, err := s.store.ListLeads(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("lead: List: %w", err)
	}
	return leads, nil
}

// Get loads a lead with its notes, oldest note first.
func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	l, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lead: Get: %w", err)
	}
	if l == nil {
		return nil, ErrNotFound
	}

	l.Notes, err = s.store.ListNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lead: Get: notes: %w", err)
	}

	return l, nil
}

func (s *Service) Update(ctx context.Context, id string, c Changes) (*Lead, error) {
	if c.Name != nil {
		c.Name = util.P(s.clean(*c.Name))
	}
	if c.Email != nil {
		c.Email = util.P(strings.ToLower(strings.TrimSpace(*c.Email)))
	}
	if c.Message != nil {
		c.Message = util.P(s.clean(*c.Message))
	}

	if err := validate.Struct(c); err != nil {
		return nil, validationError(err)
	}

	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.Name != nil {
		l.Name = *c.Name
	}
	if c.Email != nil {
		l.Email = *c.Email
	}
	if c.Message != nil {
		l.Message = *c.Message
	}
	if c.Status != nil {
		l.Status = *c.Status
	}
	if c.Priority != nil {
		l.Priority = *c.Priority
	}
	if c.EstimatedValue != nil {
		l.EstimatedValue = *c.EstimatedValue
	}
	if c.NextContact != nil {
		nc := c.NextContact.UTC()
		l.NextContact = &nc
	}
	if c.ClearNextContact {
		l.NextContact = nil
	}
	l.UpdatedAt = s.now().UTC()

	matched, err := s.store.UpdateLead(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("lead: Update: %w", err)
	}
	if matched == 0 {
		return nil, ErrNotFound
	}

	log.Info().Str("lead_id", id).Str("status", string(l.Status)).Msg("lead updated")
	return l, nil
}

func (s *Service) AddNote(ctx context.Context, leadID string, author string, body string) (*Note, error) {
	body = s.clean(body)
	if body == "" {
		return nil, ErrEmptyNote
	}
	if utf8.RuneCountInString(body) > maxNoteLength {
		return nil, &ValidationError{Fields: []string{"body"}}
	}

	existing, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("lead: AddNote: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	n := &Note{
		ID:        uuid.NewString(),
		LeadID:    leadID,
		Author:    author,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.InsertNote(ctx, n); err != nil {
		return nil, fmt.Errorf("lead: AddNote: %w", err)
	}

	return n, nil
}

// Delete removes a lead together with its notes.
func (s *Service) Delete(ctx context.Context, id string) error {
	matched, err := s.store.DeleteLead(ctx, id)
	if err != nil {
		return fmt.Errorf("lead: Delete: %w", err)
	}
	if matched == 0 {
		return ErrNotFound
	}

	log.Warn().Str("lead_id", id).Msg("lead deleted")
	return nil
}

// DueForFollowUp lists open leads whose next contact date is at or before asOf, most overdue first.
func (s *Service) DueForFollowUp(ctx context.Context, asOf time.Time) ([]*Lead, error) {
	leads, err := s.store.ListLeadsDueBefore(ctx, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("lead: DueForFollowUp: %w", err)
	}

	return slices.DeleteFunc(leads, func(l *Lead) bool {
		return !l.Overdue(asOf)
	}), nil
}
