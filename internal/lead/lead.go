// Package lead captures contact leads from the public form and API and manages their follow-up.
package lead

import (
	"context"
	"time"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusProposal  Status = "proposal"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
)

var AllStatuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusProposal, StatusWon, StatusLost}

func (s Status) Valid() bool {
	for _, curr := range AllStatuses {
		if s == curr {
			return true
		}
	}
	return false
}

// Closed statuses need no further follow-up.
func (s Status) Closed() bool {
	return s == StatusWon || s == StatusLost
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type Source string

const (
	SourceForm   Source = "form"
	SourceAPI    Source = "api"
	SourceImport Source = "import"
)

type Lead struct {
	ID             string
	Name           string
	Email          string
	Message        string
	Source         Source
	Status         Status
	Priority       Priority
	EstimatedValue int64
	NextContact    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Notes          []Note
}

// Overdue reports whether a follow-up date has passed on an open lead.
func (l *Lead) Overdue(now time.Time) bool {
	return l.NextContact != nil && !l.Status.Closed() && !l.NextContact.After(now)
}

type Note struct {
	ID        string
	LeadID    string
	Author    string
	Body      string
	CreatedAt time.Time
}

// Submission is what a visitor sends through the contact form or the public API.
type Submission struct {
	Name    string `validate:"required,max=200"`
	Email   string `validate:"required,email,max=254"`
	Message string `validate:"required,max=5000"`
}

// Changes is a partial edit from the staff panel. Nil fields are left alone.
type Changes struct {
	Name             *string   `validate:"omitnil,min=1,max=200"`
	Email            *string   `validate:"omitnil,email,max=254"`
	Message          *string   `validate:"omitnil,min=1,max=5000"`
	Status           *Status   `validate:"omitnil,oneof=new contacted qualified proposal won lost"`
	Priority         *Priority `validate:"omitnil,oneof=low medium high"`
	EstimatedValue   *int64    `validate:"omitnil,min=0" field:"estimated_value"`
	NextContact      *time.Time
	ClearNextContact bool
}

type Filter struct {
	// Status limits the listing to one status. Empty means all.
	Status Status
}

// Store persists leads and notes. GetLead returns nil, nil for an unknown id. UpdateLead and DeleteLead return the
// number of rows matched.
type Store interface {
	InsertLead(ctx context.Context, l *Lead) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	ListLeads(ctx context.Context, f Filter) ([]*Lead, error)
	UpdateLead(ctx context.Context, l *Lead) (int64, error)
	DeleteLead(ctx context.Context, id string) (int64, error)
	InsertNote(ctx context.Context, n *Note) error
	ListNotes(ctx context.Context, leadID string) ([]Note, error)
	ListLeadsDueBefore(ctx context.Context, asOf time.Time) ([]*Lead, error)
}
