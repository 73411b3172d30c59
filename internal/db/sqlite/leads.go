package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evolutecode/leaddesk/internal/lead"
)

const leadColumns = "id, name, email, message, source, status, priority, estimated_value, next_contact, created_at, updated_at"

type leadRow struct {
	ID             string        `db:"id"`
	Name           string        `db:"name"`
	Email          string        `db:"email"`
	Message        string        `db:"message"`
	Source         string        `db:"source"`
	Status         string        `db:"status"`
	Priority       string        `db:"priority"`
	EstimatedValue int64         `db:"estimated_value"`
	NextContact    sql.NullInt64 `db:"next_contact"`
	CreatedAt      int64         `db:"created_at"`
	UpdatedAt      int64         `db:"updated_at"`
}

func newLeadRow(l *lead.Lead) leadRow {
	return leadRow{
		ID:             l.ID,
		Name:           l.Name,
		Email:          l.Email,
		Message:        l.Message,
		Source:         string(l.Source),
		Status:         string(l.Status),
		Priority:       string(l.Priority),
		EstimatedValue: l.EstimatedValue,
		NextContact:    toNullMillis(l.NextContact),
		CreatedAt:      toMillis(l.CreatedAt),
		UpdatedAt:      toMillis(l.UpdatedAt),
	}
}

func (r *leadRow) toLead() *lead.Lead {
	return &lead.Lead{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Message:        r.Message,
		Source:         lead.Source(r.Source),
		Status:         lead.Status(r.Status),
		Priority:       lead.Priority(r.Priority),
		EstimatedValue: r.EstimatedValue,
		NextContact:    fromNullMillis(r.NextContact),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

func toLeads(rows []leadRow) []*lead.Lead {
	ret := make([]*lead.Lead, len(rows))
	for i := range rows {
		ret[i] = rows[i].toLead()
	}
	return ret
}

func (s *SQLite) InsertLead(ctx context.Context, l *lead.Lead) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES (:id, :name, :email, :message, :source, :status, :priority, :estimated_value, :next_contact, :created_at, :updated_at)`,
		newLeadRow(l))
	if err != nil {
		return fmt.Errorf("sqlite: InsertLead: %w", err)
	}
	return nil
}

func (s *SQLite) GetLead(ctx context.Context, id string) (*lead.Lead, error) {
	var row leadRow
	err := s.db.GetContext(ctx, &row, "SELECT "+leadColumns+" FROM leads WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: GetLead: %w", err)
	}
	return row.toLead(), nil
}

// ListLeads returns the newest leads first.
func (s *SQLite) ListLeads(ctx context.Context, f lead.Filter) ([]*lead.Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads"
	var args []any
	if f.Status != "" {
		query += " WHERE status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY created_at DESC, id"

	var rows []leadRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: ListLeads: %w", err)
	}
	return toLeads(rows), nil
}

func (s *SQLite) UpdateLead(ctx context.Context, l *lead.Lead) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE leads
		SET name = :name, email = :email, message = :message, status = :status, priority = :priority,
		    estimated_value = :estimated_value, next_contact = :next_contact, updated_at = :updated_at
		WHERE id = :id`,
		newLeadRow(l))
	if err != nil {
		return 0, fmt.Errorf("sqlite: UpdateLead: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: UpdateLead: %w", err)
	}
	return ra, nil
}

// DeleteLead removes the lead. Its notes go with it through the foreign key cascade.
func (s *SQLite) DeleteLead(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM leads WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: DeleteLead: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: DeleteLead: %w", err)
	}
	return ra, nil
}

type noteRow struct {
	ID        string `db:"id"`
	LeadID    string `db:"lead_id"`
	Author    string `db:"author"`
	Body      string `db:"body"`
	CreatedAt int64  `db:"created_at"`
}

func (s *SQLite) InsertNote(ctx context.Context, n *lead.Note) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO lead_notes (id, lead_id, author, body, created_at) VALUES (:id, :lead_id, :author, :body, :created_at)",
		noteRow{
			ID:        n.ID,
			LeadID:    n.LeadID,
			Author:    n.Author,
			Body:      n.Body,
			CreatedAt: toMillis(n.CreatedAt),
		})
	if err != nil {
		return fmt.Errorf("sqlite: InsertNote: %w", err)
	}
	return nil
}

func (s *SQLite) ListNotes(ctx context.Context, leadID string) ([]lead.Note, error) {
	var rows []noteRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, lead_id, author, body, created_at FROM lead_notes WHERE lead_id = ? ORDER BY created_at, id", leadID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListNotes: %w", err)
	}

	ret := make([]lead.Note, len(rows))
	for i, r := range rows {
		ret[i] = lead.Note{
			ID:        r.ID,
			LeadID:    r.LeadID,
			Author:    r.Author,
			Body:      r.Body,
			CreatedAt: fromMillis(r.CreatedAt),
		}
	}
	return ret, nil
}

// ListLeadsDueBefore returns open leads with a next contact date at or before asOf, oldest date first.
func (s *SQLite) ListLeadsDueBefore(ctx context.Context, asOf time.Time) ([]*lead.Lead, error) {
	var rows []leadRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+leadColumns+` FROM leads
		WHERE next_contact IS NOT NULL AND next_contact <= ? AND status NOT IN (?, ?)
		ORDER BY next_contact, id`,
		toMillis(asOf), string(lead.StatusWon), string(lead.StatusLost))
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListLeadsDueBefore: %w", err)
	}
	return toLeads(rows), nil
}
