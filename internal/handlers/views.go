package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/lead"
)

const (
	displayTimeFormat = "02/01/2006 15:04"
	displayDateFormat = "02/01/2006"
	formDateFormat    = "2006-01-02"

	summaryLength = 80
)

var statusLabels = map[lead.Status]string{
	lead.StatusNew:       "Novo",
	lead.StatusContacted: "Contatado",
	lead.StatusQualified: "Qualificado",
	lead.StatusProposal:  "Proposta",
	lead.StatusWon:       "Ganho",
	lead.StatusLost:      "Perdido",
}

var priorityLabels = map[lead.Priority]string{
	lead.PriorityLow:    "Baixa",
	lead.PriorityMedium: "Média",
	lead.PriorityHigh:   "Alta",
}

var errInvalidMoney = errors.New("handlers: parseMoney: invalid amount")

type option struct {
	Value    string
	Label    string
	Selected bool
}

func statusOptions(selected lead.Status) []option {
	ret := make([]option, len(lead.AllStatuses))
	for i, s := range lead.AllStatuses {
		ret[i] = option{Value: string(s), Label: statusLabels[s], Selected: s == selected}
	}
	return ret
}

func priorityOptions(selected lead.Priority) []option {
	ret := make([]option, len(lead.AllPriorities))
	for i, p := range lead.AllPriorities {
		ret[i] = option{Value: string(p), Label: priorityLabels[p], Selected: p == selected}
	}
	return ret
}

func formatTime(t time.Time) string {
	return t.In(config.Location()).Format(displayTimeFormat)
}

func formatOptionalTime(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return formatTime(*t)
}

// formatBRL renders cents as Brazilian currency, for example 123456 as "R$ 1.234,56".
func formatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(c)
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), cents%100)
}

// parseMoney reads an amount in reais ("1234", "1234.5" or "1234,56") into cents.
func parseMoney(raw string) (int64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0, errInvalidMoney
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, errInvalidMoney
	}

	reais, err := strconv.ParseUint(whole, 10, 40)
	if err != nil {
		return 0, errInvalidMoney
	}

	var cents uint64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseUint(frac, 10, 8)
		if err != nil {
			return 0, errInvalidMoney
		}
	}

	return int64(reais*100 + cents), nil
}

func rawMoney(cents int64) string {
	if cents == 0 {
		return ""
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func summarize(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(message) <= summaryLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:summaryLength]) + "…"
}

type leadRowView struct {
	ID             string
	Name           string
	Email          string
	Summary        string
	StatusLabel    string
	PriorityLabel  string
	EstimatedValue string
	Created        string
	NextContact    string
	Overdue        bool
}

func toLeadRowView(l *lead.Lead, now time.Time) leadRowView {
	nextContact := ""
	if l.NextContact != nil {
		nextContact = l.NextContact.In(config.Location()).Format(displayDateFormat)
	}

	value := ""
	if l.EstimatedValue > 0 {
		value = formatBRL(l.EstimatedValue)
	}

	return leadRowView{
		ID:             l.ID,
		Name:           l.Name,
		Email:          l.Email,
		Summary:        summarize(l.Message),
		StatusLabel:    statusLabels[l.Status],
		PriorityLabel:  priorityLabels[l.Priority],
		EstimatedValue: value,
		Created:        formatTime(l.CreatedAt),
		NextContact:    nextContact,
		Overdue:        l.Overdue(now),
	}
}

type leadDetailView struct {
	ID                string
	Name              string
	Email             string
	Message           string
	Source            string
	Created           string
	Updated           string
	EstimatedValueRaw string
	NextContactRaw    string
}

var sourceLabels = map[lead.Source]string{
	lead.SourceForm:   "formulário",
	lead.SourceAPI:    "API",
	lead.SourceImport: "importação",
}

func toLeadDetailView(l *lead.Lead) leadDetailView {
	nextContact := ""
	if l.NextContact != nil {
		nextContact = l.NextContact.In(config.Location()).Format(formDateFormat)
	}

	return leadDetailView{
		ID:                l.ID,
		Name:              l.Name,
		Email:             l.Email,
		Message:           l.Message,
		Source:            sourceLabels[l.Source],
		Created:           formatTime(l.CreatedAt),
		Updated:           formatTime(l.UpdatedAt),
		EstimatedValueRaw: rawMoney(l.EstimatedValue),
		NextContactRaw:    nextContact,
	}
}

type noteView struct {
	Body    string
	Author  string
	Created string
}

func toNoteViews(notes []lead.Note) []noteView {
	ret := make([]noteView, len(notes))
	for i, n := range notes {
		ret[i] = noteView{Body: n.Body, Author: n.Author, Created: formatTime(n.CreatedAt)}
	}
	return ret
}

type accountView struct {
	Username       string
	FullName       string
	Email          string
	Role           string
	Active         bool
	Locked         bool
	LockedUntil    string
	FailedAttempts int
	LastLogin      string
	IsSelf         bool
}

var roleLabels = map[account.Role]string{
	account.RoleAdmin: "Administrador",
	account.RoleStaff: "Equipe",
}

func toAccountView(p account.Profile, self string, now time.Time, permanentLock bool) accountView {
	locked := p.IsLocked(now)
	if permanentLock {
		locked = p.LockedUntil != nil
	}

	return accountView{
		Username:       p.Username,
		FullName:       p.FullName,
		Email:          p.Email,
		Role:           roleLabels[p.Role],
		Active:         p.Active,
		Locked:         locked,
		LockedUntil:    formatOptionalTime(p.LockedUntil, ""),
		FailedAttempts: p.FailedAttempts,
		LastLogin:      formatOptionalTime(p.LastLogin, "nunca"),
		IsSelf:         p.Username == self,
	}
}
