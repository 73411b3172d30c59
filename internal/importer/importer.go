// Package importer reads account and lead exports from the previous system. Exports are HOCON (or plain JSON) shaped
// like
//
//	leaddesk {
//	  usuarios: [ { usuario: "maria", senha: "$2b$10$...", nome_completo: "Maria", email: "maria@example.com", role: "user", ativo: true, data_criacao: "10/03/2024 14:05:00" } ]
//	  leads: [ { nome: "Joana", email: "joana@example.com", mensagem: "Olá", data: "10/03/2024 15:04:05" } ]
//	}
//
// The outer leaddesk block is optional.
package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gurkankaymak/hocon"
	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/lead"
)

const rootKey = "leaddesk"

var (
	accountFields = []string{"usuario", "senha", "nome_completo", "email", "role", "ativo", "criado_em", "data_criacao"}
	leadFields    = []string{"nome", "email", "mensagem", "data"}

	// present in exports of the old system; login state starts fresh after import
	ignoredFields = []string{"_id", "ultimo_login", "tentativas_login", "bloqueado_ate"}

	// layouts without a zone are read in the configured lead time zone
	dateLayouts = []string{"02/01/2006 15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

	roleAliases = map[string]account.Role{
		"user": account.RoleStaff,
	}
)

type ImportedLead struct {
	Submission lead.Submission
	CreatedAt  time.Time
}

type Results struct {
	Accounts []account.ImportedAccount
	Leads    []ImportedLead
}

// Summary counts what Apply did. Records that already exist or fail validation are skipped, not fatal.
type Summary struct {
	AccountsImported int
	AccountsSkipped  int
	LeadsImported    int
	LeadsSkipped     int
}

func quoteTrim(s string) string {
	return strings.Trim(s, `"`)
}

func getString(o hocon.Object, key string) (string, error) {
	v := o[key]
	if v == nil {
		return "", nil
	}

	s, ok := v.(hocon.String)
	if !ok {
		return "", fmt.Errorf("not a string: %s", key)
	}

	return quoteTrim(s.String()), nil
}

func getBoolean(o hocon.Object, key string, fallback bool) (bool, error) {
	v := o[key]
	if v == nil {
		return fallback, nil
	}

	b, ok := v.(hocon.Boolean)
	if !ok {
		return false, fmt.Errorf("not a boolean: %s", key)
	}

	return bool(b), nil
}

func getTime(o hocon.Object, key string) (time.Time, error) {
	s, err := getString(o, key)
	if err != nil || s == "" {
		return time.Time{}, err
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	loc := config.Location()
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("not a date: %s: %q", key, s)
}

func checkFields(o hocon.Object, allowed []string) error {
	for k := range o {
		k = quoteTrim(k)
		if !slices.Contains(allowed, k) && !slices.Contains(ignoredFields, k) {
			return fmt.Errorf("unknown field: %s", k)
		}
	}
	return nil
}

func requireString(o hocon.Object, key string) (string, error) {
	s, err := getString(o, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("missing field: %s", key)
	}
	return s, nil
}

func decodeAccount(v hocon.Value) (*account.ImportedAccount, error) {
	obj, ok := v.(hocon.Object)
	if !ok {
		return nil, fmt.Errorf("could not convert to hocon.Object during account parsing. is %T", v)
	}

	if err := checkFields(obj, accountFields); err != nil {
		return nil, err
	}

	username, err := requireString(obj, "usuario")
	if err != nil {
		return nil, err
	}

	hash, err := requireString(obj, "senha")
	if err != nil {
		return nil, err
	}

	email, err := requireString(obj, "email")
	if err != nil {
		return nil, err
	}

	fullName, err := getString(obj, "nome_completo")
	if err != nil {
		return nil, err
	}

	role, err := getString(obj, "role")
	if err != nil {
		return nil, err
	}
	r := account.Role(strings.ToLower(role))
	if alias, ok := roleAliases[string(r)]; ok {
		r = alias
	}
	if r == "" {
		r = account.RoleStaff
	}
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role: %q", role)
	}

	active, err := getBoolean(obj, "ativo", true)
	if err != nil {
		return nil, err
	}

	created, err := getTime(obj, "criado_em")
	if err != nil {
		return nil, err
	}
	if created.IsZero() {
		if created, err = getTime(obj, "data_criacao"); err != nil {
			return nil, err
		}
	}

	return &account.ImportedAccount{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Email:        email,
		Role:         r,
		Active:       active,
		CreatedAt:    created,
	}, nil
}

func decodeLead(v hocon.Value) (*ImportedLead, error) {
	obj, ok := v.(hocon.Object)
	if !ok {
		return nil, fmt.Errorf("could not convert to hocon.Object during lead parsing. is %T", v)
	}

	if err := checkFields(obj, leadFields); err != nil {
		return nil, err
	}

	var sub lead.Submission
	var err error

	if sub.Name, err = requireString(obj, "nome"); err != nil {
		return nil, err
	}
	if sub.Email, err = requireString(obj, "email"); err != nil {
		return nil, err
	}
	if sub.Message, err = requireString(obj, "mensagem"); err != nil {
		return nil, err
	}

	created, err := getTime(obj, "data")
	if err != nil {
		return nil, err
	}

	return &ImportedLead{Submission: sub, CreatedAt: created}, nil
}

func getArray(cfg *hocon.Config, path string) (hocon.Array, error) {
	v := cfg.Get(path)
	if v == nil {
		return nil, nil
	}

	arr, ok := v.(hocon.Array)
	if !ok {
		return nil, fmt.Errorf("not an array: %s", path)
	}
	return arr, nil
}

// Parse decodes an export. Any unknown or malformed field rejects the whole document.
func Parse(contents string) (*Results, error) {
	cfg, err := hocon.ParseString(contents)
	if err != nil {
		log.Error().Err(err).Msg("could not parse import file")
		return nil, fmt.Errorf("importer: Parse: %w", err)
	}

	prefix := ""
	if cfg.Get(rootKey) != nil {
		prefix = rootKey + "."
	}

	res := &Results{}

	accountList, err := getArray(cfg, prefix+"usuarios")
	if err != nil {
		return nil, fmt.Errorf("importer: Parse: %w", err)
	}
	for i, curr := range accountList {
		a, err := decodeAccount(curr)
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("could not parse account")
			return nil, fmt.Errorf("importer: Parse: account %d: %w", i, err)
		}
		res.Accounts = append(res.Accounts, *a)
	}

	leadList, err := getArray(cfg, prefix+"leads")
	if err != nil {
		return nil, fmt.Errorf("importer: Parse: %w", err)
	}
	for i, curr := range leadList {
		l, err := decodeLead(curr)
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("could not parse lead")
			return nil, fmt.Errorf("importer: Parse: lead %d: %w", i, err)
		}
		res.Leads = append(res.Leads, *l)
	}

	return res, nil
}

// Apply writes parsed records. It stops at the first store failure; everything before it stays written.
func Apply(ctx context.Context, res *Results, accounts *account.Verifier, leads *lead.Service) (Summary, error) {
	var s Summary

	for _, a := range res.Accounts {
		err := accounts.ImportAccount(ctx, a)
		switch {
		case err == nil:
			s.AccountsImported++
		case errors.Is(err, account.ErrDuplicateUsername), errors.Is(err, account.ErrDuplicateContact), errors.Is(err, account.ErrInvalidInput):
			log.Warn().Err(err).Str("username", a.Username).Msg("skipping account")
			s.AccountsSkipped++
		default:
			return s, fmt.Errorf("importer: Apply: %w", err)
		}
	}

	for _, l := range res.Leads {
		_, err := leads.Import(ctx, l.Submission, l.CreatedAt)
		switch {
		case err == nil:
			s.LeadsImported++
		case errors.Is(err, lead.ErrInvalidLead):
			log.Warn().Err(err).Str("email", l.Submission.Email).Msg("skipping lead")
			s.LeadsSkipped++
		default:
			return s, fmt.Errorf("importer: Apply: %w", err)
		}
	}

	log.Info().
		Int("accounts", s.AccountsImported).
		Int("accounts_skipped", s.AccountsSkipped).
		Int("leads", s.LeadsImported).
		Int("leads_skipped", s.LeadsSkipped).
		Msg("import complete")

	return s, nil
}
