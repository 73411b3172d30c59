package db

import (
	"context"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/lead"
)

// DB is everything the service persists: staff accounts, leads and their notes.
//
//go:generate go tool mockery
type DB interface {
	account.Store
	lead.Store

	// CountAccounts lets startup decide whether the bootstrap admin is needed.
	CountAccounts(ctx context.Context) (int, error)
	Close() error
}
