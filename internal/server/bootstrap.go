package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/notices"
)

// LegacyDefaultAdminPassword is the password older installs shipped their admin account with.
const LegacyDefaultAdminPassword = "Admin@123"

const defaultPasswordNotice = "A conta de administrador ainda usa a senha padrão. Altere-a em \"Alterar senha\"."

func BootstrapFromConfig() account.BootstrapAdmin {
	config.Lock.RLock()
	defer config.Lock.RUnlock()

	return account.BootstrapAdmin{
		Username: viper.GetString(config.KeyBootstrapAdminUsername),
		Password: viper.GetString(config.KeyBootstrapAdminPassword),
		Email:    viper.GetString(config.KeyBootstrapAdminEmail),
		FullName: viper.GetString(config.KeyBootstrapAdminFullName),
	}
}

// EnsureBootstrapAdmin creates the configured admin account on first start and raises a notice while that account
// still uses the well known default password.
func EnsureBootstrapAdmin(ctx context.Context, accounts *account.Verifier, b account.BootstrapAdmin) error {
	if b.Username == "" {
		b.Username = config.DefaultBootstrapAdminUsername
	}
	if b.Email == "" {
		b.Email = config.DefaultBootstrapAdminEmail
	}
	if b.FullName == "" {
		b.FullName = config.DefaultBootstrapAdminFullName
	}

	created, err := accounts.EnsureAdmin(ctx, b)
	if err != nil {
		return fmt.Errorf("server: EnsureBootstrapAdmin: %w", err)
	}
	if !created {
		log.Debug().Str("username", b.Username).Msg("bootstrap admin already exists")
	}

	if b.Password != LegacyDefaultAdminPassword {
		notices.DeleteMessage(notices.DefaultAdminPassword)
		return nil
	}

	p, err := accounts.Lookup(ctx, b.Username)
	if err != nil {
		return fmt.Errorf("server: EnsureBootstrapAdmin: %w", err)
	}
	if p != nil && p.PasswordChangedAt.Equal(p.CreatedAt) {
		log.Warn().Str("username", b.Username).Msg("admin account is still using the default password")
		notices.AddMessage(notices.DefaultAdminPassword, defaultPasswordNotice)
	}

	return nil
}
