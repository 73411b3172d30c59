package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/argon"
	"github.com/evolutecode/leaddesk/internal/pwmigrate"
	"github.com/evolutecode/leaddesk/internal/util"
)

const (
	ConfigKeyFailureLimit      = "security.account_lock.failure_limit"
	ConfigKeyLockDuration      = "security.account_lock.lock_duration"
	ConfigKeyPermanentLock     = "security.account_lock.permanent"
	ConfigKeyMinPasswordLength = "security.min_password_length"
	ConfigKeyDisablePrecis     = "security.disable_precis"

	DefaultFailureLimit      = 5
	DefaultLockDuration      = 15 * time.Minute
	DefaultMinPasswordLength = 6
)

// Settings tune the Verifier. Zero values fall back to the defaults.
type Settings struct {
	FailureLimit      int
	LockDuration      time.Duration
	MinPasswordLength int
	// PermanentLock keeps an account locked once a lock timestamp exists, until an admin resets its password.
	PermanentLock  bool
	DisablePrecis  bool
	DisableMigrate bool
	Hash           argon.Params
}

func (s Settings) withDefaults() Settings {
	if s.FailureLimit <= 0 {
		s.FailureLimit = DefaultFailureLimit
	}
	if s.LockDuration <= 0 {
		s.LockDuration = DefaultLockDuration
	}
	if s.MinPasswordLength <= 0 {
		s.MinPasswordLength = DefaultMinPasswordLength
	}
	if s.Hash == (argon.Params{}) {
		s.Hash = argon.DefaultParams()
	}
	return s
}

func SettingsFromConfig() Settings {
	return Settings{
		FailureLimit:      viper.GetInt(ConfigKeyFailureLimit),
		LockDuration:      viper.GetDuration(ConfigKeyLockDuration),
		MinPasswordLength: viper.GetInt(ConfigKeyMinPasswordLength),
		PermanentLock:     viper.GetBool(ConfigKeyPermanentLock),
		DisablePrecis:     viper.GetBool(ConfigKeyDisablePrecis),
		DisableMigrate:    viper.GetBool(argon.DisableMigrateKey),
		Hash:              argon.ParamsFromConfig(),
	}.withDefaults()
}

type Option func(*Verifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// Verifier implements account creation, authentication with lockout, and password management on top of a Store.
type Verifier struct {
	store    Store
	settings Settings
	now      func() time.Time

	fakeHashOnce sync.Once
	fakeHash     string
}

func NewVerifier(store Store, settings Settings, opts ...Option) *Verifier {
	v := &Verifier{
		store:    store,
		settings: settings.withDefaults(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func NewVerifierFromConfig(store Store) *Verifier {
	s := SettingsFromConfig()
	log.Info().
		Int("failure_limit", s.FailureLimit).
		Dur("lock_duration", s.LockDuration).
		Bool("permanent_lock", s.PermanentLock).
		Int("min_password_length", s.MinPasswordLength).
		Msg("initializing account verifier")
	return NewVerifier(store, s)
}

func (v *Verifier) Settings() Settings {
	return v.settings
}

func (v *Verifier) hash(cleaned string) (string, error) {
	return argon.Hash(cleaned, v.settings.Hash)
}

// burnTime runs a verification against a throwaway hash so unknown usernames cost the same as known ones.
func (v *Verifier) burnTime(password string) {
	v.fakeHashOnce.Do(func() {
		var err error
		v.fakeHash, err = v.hash(uuid.NewString())
		if err != nil {
			log.Error().Err(err).Msg("could not generate timing hash")
		}
	})
	if v.fakeHash != "" {
		_ = argon.Verify(password, v.fakeHash)
	}
}

func (v *Verifier) isLocked(a *Account, now time.Time) bool {
	if a.LockedUntil == nil {
		return false
	}
	if v.settings.PermanentLock {
		return true
	}
	return a.LockedUntil.After(now)
}

func (v *Verifier) checkNewPassword(password string) (string, error) {
	if passwordLength(password) < v.settings.MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	cleaned, err := cleanPassword(password, v.settings.DisablePrecis)
	if err != nil {
		return "", fmt.Errorf("%w: password contains disallowed characters", ErrInvalidInput)
	}

	return cleaned, nil
}

func (v *Verifier) CreateAccount(ctx context.Context, na NewAccount) (*Profile, error) {
	username := strings.TrimSpace(na.Username)
	email := normalizeContact(na.Email)

	if username == "" {
		return nil, invalidInput("username")
	}
	if email == "" {
		return nil, invalidInput("email")
	}

	role := na.Role
	if role == "" {
		role = RoleStaff
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	cleaned, err := v.checkNewPassword(na.Password)
	if err != nil {
		return nil, err
	}

	if err := v.checkUnique(ctx, "CreateAccount", username, email); err != nil {
		return nil, err
	}

	hash, err := v.hash(cleaned)
	if err != nil {
		return nil, fmt.Errorf("account: CreateAccount: could not hash password: %w", err)
	}

	now := v.now()
	a := &Account{
		Username:          username,
		Email:             email,
		FullName:          strings.TrimSpace(na.FullName),
		Role:              role,
		PasswordHash:      hash,
		Active:            true,
		FailedAttempts:    0,
		LockedUntil:       nil,
		CreatedAt:         now,
		PasswordChangedAt: now,
	}

	if err := v.insert(ctx, "CreateAccount", a); err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Str("role", string(role)).Msg("created account")

	p := a.Profile()
	return &p, nil
}

func (v *Verifier) checkUnique(ctx context.Context, op string, username string, email string) error {
	existing, err := v.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return storeErr(op, err)
	}
	if existing != nil {
		return ErrDuplicateUsername
	}

	existing, err = v.store.FindAccountByEmail(ctx, email)
	if err != nil {
		return storeErr(op, err)
	}
	if existing != nil {
		return ErrDuplicateContact
	}

	return nil
}

func (v *Verifier) insert(ctx context.Context, op string, a *Account) error {
	id, err := v.store.InsertAccount(ctx, a)
	if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateContact) {
		// lost a race with a concurrent insert
		return err
	}
	if err != nil {
		return storeErr(op, err)
	}
	a.ID = id
	return nil
}

// Authenticate checks a username and password. The returned error is one of *InvalidCredentialsError,
// ErrAccountDisabled, *AccountLockedError or *StoreError.
func (v *Verifier) Authenticate(ctx context.Context, username string, password string) (*Profile, error) {
	username = strings.TrimSpace(username)

	a, err := v.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("Authenticate", err)
	}

	if a == nil {
		v.burnTime(password)
		log.Debug().Str("username", username).Msg("login for unknown username")
		return nil, &InvalidCredentialsError{}
	}

	if !a.Active {
		log.Warn().Str("username", username).Msg("login attempt on disabled account")
		return nil, ErrAccountDisabled
	}

	now := v.now()
	if v.isLocked(a, now) {
		log.Warn().Str("username", username).Time("locked_until", *a.LockedUntil).Msg("login attempt on locked account")
		return nil, &AccountLockedError{Until: *a.LockedUntil}
	}

	cleaned, cleanErr := cleanPassword(password, v.settings.DisablePrecis)
	if cleanErr == nil {
		err = checkHash(password, cleaned, a.PasswordHash)
	} else {
		err = errWrongPassword
	}

	if err != nil {
		return nil, v.recordFailure(ctx, a, now)
	}

	update := AccountUpdate{
		FailedAttempts: util.P(0),
		ClearLock:      true,
		LastLogin:      &now,
	}
	if _, err := v.store.UpdateAccountFields(ctx, username, update); err != nil {
		return nil, storeErr("Authenticate", err)
	}

	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLogin = &now

	if !v.settings.DisableMigrate && argon.NeedsRehash(a.PasswordHash, v.settings.Hash) {
		pwmigrate.MigrateAccount(ctx, a.ID, a.Username, func() (string, error) {
			return v.hash(cleaned)
		}, hashWriter{store: v.store})
	}

	log.Info().Str("username", username).Msg("successful authentication")

	p := a.Profile()
	return &p, nil
}

func (v *Verifier) recordFailure(ctx context.Context, a *Account, now time.Time) error {
	lockUntil := now.Add(v.settings.LockDuration)

	attempts, err := v.store.RecordFailedLogin(ctx, a.Username, v.settings.FailureLimit, lockUntil)
	if err != nil {
		return storeErr("Authenticate", err)
	}

	if attempts >= v.settings.FailureLimit {
		log.Warn().Str("username", a.Username).Int("attempts", attempts).Time("locked_until", lockUntil).Msg("account locked after repeated failures")
		return &AccountLockedError{Until: lockUntil, JustLocked: true}
	}

	log.Info().Str("username", a.Username).Int("attempts", attempts).Msg("failed authentication")
	return &InvalidCredentialsError{Attempts: attempts}
}

// ChangePassword replaces the password after checking the old one. Failure counters are not touched, not even when
// the old password is wrong.
func (v *Verifier) ChangePassword(ctx context.Context, username string, oldPassword string, newPassword string) error {
	username = strings.TrimSpace(username)

	a, err := v.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return storeErr("ChangePassword", err)
	}
	if a == nil {
		return ErrNotFound
	}

	cleanedOld, err := cleanPassword(oldPassword, v.settings.DisablePrecis)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := checkHash(oldPassword, cleanedOld, a.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	cleaned, err := v.checkNewPassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := v.hash(cleaned)
	if err != nil {
		return fmt.Errorf("account: ChangePassword: could not hash password: %w", err)
	}

	now := v.now()
	if err := v.update(ctx, "ChangePassword", username, AccountUpdate{
		PasswordHash:      &hash,
		PasswordChangedAt: &now,
	}); err != nil {
		return err
	}

	log.Info().Str("username", username).Msg("password changed")
	return nil
}

// AdminResetPassword sets a new password without the old one and clears any lockout.
func (v *Verifier) AdminResetPassword(ctx context.Context, username string, newPassword string) error {
	username = strings.TrimSpace(username)

	cleaned, err := v.checkNewPassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := v.hash(cleaned)
	if err != nil {
		return fmt.Errorf("account: AdminResetPassword: could not hash password: %w", err)
	}

	now := v.now()
	if err := v.update(ctx, "AdminResetPassword", username, AccountUpdate{
		PasswordHash:      &hash,
		PasswordChangedAt: &now,
		FailedAttempts:    util.P(0),
		ClearLock:         true,
	}); err != nil {
		return err
	}

	log.Warn().Str("username", username).Msg("password reset by administrator")
	return nil
}

func (v *Verifier) Deactivate(ctx context.Context, username string) error {
	if err := v.update(ctx, "Deactivate", username, AccountUpdate{Active: util.P(false)}); err != nil {
		return err
	}
	log.Warn().Str("username", username).Msg("account deactivated")
	return nil
}

func (v *Verifier) Activate(ctx context.Context, username string) error {
	if err := v.update(ctx, "Activate", username, AccountUpdate{Active: util.P(true)}); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("account activated")
	return nil
}

// update applies u to the account; usernames are matched the way Authenticate matches them.
func (v *Verifier) update(ctx context.Context, op string, username string, u AccountUpdate) error {
	matched, err := v.store.UpdateAccountFields(ctx, strings.TrimSpace(username), u)
	if err != nil {
		return storeErr(op, err)
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (v *Verifier) ListAccounts(ctx context.Context) ([]Profile, error) {
	accounts, err := v.store.ListAccounts(ctx)
	if err != nil {
		return nil, storeErr("ListAccounts", err)
	}

	ret := make([]Profile, len(accounts))
	for i, a := range accounts {
		ret[i] = a.Profile()
	}
	return ret, nil
}

// Lookup returns the profile for username, or nil when there is no such account.
func (v *Verifier) Lookup(ctx context.Context, username string) (*Profile, error) {
	a, err := v.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("Lookup", err)
	}
	if a == nil {
		return nil, nil
	}
	p := a.Profile()
	return &p, nil
}

// EnsureAdmin creates the bootstrap administrator when no account with its username exists. Without a configured
// password a random one is generated and logged once.
func (v *Verifier) EnsureAdmin(ctx context.Context, b BootstrapAdmin) (bool, error) {
	if strings.TrimSpace(b.Username) == "" {
		return false, invalidInput("username")
	}

	existing, err := v.store.FindAccountByUsername(ctx, strings.TrimSpace(b.Username))
	if err != nil {
		return false, storeErr("EnsureAdmin", err)
	}
	if existing != nil {
		return false, nil
	}

	password := b.Password
	generated := false
	if password == "" {
		password = fmt.Sprintf("%x", securecookie.GenerateRandomKey(12))
		generated = true
	}

	_, err = v.CreateAccount(ctx, NewAccount{
		Username: b.Username,
		Password: password,
		FullName: b.FullName,
		Email:    b.Email,
		Role:     RoleAdmin,
	})
	if err != nil {
		return false, err
	}

	if generated {
		log.Warn().Str("username", b.Username).Str("password", password).Msg("created initial admin account with generated password; change it after logging in")
	} else {
		log.Warn().Str("username", b.Username).Msg("created initial admin account")
	}

	return true, nil
}

// ImportAccount stores an account whose hash was computed elsewhere. Bcrypt hashes are upgraded on first login.
func (v *Verifier) ImportAccount(ctx context.Context, ia ImportedAccount) error {
	username := strings.TrimSpace(ia.Username)
	email := normalizeContact(ia.Email)

	if username == "" {
		return invalidInput("username")
	}
	if email == "" {
		return invalidInput("email")
	}
	if !looksLikeHash(ia.PasswordHash) {
		return fmt.Errorf("%w: unsupported password hash for %s", ErrInvalidInput, username)
	}

	role := ia.Role
	if role == "" {
		role = RoleStaff
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	if err := v.checkUnique(ctx, "ImportAccount", username, email); err != nil {
		return err
	}

	now := v.now()
	created := ia.CreatedAt
	if created.IsZero() {
		created = now
	}

	a := &Account{
		Username:          username,
		Email:             email,
		FullName:          strings.TrimSpace(ia.FullName),
		Role:              role,
		PasswordHash:      ia.PasswordHash,
		Active:            ia.Active,
		CreatedAt:         created,
		PasswordChangedAt: now,
	}

	if err := v.insert(ctx, "ImportAccount", a); err != nil {
		return err
	}

	log.Info().Str("username", username).Msg("imported account")
	return nil
}

type hashWriter struct {
	store Store
}

func (h hashWriter) WritePasswordHash(ctx context.Context, username string, hash string) error {
	_, err := h.store.UpdateAccountFields(ctx, username, AccountUpdate{PasswordHash: &hash})
	return err
}
