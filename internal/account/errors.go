package account

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateUsername  = errors.New("account: username already exists")
	ErrDuplicateContact   = errors.New("account: email already in use")
	ErrInvalidCredentials = errors.New("account: invalid username or password")
	ErrAccountDisabled    = errors.New("account: account is disabled")
	ErrAccountLocked      = errors.New("account: account is locked")
	ErrPasswordTooShort   = errors.New("account: password is too short")
	ErrNotFound           = errors.New("account: no such account")
	ErrStore              = errors.New("account: store failure")
	ErrInvalidInput       = errors.New("account: invalid input")
)

// InvalidCredentialsError is returned for an unknown username and for a wrong password alike.
type InvalidCredentialsError struct {
	// Attempts is the failure count after this attempt. Always 0 for unknown usernames.
	Attempts int
}

func (e *InvalidCredentialsError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

type AccountLockedError struct {
	Until time.Time
	// JustLocked is set when this attempt is the one that locked the account.
	JustLocked bool
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrAccountLocked.Error(), e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("account: %s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func invalidInput(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}
