package lead

import (
	"errors"
	"strings"
)

var (
	ErrInvalidLead = errors.New("lead: invalid lead")
	ErrNotFound    = errors.New("lead: no such lead")
	ErrEmptyNote   = errors.New("lead: note is empty")
)

// ValidationError names the fields that failed validation, using their lower case names.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "lead: invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidLead
}
