// Package errs holds the error taxonomy shared by stores, the workflow
// engine and HTTP handlers. Handlers map these with errors.Is / errors.As.
package errs

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated means there is no valid session identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden means the identity lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the record does not exist or was already consumed.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique key (such as an identity email) is taken.
	ErrDuplicate = errors.New("already exists")
	// ErrConflict means the record is held by an unfinished transition
	// (a request an accept has claimed) and may become available again.
	ErrConflict = errors.New("in progress elsewhere")
)

// ValidationError reports malformed input fields. It is returned before any
// store mutation.
type ValidationError struct {
	Fields map[string]string // field -> problem
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a problem for field. The first message for a field wins.
func (v *ValidationError) Add(field, msg string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// OrNil returns v when at least one field failed, nil otherwise.
func (v *ValidationError) OrNil() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
