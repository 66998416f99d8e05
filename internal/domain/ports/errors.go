package ports

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the wiki client and the services.
// Callers match with errors.Is.
var (
	ErrNotFound          = errors.New("edit not found")
	ErrStateConflict     = errors.New("edit is not in the expected state")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrCredentialExpired = errors.New("OAuth token no longer valid, please log in again")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAction     = errors.New("invalid action")
	ErrAlreadyReviewed   = errors.New("edit has already been reviewed")
	ErrUpstream          = errors.New("wiki API request failed")
	ErrRevisionConflict  = errors.New("page changed since the base revision")
	ErrPersistence       = errors.New("persistence error")
	ErrInconsistentState = errors.New("edit published but its state could not be saved")
)

// APIError is an error object returned by the MediaWiki API.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	if e.Info == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

// InconsistentStateError reports an edit that reached the wiki while the
// store still shows it pending. It must be reconciled by hand.
type InconsistentStateError struct {
	EditID int64
	Err    error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("edit %d: %v: %v", e.EditID, ErrInconsistentState, e.Err)
}

// Is matches ErrInconsistentState and ErrPersistence.
func (e *InconsistentStateError) Is(target error) bool {
	return target == ErrInconsistentState || target == ErrPersistence
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}
