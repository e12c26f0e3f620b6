package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrTornRead    = errors.New("torn read of sheet properties")
	ErrConsistency = errors.New("sheet statistics could not be recomputed consistently")

	ErrInvalidPageToken = errors.New("invalid page token")
)

// ValidationError reports a malformed field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DispatchError is returned by a ChannelDispatcher when a channel could not deliver.
type DispatchError struct {
	Channel   Channel
	Reason    string
	Permanent bool
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s failed: %s", e.Channel, e.Reason)
}
