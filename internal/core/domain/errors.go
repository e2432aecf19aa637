package domain

import (
	"errors"
	"fmt"
)

// Semantic error kinds. Adapters attach one with WrapError; boundaries
// branch on them with IsKind.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
	ErrStoreUnavailable = errors.New("retrieval store unavailable")
)

// WrapError tags err with a semantic kind and the failing operation.
// errors.Is matches both the kind and the original error afterwards.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}

// StoreError is a connection-level failure attributed to one retrieval
// store. It matches both errors.As for the store identity and
// errors.Is(err, ErrStoreUnavailable) for the kind.
type StoreError struct {
	Store StoreKind
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

func NewStoreError(store StoreKind, op string, err error) *StoreError {
	return &StoreError{Store: store, Op: op, Err: err}
}
