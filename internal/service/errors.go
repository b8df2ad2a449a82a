// Package service holds the task lifecycle engine, the reputation
// subsystem and the comment thread service.  Handlers call into it with an
// already authenticated caller id; every rejection comes back as an *Error
// whose Kind tells the transport layer which status to use.
package service

import (
	"errors"
	"fmt"
)

// Error kinds.  Match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("state conflict")
	ErrNotFound   = errors.New("not found")
)

// Error is a rejected operation.  Reason is safe to show to clients.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Is lets errors.Is(err, ErrConflict) and friends match on the kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func invalid(reason string) error    { return &Error{Kind: ErrValidation, Reason: reason} }
func forbidden(reason string) error  { return &Error{Kind: ErrForbidden, Reason: reason} }
func conflict(reason string) error   { return &Error{Kind: ErrConflict, Reason: reason} }
func notFound(reason string) error   { return &Error{Kind: ErrNotFound, Reason: reason} }
func wrap(op string, err error) error { return fmt.Errorf("%s: %w", op, err) }
