package services

import (
	"errors"
	"fmt"

	"attendance-bot-server/models"
)

// Domain errors returned by the invitation and attendance services. The HTTP
// layer maps each kind to a status code; none of these are logged-and-dropped.
var (
	ErrNotFound           = errors.New("invitation not found")
	ErrCancelled          = errors.New("invitation was cancelled")
	ErrInvalidCoordinates = errors.New("latitude or longitude out of range")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ExpiredError reports an invitation past its expiration. JustExpired is true
// when this very call performed the lazy pending→expired transition.
type ExpiredError struct {
	JustExpired bool
}

func (e *ExpiredError) Error() string {
	return "invitation has expired"
}

// AlreadyAcceptedError carries the employee the invitation was converted
// into, so callers can show who claimed it.
type AlreadyAcceptedError struct {
	Employee *models.Employee
}

func (e *AlreadyAcceptedError) Error() string {
	return "invitation was already accepted"
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// StoreError wraps a persistence failure that is not a domain outcome.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
