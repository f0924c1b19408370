package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by the booking core matches exactly one of
// these through errors.Is, except CompensationFailed which also matches the
// failure that triggered the compensation.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrPersistence         = errors.New("persistence error")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrCompensationFailed  = errors.New("compensation failed")
	ErrValidation          = errors.New("validation error")
)

var (
	ErrEventNotFound       = fmt.Errorf("event %w", ErrNotFound)
	ErrBookingNotFound     = fmt.Errorf("booking %w", ErrNotFound)
	ErrEventNotActive      = fmt.Errorf("event is not active: %w", ErrInvalidState)
	ErrAlreadyCancelled    = fmt.Errorf("booking is already cancelled: %w", ErrInvalidState)
	ErrInsufficientTickets = fmt.Errorf("insufficient tickets: %w", ErrCapacityExceeded)
	ErrBusy                = fmt.Errorf("event is busy, retry later: %w", ErrConcurrencyConflict)
	ErrInvalidTicketCount  = fmt.Errorf("ticket count must be a positive integer: %w", ErrValidation)
)

// Persistence wraps a storage driver failure so that it matches ErrPersistence
// while keeping the driver error reachable for errors.As.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Validation builds a validation error with a caller supplied message.
func Validation(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

// CompensationFailed reports that undoing a reservation failed after cause.
// The result matches ErrCompensationFailed and cause.
func CompensationFailed(cause, releaseErr error) error {
	return fmt.Errorf("%w: release failed (%v) after: %w", ErrCompensationFailed, releaseErr, cause)
}

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// HTTPStatus maps an error kind to the status code used by the REST layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrCompensationFailed):
		return http.StatusInternalServerError
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, ErrConcurrencyConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine readable code for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrCompensationFailed):
		return "compensation_failed"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "internal_error"
	}
}
