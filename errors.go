package escrow

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("escrow: not found")
	ErrAlreadyExists = errors.New("escrow: already exists")
	ErrInvalidInput  = errors.New("escrow: invalid input")

	// Caregiver errors
	ErrCaregiverNotFound = errors.New("escrow: caregiver not found")
	ErrCaregiverExists   = errors.New("escrow: caregiver already onboarded")

	// Booking errors
	ErrBookingNotFound  = errors.New("escrow: booking not found")
	ErrDuplicateBooking = errors.New("escrow: duplicate booking id")
	ErrNoActiveBooking  = errors.New("escrow: no pending booking for contact")

	// Payment lifecycle errors
	ErrPaymentNotPending = errors.New("escrow: payment is not pending")
	ErrInvalidAmount     = errors.New("escrow: invalid amount")
	ErrInvalidSplitRatio = errors.New("escrow: invalid split ratio")

	// Provider errors
	ErrProviderNotConfigured = errors.New("escrow: provider not configured")
	ErrPayoutFailed          = errors.New("escrow: payout failed")
	ErrMessageFailed         = errors.New("escrow: message delivery failed")

	// Store errors
	ErrStoreNotReady   = errors.New("escrow: store not ready")
	ErrStoreClosed     = errors.New("escrow: store is closed")
	ErrMigrationFailed = errors.New("escrow: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("escrow: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "escrow: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("escrow: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCaregiverNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrNoActiveBooking)
}

// IsConflict returns true if the error is a uniqueness or state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrCaregiverExists) ||
		errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrPaymentNotPending)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrPayoutFailed) ||
		errors.Is(err, ErrMessageFailed)
}
