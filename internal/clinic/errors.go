package clinic

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service wraps one of these, so callers can
// classify with errors.Is without knowing the specific failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrConstraint      = errors.New("constraint violation")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	ErrUserNotFound        = kindError(ErrNotFound, "user not found")
	ErrPatientNotFound     = kindError(ErrNotFound, "patient not found")
	ErrDoctorNotFound      = kindError(ErrNotFound, "doctor not found")
	ErrAppointmentNotFound = kindError(ErrNotFound, "appointment not found")

	ErrSlotAlreadyBooked       = kindError(ErrConflict, "slot already booked")
	ErrSlotBeingBooked         = kindError(ErrConflict, "slot is currently being booked, please retry")
	ErrInvalidStatusTransition = kindError(ErrConflict, "invalid status transition")
	ErrStatusChanged           = kindError(ErrConflict, "appointment status changed concurrently")
	ErrEmailTaken              = kindError(ErrConflict, "email already registered")

	ErrDuplicateTransactionID = kindError(ErrConstraint, "duplicate transaction id")

	ErrInvalidCredentials = kindError(ErrUnauthenticated, "invalid credentials")
)

type kindErr struct {
	kind error
	msg  string
}

func (e *kindErr) Error() string { return e.msg }
func (e *kindErr) Unwrap() error { return e.kind }

func kindError(kind error, msg string) error {
	return &kindErr{kind: kind, msg: msg}
}

// validationError reports bad input; the message is safe to show to callers.
func validationError(format string, args ...any) error {
	return kindError(ErrValidation, fmt.Sprintf(format, args...))
}
