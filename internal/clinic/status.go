package clinic

import (
	"context"
	"errors"
	"fmt"
)

// SetStatus moves an appointment along the transition table and tells the patient.
// notes replaces the stored notes when non-nil.
func (s *Service) SetStatus(ctx context.Context, id int64, to AppointmentStatus, notes *string) (*Appointment, error) {
	if !to.Valid() {
		return nil, validationError("unknown status %q", to)
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := checkTransition(current.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, current.Status, to, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// the row moved on between the read and the guarded write
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"from": current.Status,
		"to":   updated.Status,
	})

	view, err := s.repo.GetAppointmentView(ctx, updated.ID)
	if err != nil {
		s.logger.Printf("load appointment %d for status notification: %v", updated.ID, err)
		return updated, nil
	}

	subject, body, err := statusMail(view)
	if err != nil {
		s.logger.Printf("render status mail for appointment %d: %v", updated.ID, err)
		return updated, nil
	}
	s.notify(ctx, updated.PatientID, subject, body)

	return updated, nil
}
