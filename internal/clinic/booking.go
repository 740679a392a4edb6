package clinic

import (
	"context"
	"errors"
	"fmt"

	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

// BookAppointment reserves a slot for a patient.
// A per-slot lock serializes concurrent bookings and the partial unique index on
// active slots rejects anything that slips past the in-lock check.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	req = req.normalized()
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	patient, err := s.repo.GetUserByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.Role != RolePatient {
		return nil, ErrPatientNotFound
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, req.Slot().Key(), func(lockCtx context.Context) error {
		existing, err := s.repo.FindActiveAppointmentForSlot(lockCtx, req.Slot())
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		appt, err := s.repo.CreateAppointment(lockCtx, req)
		if err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrConstraint) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"patient_id": created.PatientID,
		"doctor_id":  created.DoctorID,
		"date":       created.Date,
		"time":       created.Time,
	})

	subject, body, err := bookedMail(doctor.Name, created.Date, created.Time)
	if err != nil {
		s.logger.Printf("render booking mail for appointment %d: %v", created.ID, err)
		return created, nil
	}
	s.notify(ctx, created.PatientID, subject, body)

	return created, nil
}

func validateBooking(req BookingRequest) error {
	switch {
	case req.PatientID <= 0:
		return validationError("patient_id is required")
	case req.DoctorID <= 0:
		return validationError("doctor_id is required")
	case req.Date == "":
		return validationError("date is required")
	case req.Time == "":
		return validationError("time is required")
	}
	return nil
}
