package clinic

import (
	"context"
	"errors"
	"fmt"
)

// ListAppointments returns the appointments visible to viewer, most recent first.
// Patients see their own bookings, doctors see bookings made with them and every
// other role gets the unscoped admin view.
func (s *Service) ListAppointments(ctx context.Context, viewerID int64, role Role) ([]AppointmentView, error) {
	var f AppointmentFilter

	switch role {
	case RolePatient:
		f.PatientID = &viewerID
	case RoleDoctor:
		f.DoctorUserID = &viewerID
	}

	list, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*AppointmentView, error) {
	v, err := s.repo.GetAppointmentView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return v, nil
}

func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}
	return st, nil
}
