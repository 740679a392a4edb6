package clinic

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Register creates a patient or doctor account together with its profile row.
// Admin accounts are provisioned by the seed command only.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.Specialization = strings.TrimSpace(reg.Specialization)

	if err := validateRegistration(reg); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Name:         reg.Name,
		Email:        reg.Email,
		Phone:        reg.Phone,
		PasswordHash: string(hash),
		Role:         reg.Role,
	}

	var patient *Patient
	var doctor *Doctor
	switch reg.Role {
	case RolePatient:
		patient = &Patient{Age: reg.Age, Gender: reg.Gender, BloodGroup: reg.BloodGroup}
	case RoleDoctor:
		doctor = &Doctor{
			Specialization: reg.Specialization,
			Degree:         reg.Degree,
			Qualification:  reg.Qualification,
			Experience:     reg.Experience,
		}
	}

	created, err := s.repo.CreateAccount(ctx, user, patient, doctor)
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrConstraint) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Printf("registered user_id=%d role=%s", created.ID, created.Role)
	return created, nil
}

func validateRegistration(reg Registration) error {
	switch {
	case reg.Name == "":
		return validationError("name is required")
	case reg.Email == "":
		return validationError("email is required")
	case len(reg.Password) < minPasswordLen:
		return validationError("password must be at least %d characters", minPasswordLen)
	case reg.Role != RolePatient && reg.Role != RoleDoctor:
		return validationError("role must be patient or doctor")
	case reg.Role == RoleDoctor && reg.Specialization == "":
		return validationError("specialization is required for doctors")
	case reg.Experience < 0:
		return validationError("experience cannot be negative")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return validationError("email is invalid")
	}
	return nil
}

// Login verifies the password against the stored bcrypt hash.
func (s *Service) Login(ctx context.Context, email, password string) (*Profile, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Printf("login failed email=%q: unknown user", email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Printf("login failed user_id=%d: bad password", user.ID)
		return nil, ErrInvalidCredentials
	}

	profile := &Profile{User: *user}

	switch user.Role {
	case RolePatient:
		p, err := s.repo.GetPatientByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, ErrPatientNotFound) {
			return nil, fmt.Errorf("load patient profile: %w", err)
		}
		profile.Patient = p
	case RoleDoctor:
		d, err := s.repo.GetDoctorByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, ErrDoctorNotFound) {
			return nil, fmt.Errorf("load doctor profile: %w", err)
		}
		profile.Doctor = d
	}

	s.logger.Printf("login succeeded user_id=%d role=%s", user.ID, user.Role)
	return profile, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if doctors == nil {
		doctors = []Doctor{}
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	d, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id int64, upd DoctorUpdate) (*Doctor, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Specialization = strings.TrimSpace(upd.Specialization)

	switch {
	case upd.Name == "":
		return nil, validationError("name is required")
	case upd.Specialization == "":
		return nil, validationError("specialization is required")
	case upd.Experience < 0:
		return nil, validationError("experience cannot be negative")
	case upd.ConsultationFee < 0:
		return nil, validationError("consultation_fee cannot be negative")
	}

	if err := s.repo.UpdateDoctor(ctx, id, upd); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraint) {
			return nil, err
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return s.GetDoctor(ctx, id)
}

// DeleteDoctor removes the doctor's user account, which cascades to the doctor row,
// its appointments and their payments.
func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDoctor(ctx, id); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return err
		}
		return fmt.Errorf("delete doctor: %w", err)
	}
	s.logger.Printf("deleted doctor_id=%d", id)
	return nil
}

func (s *Service) UpdatePatient(ctx context.Context, userID int64, upd PatientUpdate) error {
	upd.Name = strings.TrimSpace(upd.Name)
	if upd.Name == "" {
		return validationError("name is required")
	}
	if upd.Age != nil && *upd.Age < 0 {
		return validationError("age cannot be negative")
	}

	if err := s.repo.UpdatePatient(ctx, userID, upd); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraint) {
			return err
		}
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Printf("deleted user_id=%d", id)
	return nil
}
