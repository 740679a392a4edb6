package api

import (
	"time"

	"github.com/hackgods/clinic-booking/internal/clinic"
)

// Requests

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"required,oneof=patient doctor"`
	Phone    *string `json:"phone"`

	Age        *int    `json:"age" validate:"omitempty,gte=0"`
	Gender     *string `json:"gender"`
	BloodGroup *string `json:"blood_group"`

	Specialization string  `json:"specialization" validate:"required_if=Role doctor"`
	Degree         *string `json:"degree"`
	Qualification  *string `json:"qualification"`
	Experience     int     `json:"experience" validate:"gte=0"`
}

func (r RegisterRequest) toRegistration() clinic.Registration {
	return clinic.Registration{
		Name:           r.Name,
		Email:          r.Email,
		Password:       r.Password,
		Role:           clinic.Role(r.Role),
		Phone:          r.Phone,
		Age:            r.Age,
		Gender:         r.Gender,
		BloodGroup:     r.BloodGroup,
		Specialization: r.Specialization,
		Degree:         r.Degree,
		Qualification:  r.Qualification,
		Experience:     r.Experience,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateDoctorRequest struct {
	Name            string   `json:"name" validate:"required"`
	Phone           *string  `json:"phone"`
	Specialization  string   `json:"specialization" validate:"required"`
	Degree          *string  `json:"degree"`
	Qualification   *string  `json:"qualification"`
	Bio             *string  `json:"bio"`
	Experience      int      `json:"experience" validate:"gte=0"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"required,gte=0"`
	Availability    *string  `json:"availability"`
}

func (r UpdateDoctorRequest) toUpdate() clinic.DoctorUpdate {
	return clinic.DoctorUpdate{
		Name:            r.Name,
		Phone:           r.Phone,
		Specialization:  r.Specialization,
		Degree:          r.Degree,
		Qualification:   r.Qualification,
		Bio:             r.Bio,
		Experience:      r.Experience,
		ConsultationFee: *r.ConsultationFee,
		Availability:    r.Availability,
	}
}

type UpdatePatientRequest struct {
	Name       string  `json:"name" validate:"required"`
	Phone      *string `json:"phone"`
	Age        *int    `json:"age" validate:"omitempty,gte=0"`
	Gender     *string `json:"gender"`
	BloodGroup *string `json:"blood_group"`
}

type CreateAppointmentRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	DoctorID  int64  `json:"doctor_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type CreatePaymentRequest struct {
	AppointmentID int64   `json:"appointment_id" validate:"required,gt=0"`
	Amount        float64 `json:"amount" validate:"required"`
}

// Responses

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u clinic.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

type PatientResponse struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	Age        *int    `json:"age"`
	Gender     *string `json:"gender"`
	BloodGroup *string `json:"blood_group"`
}

type DoctorResponse struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone"`
	Specialization  string  `json:"specialization"`
	Degree          *string `json:"degree"`
	Qualification   *string `json:"qualification"`
	Bio             *string `json:"bio"`
	Experience      int     `json:"experience"`
	ConsultationFee float64 `json:"consultation_fee"`
	Availability    *string `json:"availability"`
}

func toDoctorResponse(d clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		UserID:          d.UserID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Specialization:  d.Specialization,
		Degree:          d.Degree,
		Qualification:   d.Qualification,
		Bio:             d.Bio,
		Experience:      d.Experience,
		ConsultationFee: d.ConsultationFee,
		Availability:    d.Availability,
	}
}

type ProfileResponse struct {
	User    UserResponse     `json:"user"`
	Patient *PatientResponse `json:"patient,omitempty"`
	Doctor  *DoctorResponse  `json:"doctor,omitempty"`
}

func toProfileResponse(p clinic.Profile) ProfileResponse {
	resp := ProfileResponse{User: toUserResponse(p.User)}
	if p.Patient != nil {
		resp.Patient = &PatientResponse{
			ID:         p.Patient.ID,
			UserID:     p.Patient.UserID,
			Age:        p.Patient.Age,
			Gender:     p.Patient.Gender,
			BloodGroup: p.Patient.BloodGroup,
		}
	}
	if p.Doctor != nil {
		d := toDoctorResponse(*p.Doctor)
		resp.Doctor = &d
	}
	return resp
}

type AppointmentResponse struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	DoctorID  int64     `json:"doctor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAppointmentResponse(a clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Time:      a.Time,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type AppointmentViewResponse struct {
	AppointmentResponse
	DoctorName      string  `json:"doctor_name"`
	PatientName     string  `json:"patient_name"`
	Specialization  string  `json:"specialization"`
	ConsultationFee float64 `json:"consultation_fee"`
	PaymentStatus   *string `json:"payment_status"`
}

func toAppointmentViewResponse(v clinic.AppointmentView) AppointmentViewResponse {
	resp := AppointmentViewResponse{
		AppointmentResponse: toAppointmentResponse(v.Appointment),
		DoctorName:          v.DoctorName,
		PatientName:         v.PatientName,
		Specialization:      v.Specialization,
		ConsultationFee:     v.ConsultationFee,
	}
	if v.PaymentStatus != nil {
		ps := string(*v.PaymentStatus)
		resp.PaymentStatus = &ps
	}
	return resp
}

type PaymentResponse struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type StatsResponse struct {
	TotalPatients     int64   `json:"total_patients"`
	TotalDoctors      int64   `json:"total_doctors"`
	TotalAppointments int64   `json:"total_appointments"`
	Revenue           float64 `json:"revenue"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
