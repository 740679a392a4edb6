package clinic

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        *string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Doctor is the doctor row joined with the owning user's contact fields.
type Doctor struct {
	ID              int64
	UserID          int64
	Name            string
	Email           string
	Phone           *string
	Specialization  string
	Degree          *string
	Qualification   *string
	Bio             *string
	Experience      int
	ConsultationFee float64
	Availability    *string
}

type Patient struct {
	ID         int64
	UserID     int64
	Age        *int
	Gender     *string
	BloodGroup *string
}

// Slot is a (doctor, date, time) triple a patient can reserve.
type Slot struct {
	DoctorID int64
	Date     string
	Time     string
}

func (s Slot) Key() string {
	return fmt.Sprintf("%d:%s:%s", s.DoctorID, s.Date, s.Time)
}

type Appointment struct {
	ID        int64
	PatientID int64
	DoctorID  int64
	Date      string
	Time      string
	Status    AppointmentStatus
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// AppointmentView is an appointment enriched with joined names and the derived payment status.
type AppointmentView struct {
	Appointment
	DoctorUserID    int64
	DoctorName      string
	PatientName     string
	Specialization  string
	ConsultationFee float64
	PaymentStatus   *PaymentStatus
}

type Payment struct {
	ID            int64
	AppointmentID int64
	Amount        float64
	Status        PaymentStatus
	TransactionID string
	CreatedAt     time.Time
}

type Stats struct {
	TotalPatients     int64
	TotalDoctors      int64
	TotalAppointments int64
	Revenue           float64
}

type Event struct {
	ID            int64
	EventType     string
	AppointmentID *int64
	Payload       []byte
	CreatedAt     time.Time
}

// Profile is what a successful login returns.
type Profile struct {
	User
	Patient *Patient
	Doctor  *Doctor
}

type BookingRequest struct {
	PatientID int64
	DoctorID  int64
	Date      string
	Time      string
}

func (r BookingRequest) normalized() BookingRequest {
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	return r
}

func (r BookingRequest) Slot() Slot {
	return Slot{DoctorID: r.DoctorID, Date: r.Date, Time: r.Time}
}

type Registration struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Phone    *string

	// patient profile
	Age        *int
	Gender     *string
	BloodGroup *string

	// doctor profile
	Specialization string
	Degree         *string
	Qualification  *string
	Experience     int
}

type DoctorUpdate struct {
	Name            string
	Phone           *string
	Specialization  string
	Degree          *string
	Qualification   *string
	Bio             *string
	Experience      int
	ConsultationFee float64
	Availability    *string
}

type PatientUpdate struct {
	Name       string
	Phone      *string
	Age        *int
	Gender     *string
	BloodGroup *string
}
