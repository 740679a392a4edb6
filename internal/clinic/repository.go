package clinic

import (
	"context"
)

// AppointmentFilter narrows ListAppointments. Nil fields are not applied.
type AppointmentFilter struct {
	PatientID    *int64
	DoctorUserID *int64
	Status       *AppointmentStatus
	Date         *string
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Accounts
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateAccount(ctx context.Context, user User, patient *Patient, doctor *Doctor) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	GetPatientByUserID(ctx context.Context, userID int64) (*Patient, error)
	UpdatePatient(ctx context.Context, userID int64, upd PatientUpdate) error

	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, upd DoctorUpdate) error
	// DeleteDoctor removes the owning user; the schema cascades the rest.
	DeleteDoctor(ctx context.Context, id int64) error

	// For conflict checks
	FindActiveAppointmentForSlot(ctx context.Context, slot Slot) (*Appointment, error)

	CreateAppointment(ctx context.Context, req BookingRequest) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	GetAppointmentView(ctx context.Context, id int64) (*AppointmentView, error)
	// UpdateAppointmentStatus only applies when the stored status still equals from.
	UpdateAppointmentStatus(ctx context.Context, id int64, from, to AppointmentStatus, notes *string) (*Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]AppointmentView, error)

	CreatePayment(ctx context.Context, p Payment) (*Payment, error)
	Stats(ctx context.Context) (*Stats, error)

	// Event logging
	InsertEvent(ctx context.Context, ev Event) error
}
