package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hackgods/clinic-booking/internal/clinic"
)

// Service is the clinic behaviour the HTTP layer depends on. *clinic.Service implements it.
type Service interface {
	BookAppointment(ctx context.Context, req clinic.BookingRequest) (*clinic.Appointment, error)
	SetStatus(ctx context.Context, id int64, to clinic.AppointmentStatus, notes *string) (*clinic.Appointment, error)
	ListAppointments(ctx context.Context, viewerID int64, role clinic.Role) ([]clinic.AppointmentView, error)
	GetAppointment(ctx context.Context, id int64) (*clinic.AppointmentView, error)
	ComputeStats(ctx context.Context) (*clinic.Stats, error)
	CreatePayment(ctx context.Context, appointmentID int64, amount float64) (*clinic.Payment, error)

	Register(ctx context.Context, reg clinic.Registration) (*clinic.User, error)
	Login(ctx context.Context, email, password string) (*clinic.Profile, error)
	ListDoctors(ctx context.Context) ([]clinic.Doctor, error)
	GetDoctor(ctx context.Context, id int64) (*clinic.Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, upd clinic.DoctorUpdate) (*clinic.Doctor, error)
	DeleteDoctor(ctx context.Context, id int64) error
	UpdatePatient(ctx context.Context, userID int64, upd clinic.PatientUpdate) error
	DeleteUser(ctx context.Context, id int64) error
}

type RouterConfig struct {
	Service Service
	// Checks are pinged by /health/ready, keyed by dependency name.
	Checks  map[string]Pinger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", registerHandler(svc))
		r.Post("/auth/login", loginHandler(svc))

		r.Get("/doctors", listDoctorsHandler(svc))
		r.Get("/doctors/{id}", getDoctorHandler(svc))
		r.Put("/doctors/{id}", updateDoctorHandler(svc))
		r.Delete("/doctors/{id}", deleteDoctorHandler(svc))

		r.Put("/patients/{userID}", updatePatientHandler(svc))
		r.Delete("/users/{id}", deleteUserHandler(svc))

		r.Post("/appointments", createAppointmentHandler(svc))
		r.Get("/appointments/detail/{id}", getAppointmentHandler(svc))
		// {id} is the viewer's user id here and the appointment id on PATCH
		r.Get("/appointments/{id}", listAppointmentsHandler(svc))
		r.Patch("/appointments/{id}", updateStatusHandler(svc))

		r.Post("/payments", createPaymentHandler(svc))

		r.Get("/admin/stats", statsHandler(svc))
	})

	return r
}
