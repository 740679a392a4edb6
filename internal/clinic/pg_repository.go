package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db DBTX
}

func NewPgRepository(db DBTX) *PgRepository {
	return &PgRepository{db: db}
}

const (
	activeSlotConstraint    = "appointments_active_slot_key"
	userEmailConstraint     = "users_email_key"
	transactionIDConstraint = "payments_transaction_id_key"
)

const userColumns = `id, name, email, phone, password_hash, role, created_at`

const doctorSelect = `
	SELECT d.id, d.user_id, u.name, u.email, u.phone, d.specialization, d.degree,
	       d.qualification, d.bio, d.experience, d.consultation_fee, d.availability
	FROM doctors d
	JOIN users u ON u.id = d.user_id`

const appointmentColumns = `id, patient_id, doctor_id, date, time, status, notes, created_at, updated_at`

const appointmentViewSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.date, a.time, a.status, a.notes, a.created_at, a.updated_at,
	       d.user_id, du.name, pu.name, d.specialization, d.consultation_fee,
	       (SELECT p.status FROM payments p WHERE p.appointment_id = a.id ORDER BY p.id LIMIT 1) AS payment_status
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN users pu ON pu.id = a.patient_id`

// Helpers

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case activeSlotConstraint:
			return ErrSlotAlreadyBooked
		case userEmailConstraint:
			return ErrEmailTaken
		case transactionIDConstraint:
			return ErrDuplicateTransactionID
		}
		return fmt.Errorf("%w: duplicate value for %s", ErrConstraint, pgErr.ConstraintName)
	case "23503":
		return fmt.Errorf("%w: referenced record does not exist", ErrConstraint)
	case "23514":
		return fmt.Errorf("%w: value not allowed for %s", ErrConstraint, pgErr.ConstraintName)
	}
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, mapPgError(err)
	}

	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.Email,
		&d.Phone,
		&d.Specialization,
		&d.Degree,
		&d.Qualification,
		&d.Bio,
		&d.Experience,
		&d.ConsultationFee,
		&d.Availability,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, mapPgError(err)
	}

	return &a, nil
}

func scanAppointmentView(row pgx.Row) (*AppointmentView, error) {
	var v AppointmentView
	var paymentStatus *string

	err := row.Scan(
		&v.ID,
		&v.PatientID,
		&v.DoctorID,
		&v.Date,
		&v.Time,
		&v.Status,
		&v.Notes,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.DoctorUserID,
		&v.DoctorName,
		&v.PatientName,
		&v.Specialization,
		&v.ConsultationFee,
		&paymentStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if paymentStatus != nil {
		ps := PaymentStatus(*paymentStatus)
		v.PaymentStatus = &ps
	}
	return &v, nil
}

// Accounts

func (r *PgRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// ContactEmail lets the repository act as the notifier's recipient directory.
func (r *PgRepository) ContactEmail(ctx context.Context, userID int64) (string, error) {
	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (r *PgRepository) CreateAccount(ctx context.Context, user User, patient *Patient, doctor *Doctor) (*User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.Name, user.Email, user.Phone, user.PasswordHash, string(user.Role)))
	if err != nil {
		return nil, err
	}

	if patient != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (user_id, age, gender, blood_group)
			VALUES ($1, $2, $3, $4)
		`, created.ID, patient.Age, patient.Gender, patient.BloodGroup)
		if err != nil {
			return nil, fmt.Errorf("insert patient: %w", mapPgError(err))
		}
	}

	if doctor != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (user_id, specialization, degree, qualification, experience)
			VALUES ($1, $2, $3, $4, $5)
		`, created.ID, doctor.Specialization, doctor.Degree, doctor.Qualification, doctor.Experience)
		if err != nil {
			return nil, fmt.Errorf("insert doctor: %w", mapPgError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *PgRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) GetPatientByUserID(ctx context.Context, userID int64) (*Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, age, gender, blood_group
		FROM patients
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.Age, &p.Gender, &p.BloodGroup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) UpdatePatient(ctx context.Context, userID int64, upd PatientUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET name = $2, phone = $3
		WHERE id = $1 AND role = 'patient'
	`, userID, upd.Name, upd.Phone)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO patients (user_id, age, gender, blood_group)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET age = EXCLUDED.age, gender = EXCLUDED.gender, blood_group = EXCLUDED.blood_group
	`, userID, upd.Age, upd.Gender, upd.BloodGroup)
	if err != nil {
		return fmt.Errorf("upsert patient: %w", mapPgError(err))
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, doctorSelect+` ORDER BY d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	return scanDoctor(r.db.QueryRow(ctx, doctorSelect+` WHERE d.id = $1`, id))
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	return scanDoctor(r.db.QueryRow(ctx, doctorSelect+` WHERE d.user_id = $1`, userID))
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, id int64, upd DoctorUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		UPDATE doctors
		SET specialization = $2,
		    degree = $3,
		    qualification = $4,
		    bio = $5,
		    experience = $6,
		    consultation_fee = $7,
		    availability = COALESCE($8, availability)
		WHERE id = $1
		RETURNING user_id
	`, id, upd.Specialization, upd.Degree, upd.Qualification, upd.Bio, upd.Experience, upd.ConsultationFee, upd.Availability).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDoctorNotFound
		}
		return mapPgError(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET name = $2, phone = $3 WHERE id = $1`, userID, upd.Name, upd.Phone); err != nil {
		return mapPgError(err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM users
		WHERE id = (SELECT user_id FROM doctors WHERE id = $1)
	`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) FindActiveAppointmentForSlot(ctx context.Context, slot Slot) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status <> 'cancelled'
		LIMIT 1
	`, slot.DoctorID, slot.Date, slot.Time)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, date, time, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING `+appointmentColumns,
		req.PatientID, req.DoctorID, req.Date, req.Time)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentView(ctx context.Context, id int64) (*AppointmentView, error) {
	return scanAppointmentView(r.db.QueryRow(ctx, appointmentViewSelect+` WHERE a.id = $1`, id))
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from, to AppointmentStatus, notes *string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = COALESCE($4, notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, string(to), string(from), notes)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]AppointmentView, error) {
	query, args := buildAppointmentQuery(f)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []AppointmentView{}
	for rows.Next() {
		v, err := scanAppointmentView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func buildAppointmentQuery(f AppointmentFilter) (string, []any) {
	var where []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.PatientID != nil {
		add("a.patient_id = $%d", *f.PatientID)
	}
	if f.DoctorUserID != nil {
		add("d.user_id = $%d", *f.DoctorUserID)
	}
	if f.Status != nil {
		add("a.status = $%d", string(*f.Status))
	}
	if f.Date != nil {
		add("a.date = $%d", *f.Date)
	}

	var b strings.Builder
	b.WriteString(appointmentViewSelect)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY a.date DESC, a.time DESC, a.id DESC")
	return b.String(), args
}

// Payments and reporting

func (r *PgRepository) CreatePayment(ctx context.Context, p Payment) (*Payment, error) {
	var out Payment
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (appointment_id, amount, status, transaction_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, appointment_id, amount, status, transaction_id, created_at
	`, p.AppointmentID, p.Amount, string(p.Status), p.TransactionID).Scan(
		&out.ID,
		&out.AppointmentID,
		&out.Amount,
		&out.Status,
		&out.TransactionID,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &out, nil
}

func (r *PgRepository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'patient'),
			(SELECT COUNT(*) FROM users WHERE role = 'doctor'),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed')
	`).Scan(&s.TotalPatients, &s.TotalDoctors, &s.TotalAppointments, &s.Revenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
