package clinic

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/clinic-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

// fakeRepo is an in-memory Repository that mirrors the schema's foreign keys,
// cascades and the partial unique index on active slots.
type fakeRepo struct {
	mu sync.Mutex

	seq map[string]int64

	users    map[int64]*User
	doctors  map[int64]*Doctor
	patients map[int64]*Patient
	appts    map[int64]*Appointment
	payments map[int64]*Payment
	events   []Event

	// hooks
	hideActiveSlots bool  // FindActiveAppointmentForSlot always misses, as in a check-then-insert race
	eventErr        error // InsertEvent failure
	listErr         error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		seq:      map[string]int64{},
		users:    map[int64]*User{},
		doctors:  map[int64]*Doctor{},
		patients: map[int64]*Patient{},
		appts:    map[int64]*Appointment{},
		payments: map[int64]*Payment{},
	}
}

func (f *fakeRepo) next(table string) int64 {
	f.seq[table]++
	return f.seq[table]
}

// seeding helpers

func (f *fakeRepo) putUser(id int64, name string, role Role) *User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == 0 {
		id = f.next("users")
	} else if id > f.seq["users"] {
		f.seq["users"] = id
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	u := &User{ID: id, Name: name, Email: name + "@example.com", PasswordHash: string(hash), Role: role, CreatedAt: time.Now()}
	f.users[id] = u
	return u
}

func (f *fakeRepo) putDoctor(id, userID int64, specialization string) *Doctor {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == 0 {
		id = f.next("doctors")
	} else if id > f.seq["doctors"] {
		f.seq["doctors"] = id
	}
	d := &Doctor{ID: id, UserID: userID, Specialization: specialization, ConsultationFee: 500}
	f.doctors[id] = d
	return d
}

func (f *fakeRepo) putPayment(appointmentID int64, amount float64, status PaymentStatus) *Payment {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &Payment{ID: f.next("payments"), AppointmentID: appointmentID, Amount: amount, Status: status, TransactionID: newTransactionID()}
	f.payments[p.ID] = p
	return p
}

func (f *fakeRepo) activeCount(slot Slot) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, a := range f.appts {
		if a.Slot() == slot && a.Status != StatusCancelled {
			n++
		}
	}
	return n
}

func (f *fakeRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

func (f *fakeRepo) joinDoctor(d *Doctor) Doctor {
	out := *d
	if u, ok := f.users[d.UserID]; ok {
		out.Name = u.Name
		out.Email = u.Email
		out.Phone = u.Phone
	}
	return out
}

func (f *fakeRepo) view(a *Appointment) AppointmentView {
	v := AppointmentView{Appointment: *a}
	if d, ok := f.doctors[a.DoctorID]; ok {
		v.DoctorUserID = d.UserID
		v.Specialization = d.Specialization
		v.ConsultationFee = d.ConsultationFee
		if u, ok := f.users[d.UserID]; ok {
			v.DoctorName = u.Name
		}
	}
	if u, ok := f.users[a.PatientID]; ok {
		v.PatientName = u.Name
	}

	var first *Payment
	for _, p := range f.payments {
		if p.AppointmentID == a.ID && (first == nil || p.ID < first.ID) {
			first = p
		}
	}
	if first != nil {
		ps := first.Status
		v.PaymentStatus = &ps
	}
	return v
}

// Repository

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) CreateAccount(_ context.Context, user User, patient *Patient, doctor *Doctor) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, ErrEmailTaken
		}
	}

	user.ID = f.next("users")
	user.CreatedAt = time.Now()
	f.users[user.ID] = &user

	if patient != nil {
		p := *patient
		p.ID = f.next("patients")
		p.UserID = user.ID
		f.patients[p.ID] = &p
	}
	if doctor != nil {
		d := *doctor
		d.ID = f.next("doctors")
		d.UserID = user.ID
		d.ConsultationFee = 500
		f.doctors[d.ID] = &d
	}

	cp := user
	return &cp, nil
}

// DeleteUser cascades exactly like the ON DELETE CASCADE chain in schema.sql.
func (f *fakeRepo) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return ErrUserNotFound
	}
	f.deleteUserLocked(id)
	return nil
}

func (f *fakeRepo) deleteUserLocked(id int64) {
	delete(f.users, id)

	goneDoctors := map[int64]bool{}
	for did, d := range f.doctors {
		if d.UserID == id {
			goneDoctors[did] = true
			delete(f.doctors, did)
		}
	}
	for pid, p := range f.patients {
		if p.UserID == id {
			delete(f.patients, pid)
		}
	}

	goneAppts := map[int64]bool{}
	for aid, a := range f.appts {
		if a.PatientID == id || goneDoctors[a.DoctorID] {
			goneAppts[aid] = true
			delete(f.appts, aid)
		}
	}
	for pid, p := range f.payments {
		if goneAppts[p.AppointmentID] {
			delete(f.payments, pid)
		}
	}

	kept := f.events[:0]
	for _, e := range f.events {
		if e.AppointmentID != nil && goneAppts[*e.AppointmentID] {
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
}

func (f *fakeRepo) GetPatientByUserID(_ context.Context, userID int64) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.patients {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepo) UpdatePatient(_ context.Context, userID int64, upd PatientUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok || u.Role != RolePatient {
		return ErrPatientNotFound
	}
	u.Name = upd.Name
	u.Phone = upd.Phone

	for _, p := range f.patients {
		if p.UserID == userID {
			p.Age, p.Gender, p.BloodGroup = upd.Age, upd.Gender, upd.BloodGroup
			return nil
		}
	}
	p := &Patient{ID: f.next("patients"), UserID: userID, Age: upd.Age, Gender: upd.Gender, BloodGroup: upd.BloodGroup}
	f.patients[p.ID] = p
	return nil
}

func (f *fakeRepo) ListDoctors(_ context.Context) ([]Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Doctor
	for _, d := range f.doctors {
		out = append(out, f.joinDoctor(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id int64) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := f.joinDoctor(d)
	return &out, nil
}

func (f *fakeRepo) GetDoctorByUserID(_ context.Context, userID int64) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.doctors {
		if d.UserID == userID {
			out := f.joinDoctor(d)
			return &out, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) UpdateDoctor(_ context.Context, id int64, upd DoctorUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	d.Specialization = upd.Specialization
	d.Degree = upd.Degree
	d.Qualification = upd.Qualification
	d.Bio = upd.Bio
	d.Experience = upd.Experience
	d.ConsultationFee = upd.ConsultationFee
	if upd.Availability != nil {
		d.Availability = upd.Availability
	}
	if u, ok := f.users[d.UserID]; ok {
		u.Name = upd.Name
		u.Phone = upd.Phone
	}
	return nil
}

func (f *fakeRepo) DeleteDoctor(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	f.deleteUserLocked(d.UserID)
	return nil
}

func (f *fakeRepo) FindActiveAppointmentForSlot(_ context.Context, slot Slot) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hideActiveSlots {
		return nil, ErrAppointmentNotFound
	}
	for _, a := range f.appts {
		if a.Slot() == slot && a.Status != StatusCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) CreateAppointment(_ context.Context, req BookingRequest) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[req.PatientID]; !ok {
		return nil, ErrConstraint
	}
	if _, ok := f.doctors[req.DoctorID]; !ok {
		return nil, ErrConstraint
	}
	// appointments_active_slot_key
	for _, a := range f.appts {
		if a.Slot() == req.Slot() && a.Status != StatusCancelled {
			return nil, ErrSlotAlreadyBooked
		}
	}

	now := time.Now()
	a := &Appointment{
		ID:        f.next("appointments"),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.appts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id int64) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAppointmentView(_ context.Context, id int64) (*AppointmentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	v := f.view(a)
	return &v, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, id int64, from, to AppointmentStatus, notes *string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	if to != StatusCancelled {
		for _, other := range f.appts {
			if other.ID != id && other.Slot() == a.Slot() && other.Status != StatusCancelled {
				return nil, ErrSlotAlreadyBooked
			}
		}
	}
	a.Status = to
	if notes != nil {
		n := *notes
		a.Notes = &n
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListAppointments(_ context.Context, flt AppointmentFilter) ([]AppointmentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	out := []AppointmentView{}
	for _, a := range f.appts {
		v := f.view(a)
		if flt.PatientID != nil && v.PatientID != *flt.PatientID {
			continue
		}
		if flt.DoctorUserID != nil && v.DoctorUserID != *flt.DoctorUserID {
			continue
		}
		if flt.Status != nil && v.Status != *flt.Status {
			continue
		}
		if flt.Date != nil && v.Date != *flt.Date {
			continue
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, p Payment) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.appts[p.AppointmentID]; !ok {
		return nil, ErrConstraint
	}
	for _, existing := range f.payments {
		if existing.TransactionID == p.TransactionID {
			return nil, ErrDuplicateTransactionID
		}
	}
	p.ID = f.next("payments")
	p.CreatedAt = time.Now()
	f.payments[p.ID] = &p
	cp := p
	return &cp, nil
}

func (f *fakeRepo) Stats(_ context.Context) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var s Stats
	for _, u := range f.users {
		switch u.Role {
		case RolePatient:
			s.TotalPatients++
		case RoleDoctor:
			s.TotalDoctors++
		}
	}
	s.TotalAppointments = int64(len(f.appts))
	for _, p := range f.payments {
		if p.Status == PaymentCompleted {
			s.Revenue += p.Amount
		}
	}
	return &s, nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, ev)
	return nil
}

// locking and notification doubles

// memLocker is a process-local stand-in for the Redis slot lock.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type memMarker struct {
	mu     sync.Mutex
	marked map[string]bool
	err    error
}

func newMemMarker() *memMarker {
	return &memMarker{marked: map[string]bool{}}
}

func (m *memMarker) MarkOnce(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.marked[key] {
		return false, nil
	}
	m.marked[key] = true
	return true, nil
}

func (m *memMarker) Unmark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marked, key)
	return nil
}

type fixture struct {
	repo     *fakeRepo
	locker   *memLocker
	notifier *recordingNotifier
	svc      *Service
}

func newFixture() *fixture {
	repo := newFakeRepo()
	locker := newMemLocker()
	notifier := &recordingNotifier{}
	svc := NewService(repo, locker, notifier, log.New(io.Discard, "", 0), bcrypt.MinCost)
	return &fixture{repo: repo, locker: locker, notifier: notifier, svc: svc}
}

// clinicWith seeds patient user 1 and doctor 2 (owned by user 10).
func clinicWith(f *fixture) (patient *User, doctor *Doctor) {
	patient = f.repo.putUser(1, "alice", RolePatient)
	f.repo.putUser(10, "house", RoleDoctor)
	doctor = f.repo.putDoctor(2, 10, "Cardiologist")
	return patient, doctor
}

var errBoom = errors.New("boom")
