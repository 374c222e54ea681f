package appointment

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	doctors  map[uuid.UUID]*Doctor
	windows  map[uuid.UUID][]Window
	appts    map[uuid.UUID]*Appointment

	// afterListActive runs after the conflict read, outside the lock, so tests
	// can interleave concurrent bookings between check and insert.
	afterListActive func()
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		doctors:  make(map[uuid.UUID]*Doctor),
		windows:  make(map[uuid.UUID][]Window),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (m *mockRepo) addPatient() *Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Patient{ID: uuid.New(), UserID: uuid.New(), Name: "Test Patient"}
	m.patients[p.ID] = p
	return p
}

func (m *mockRepo) addDoctor(windows ...Window) *Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &Doctor{ID: uuid.New(), UserID: uuid.New(), FirstName: "Ada", LastName: "House", Active: true}
	m.doctors[d.ID] = d
	for _, w := range windows {
		w.ID = uuid.New()
		w.DoctorID = d.ID
		m.windows[d.ID] = append(m.windows[d.ID], w)
	}
	return d
}

func (m *mockRepo) addListedDoctor(first, last, specialty string, active bool) *Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &Doctor{ID: uuid.New(), UserID: uuid.New(), FirstName: first, LastName: last, Active: active}
	if specialty != "" {
		d.Specialty = &specialty
	}
	m.doctors[d.ID] = d
	return d
}

func (m *mockRepo) seedAppointment(a Appointment) *Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appts[a.ID] = &a
	return &a
}

func (m *mockRepo) status(id uuid.UUID) AppointmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appts[id].Status
}

func (m *mockRepo) all() []Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		out = append(out, *a)
	}
	return out
}

func (m *mockRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) ListDoctors(_ context.Context, f DoctorFilter) ([]Doctor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Doctor
	for _, d := range m.doctors {
		if !d.Active {
			continue
		}
		if f.Specialty != nil && (d.Specialty == nil || !strings.EqualFold(*d.Specialty, *f.Specialty)) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(d.FirstName+" "+d.LastName), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, *d)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (m *mockRepo) ListSpecialties(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, d := range m.doctors {
		if d.Active && d.Specialty != nil && *d.Specialty != "" && !seen[*d.Specialty] {
			seen[*d.Specialty] = true
			out = append(out, *d.Specialty)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockRepo) ListWindows(_ context.Context, doctorID uuid.UUID) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Window(nil), m.windows[doctorID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *mockRepo) ListActiveWindowsForDay(_ context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Window
	for _, w := range m.windows[doctorID] {
		if w.Active && w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockRepo) ReplaceWindows(_ context.Context, doctorID uuid.UUID, windows []Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[doctorID] = append([]Window(nil), windows...)
	return nil
}

func (m *mockRepo) ListActiveAppointments(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	m.mu.Lock()
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			out = append(out, *a)
		}
	}
	hook := m.afterListActive
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *mockRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

// InsertAppointment enforces the active-overlap rule atomically, like the
// exclusion constraint does in Postgres.
func (m *mockRepo) InsertAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.appts {
		if other.DoctorID != a.DoctorID || !other.Date.Equal(a.Date) || !other.Status.Active() {
			continue
		}
		if Overlaps(a.Time, a.End(), other.Time, other.End()) {
			return nil, ErrSlotUnavailable
		}
	}
	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus, notes *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
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

func (m *mockRepo) detail(a *Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: *a}
	if doc, ok := m.doctors[a.DoctorID]; ok {
		cp := *doc
		d.Doctor = &cp
	}
	if p, ok := m.patients[a.PatientID]; ok {
		cp := *p
		d.Patient = &cp
	}
	return d
}

func (m *mockRepo) ListAppointments(_ context.Context, f AppointmentFilter) ([]AppointmentDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Appointment
	for _, a := range m.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		less := a.Date.Before(b.Date) || (a.Date.Equal(b.Date) && a.Time < b.Time)
		if f.NewestFirst {
			return !less && !(a.Date.Equal(b.Date) && a.Time == b.Time)
		}
		return less
	})

	total := len(matched)
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}

	out := make([]AppointmentDetail, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, m.detail(a))
	}
	return out, total, nil
}

func (m *mockRepo) ListConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AppointmentDetail
	for _, a := range m.appts {
		if a.Status != StatusConfirmed {
			continue
		}
		start := a.Date.Add(a.Time.Duration())
		if !start.Before(from) && start.Before(to) {
			out = append(out, m.detail(a))
		}
	}
	return out, nil
}

// -- Mock collaborators --

type passLocker struct{}

func (passLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (l *mutexLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) take() []NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}
