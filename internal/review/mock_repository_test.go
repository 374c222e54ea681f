package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

// -- In-memory Repository --

type memRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]*Review
	names   map[uuid.UUID]string
	clock   time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		reviews: make(map[uuid.UUID]*Review),
		names:   make(map[uuid.UUID]string),
		clock:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memRepo) Insert(_ context.Context, r *Review) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.AppointmentID == r.AppointmentID {
			return nil, ErrAlreadyReviewed
		}
	}
	cp := *r
	cp.CreatedAt = m.tick()
	cp.UpdatedAt = cp.CreatedAt
	cp.PatientName = m.names[cp.PatientID]
	cp.DoctorName = m.names[cp.DoctorID]
	m.reviews[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]Review, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Review
	for _, r := range m.reviews {
		if f.DoctorID != nil && r.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && r.PatientID != *f.PatientID {
			continue
		}
		if f.Rating != nil && r.Rating != *f.Rating {
			continue
		}
		matched = append(matched, *r)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.SortBy == SortByRating && a.Rating != b.Rating {
			if f.Ascending {
				return a.Rating < b.Rating
			}
			return a.Rating > b.Rating
		}
		if f.SortBy != SortByRating && f.Ascending {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
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

func (m *memRepo) Update(_ context.Context, r *Review) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reviews[r.ID]
	if !ok {
		return nil, ErrReviewNotFound
	}
	stored.Rating, stored.Comment, stored.Anonymous = r.Rating, r.Comment, r.Anonymous
	stored.UpdatedAt = m.tick()
	cp := *stored
	return &cp, nil
}

func (m *memRepo) SetResponse(_ context.Context, id uuid.UUID, response string) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	at := m.tick()
	stored.DoctorResponse, stored.RespondedAt, stored.UpdatedAt = &response, &at, at
	cp := *stored
	return &cp, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *memRepo) RatingCounts(_ context.Context, doctorID uuid.UUID) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int)
	for _, r := range m.reviews {
		if r.DoctorID == doctorID {
			counts[r.Rating]++
		}
	}
	return counts, nil
}

// -- Booking store fake --

type fakeAppointments struct {
	appts    map[uuid.UUID]*appointment.Appointment
	doctors  map[uuid.UUID]*appointment.Doctor
	patients map[uuid.UUID]*appointment.Patient
}

func (f *fakeAppointments) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointments) GetDoctorByID(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, appointment.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeAppointments) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []appointment.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev appointment.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) take() []appointment.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}
