package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memTxKey struct{}

// memUndo collects the inverse of every write made inside a transaction.
// Entries run under m.mu, newest first, when the transaction fails.
type memUndo struct {
	ops []func()
}

func undoFrom(ctx context.Context) *memUndo {
	u, _ := ctx.Value(memTxKey{}).(*memUndo)
	return u
}

// MemoryStore is an in-memory AppointmentStore used for tests and the
// STORE_DRIVER=memory mode. A failed WithTx reverts only the writes made
// through its own context.
type MemoryStore struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	notes        map[uuid.UUID][]Note // appointment ID -> notes in insert order
	now          func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
		notes:        make(map[uuid.UUID][]Note),
		now:          time.Now,
	}
}

// AddPatient seeds a patient record. A zero ID is assigned.
func (m *MemoryStore) AddPatient(p Patient) *Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = &p
	cp := p
	return &cp
}

// AddDoctor seeds a doctor record. A zero ID is assigned.
func (m *MemoryStore) AddDoctor(d Doctor) *Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.doctors[d.ID] = &d
	cp := d
	return &cp
}

func (m *MemoryStore) CountPatients(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patients), nil
}

func (m *MemoryStore) CountDoctors(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.doctors), nil
}

func (m *MemoryStore) CountAppointments(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.appointments), nil
}

func (m *MemoryStore) FindPatientByUserID(_ context.Context, userID string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindDoctorByUserID(_ context.Context, userID string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, newError(KindNotFound, "Doctor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListDoctors(_ context.Context) ([]*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *MemoryStore) CreateAppointment(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[a.PatientID]; !ok {
		return newError(KindNotFound, "Patient not found")
	}
	if _, ok := m.doctors[a.DoctorID]; !ok {
		return newError(KindNotFound, "Doctor not found")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := m.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Notes = []Note{}
	m.appointments[a.ID] = a.clone()
	if u := undoFrom(ctx); u != nil {
		id := a.ID
		u.ops = append(u.ops, func() {
			delete(m.appointments, id)
			delete(m.notes, id)
		})
	}
	return nil
}

func (m *MemoryStore) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, newError(KindNotFound, "Appointment not found")
	}
	return m.view(a), nil
}

// FindActiveAt returns an active appointment for the doctor starting at
// exactly at, or nil.
func (m *MemoryStore) FindActiveAt(_ context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Status.Active() && a.DateTime.Equal(at) {
			return m.view(a), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListActiveInRange(_ context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	return m.list(func(a *Appointment) bool {
		return a.DoctorID == doctorID && a.Status.Active() &&
			!a.DateTime.Before(start) && !a.DateTime.After(end)
	}), nil
}

func (m *MemoryStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return m.list(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *MemoryStore) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return m.list(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, note *Note) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, newError(KindNotFound, "Appointment not found")
	}
	if a.Status == StatusCancelled {
		return nil, newError(KindConflict, "Appointment is already cancelled")
	}
	if u := undoFrom(ctx); u != nil {
		prevStatus, prevUpdated := a.Status, a.UpdatedAt
		u.ops = append(u.ops, func() {
			if cur, ok := m.appointments[id]; ok {
				cur.Status = prevStatus
				cur.UpdatedAt = prevUpdated
			}
		})
	}
	a.Status = status
	a.UpdatedAt = m.now().UTC()
	if note != nil {
		m.appendNote(ctx, note)
	}
	return m.view(a), nil
}

func (m *MemoryStore) AddNote(ctx context.Context, n *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[n.AppointmentID]; !ok {
		return newError(KindNotFound, "Appointment not found")
	}
	m.appendNote(ctx, n)
	return nil
}

// WithTx runs fn with a context whose writes are undone if fn returns an
// error. Writes from other contexts are left alone. Nested calls join the
// outer transaction.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if undoFrom(ctx) != nil {
		return fn(ctx)
	}
	u := &memUndo{}
	if err := fn(context.WithValue(ctx, memTxKey{}, u)); err != nil {
		m.mu.Lock()
		for i := len(u.ops) - 1; i >= 0; i-- {
			u.ops[i]()
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// appendNote requires m.mu held for writing.
func (m *MemoryStore) appendNote(ctx context.Context, n *Note) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.now().UTC()
	}
	m.notes[n.AppointmentID] = append(m.notes[n.AppointmentID], *n)
	if u := undoFrom(ctx); u != nil {
		apptID, noteID := n.AppointmentID, n.ID
		u.ops = append(u.ops, func() { m.removeNote(apptID, noteID) })
	}
}

// removeNote requires m.mu held for writing.
func (m *MemoryStore) removeNote(apptID, noteID uuid.UUID) {
	ns := m.notes[apptID]
	for i := range ns {
		if ns[i].ID == noteID {
			m.notes[apptID] = append(ns[:i:i], ns[i+1:]...)
			return
		}
	}
}

// view requires m.mu held. It returns a detached copy with notes and the
// owning patient's user ID filled in.
func (m *MemoryStore) view(a *Appointment) *Appointment {
	cp := a.clone()
	cp.Notes = append([]Note{}, m.notes[a.ID]...)
	if p, ok := m.patients[a.PatientID]; ok {
		cp.PatientUserID = p.UserID
	}
	return cp
}

func (m *MemoryStore) list(match func(*Appointment) bool) []*Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Appointment{}
	for _, a := range m.appointments {
		if match(a) {
			out = append(out, m.view(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateTime.Before(out[j].DateTime)
	})
	return out
}
