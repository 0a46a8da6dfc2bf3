package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the set of scheduling operations exposed to the request layer.
type API interface {
	CreateAppointment(ctx context.Context, patientUserID string, in CreateInput) (*Appointment, error)
	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, startDate time.Time, endDate *time.Time) ([]Slot, error)
	CancelAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, reason string) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, newDateTime time.Time) (*Appointment, error)
	ListAppointments(ctx context.Context, userID string, role Role) ([]*Appointment, error)
	AddNote(ctx context.Context, doctorUserID string, appointmentID uuid.UUID, content string) (*Note, error)
	ListDoctors(ctx context.Context) ([]*Doctor, error)
}

// CreateInput carries the booking request fields.
type CreateInput struct {
	DoctorID uuid.UUID
	DateTime time.Time
	Reason   string
}

type Service struct {
	store AppointmentStore
	clock Clock
	loc   *time.Location
	cache *BookedIndexCache
}

var _ API = (*Service)(nil)

func NewService(store AppointmentStore, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock
	}
	return &Service{store: store, clock: clock, loc: time.UTC}
}

// SetLocation sets the calendar used for day boundaries and working hours.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// SetBookedIndexCache enables caching of booked indexes for slot listing.
func (s *Service) SetBookedIndexCache(c *BookedIndexCache) {
	s.cache = c
}

// -- Create --

func (s *Service) CreateAppointment(ctx context.Context, patientUserID string, in CreateInput) (*Appointment, error) {
	if in.DoctorID == uuid.Nil {
		return nil, newError(KindValidation, "doctorId is required")
	}
	if in.DateTime.IsZero() {
		return nil, newError(KindValidation, "dateTime is required")
	}

	patient, err := s.store.FindPatientByUserID(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, newError(KindNotFound, "Patient not found")
	}
	if _, err := s.store.GetDoctor(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	at := in.DateTime.UTC()
	if err := s.checkConflict(ctx, in.DoctorID, at,
		"Doctor already has an appointment at this time. Please choose a different time slot."); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:     patient.ID,
		DoctorID:      in.DoctorID,
		DateTime:      at,
		Status:        StatusPending,
		Reason:        strPtr(in.Reason),
		PatientUserID: patient.UserID,
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, err
	}
	s.cache.Invalidate(a.DoctorID)
	return a, nil
}

// checkConflict is the booking-time check: an exact instant match against an
// active appointment. The listing buffer does not apply here.
func (s *Service) checkConflict(ctx context.Context, doctorID uuid.UUID, at time.Time, msg string) error {
	existing, err := s.store.FindActiveAt(ctx, doctorID, at)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(KindConflict, "%s", msg)
	}
	return nil
}

// -- Slots --

func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, startDate time.Time, endDate *time.Time) ([]Slot, error) {
	if doctorID == uuid.Nil {
		return nil, newError(KindValidation, "doctorId is required")
	}
	if startDate.IsZero() {
		return nil, newError(KindValidation, "startDate is required")
	}
	rangeStart, rangeEnd := ResolveRange(startDate, endDate, s.loc)
	if rangeEnd.Before(rangeStart) {
		return nil, newError(KindValidation, "endDate must not be before startDate")
	}

	booked, ok := s.cache.Get(doctorID, rangeStart, rangeEnd)
	if !ok {
		gen := s.cache.Generation(doctorID)
		appts, err := s.store.ListActiveInRange(ctx, doctorID, rangeStart, rangeEnd)
		if err != nil {
			return nil, err
		}
		booked = BuildBookedIndex(appts)
		s.cache.Put(doctorID, rangeStart, rangeEnd, gen, booked)
	}

	slots := GenerateSlots(rangeStart, rangeEnd, booked, s.clock.Now(), s.loc)
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

// -- Cancel --

func (s *Service) CancelAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	a, err := s.loadModifiable(ctx, actingUserID, role, appointmentID, "cancel")
	if err != nil {
		return nil, err
	}

	var note *Note
	if reason = strings.TrimSpace(reason); reason != "" {
		note = &Note{
			AppointmentID: a.ID,
			DoctorID:      a.DoctorID,
			Content:       fmt.Sprintf("Cancellation reason: %s", reason),
		}
	}
	updated, err := s.store.UpdateStatus(ctx, a.ID, StatusCancelled, note)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(a.DoctorID)
	return updated, nil
}

// -- Reschedule --

func (s *Service) RescheduleAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, newDateTime time.Time) (*Appointment, error) {
	if newDateTime.IsZero() {
		return nil, newError(KindValidation, "newDateTime is required")
	}
	old, err := s.loadModifiable(ctx, actingUserID, role, appointmentID, "reschedule")
	if err != nil {
		return nil, err
	}

	at := newDateTime.UTC()
	if err := s.checkConflict(ctx, old.DoctorID, at, "New time slot is not available"); err != nil {
		return nil, err
	}

	next := &Appointment{
		PatientID:     old.PatientID,
		DoctorID:      old.DoctorID,
		DateTime:      at,
		Status:        StatusPending,
		Reason:        old.Reason,
		PatientUserID: old.PatientUserID,
	}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.UpdateStatus(ctx, old.ID, StatusCancelled, nil); err != nil {
			return err
		}
		return s.store.CreateAppointment(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(old.DoctorID)
	return next, nil
}

// loadModifiable fetches the appointment and applies the ownership and
// 24-hour gates shared by cancel and reschedule.
func (s *Service) loadModifiable(ctx context.Context, actingUserID string, role Role, id uuid.UUID, action string) (*Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanModify(a, actingUserID, role, action); err != nil {
		return nil, err
	}
	if err := CheckTimingWindow(a.DateTime, s.clock.Now(), action); err != nil {
		return nil, err
	}
	return a, nil
}

// -- Listing & notes --

// ListAppointments returns the caller's own appointments: a patient's
// bookings or a doctor's schedule. Other roles, and users without a linked
// record, get an empty list.
func (s *Service) ListAppointments(ctx context.Context, userID string, role Role) ([]*Appointment, error) {
	switch role {
	case RolePatient:
		p, err := s.store.FindPatientByUserID(ctx, userID)
		if err != nil || p == nil {
			return []*Appointment{}, err
		}
		return s.store.ListByPatient(ctx, p.ID)
	case RoleDoctor:
		d, err := s.store.FindDoctorByUserID(ctx, userID)
		if err != nil || d == nil {
			return []*Appointment{}, err
		}
		return s.store.ListByDoctor(ctx, d.ID)
	}
	return []*Appointment{}, nil
}

func (s *Service) AddNote(ctx context.Context, doctorUserID string, appointmentID uuid.UUID, content string) (*Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newError(KindValidation, "content is required")
	}
	d, err := s.store.FindDoctorByUserID(ctx, doctorUserID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, newError(KindNotFound, "Doctor not found")
	}
	a, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != d.ID {
		return nil, newError(KindForbidden, "Not authorized to add note to this appointment")
	}
	n := &Note{AppointmentID: a.ID, DoctorID: d.ID, Content: content}
	if err := s.store.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.store.ListDoctors(ctx)
}
