package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type loggingService struct {
	next   API
	logger zerolog.Logger
}

// NewLoggingService wraps next so every operation logs entry, exit with its
// duration, and failures with the error kind.
func NewLoggingService(next API, logger zerolog.Logger) API {
	return &loggingService{next: next, logger: logger.With().Str("component", "scheduling").Logger()}
}

func (s *loggingService) enter(op string) time.Time {
	s.logger.Debug().Str("op", op).Msg("entering")
	return time.Now()
}

func (s *loggingService) exit(op string, start time.Time, err error) {
	d := time.Since(start)
	if err != nil {
		s.logger.Error().Err(err).
			Str("op", op).
			Str("kind", KindOf(err).String()).
			Dur("duration", d).
			Msg("failed")
		return
	}
	s.logger.Info().Str("op", op).Dur("duration", d).Msg("exiting")
}

func (s *loggingService) CreateAppointment(ctx context.Context, patientUserID string, in CreateInput) (a *Appointment, err error) {
	start := s.enter("CreateAppointment")
	defer func() { s.exit("CreateAppointment", start, err) }()
	return s.next.CreateAppointment(ctx, patientUserID, in)
}

func (s *loggingService) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, startDate time.Time, endDate *time.Time) (slots []Slot, err error) {
	start := s.enter("ListAvailableSlots")
	defer func() { s.exit("ListAvailableSlots", start, err) }()
	return s.next.ListAvailableSlots(ctx, doctorID, startDate, endDate)
}

func (s *loggingService) CancelAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, reason string) (a *Appointment, err error) {
	start := s.enter("CancelAppointment")
	defer func() { s.exit("CancelAppointment", start, err) }()
	return s.next.CancelAppointment(ctx, actingUserID, role, appointmentID, reason)
}

func (s *loggingService) RescheduleAppointment(ctx context.Context, actingUserID string, role Role, appointmentID uuid.UUID, newDateTime time.Time) (a *Appointment, err error) {
	start := s.enter("RescheduleAppointment")
	defer func() { s.exit("RescheduleAppointment", start, err) }()
	return s.next.RescheduleAppointment(ctx, actingUserID, role, appointmentID, newDateTime)
}

func (s *loggingService) ListAppointments(ctx context.Context, userID string, role Role) (items []*Appointment, err error) {
	start := s.enter("ListAppointments")
	defer func() { s.exit("ListAppointments", start, err) }()
	return s.next.ListAppointments(ctx, userID, role)
}

func (s *loggingService) AddNote(ctx context.Context, doctorUserID string, appointmentID uuid.UUID, content string) (n *Note, err error) {
	start := s.enter("AddNote")
	defer func() { s.exit("AddNote", start, err) }()
	return s.next.AddNote(ctx, doctorUserID, appointmentID, content)
}

func (s *loggingService) ListDoctors(ctx context.Context) (items []*Doctor, err error) {
	start := s.enter("ListDoctors")
	defer func() { s.exit("ListDoctors", start, err) }()
	return s.next.ListDoctors(ctx)
}
