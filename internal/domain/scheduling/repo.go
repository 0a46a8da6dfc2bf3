package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentStore is the persistence contract of the scheduling core.
//
// Get* methods return an error matching ErrNotFound when the record does not
// exist. Find* methods return (nil, nil) when nothing matches.
type AppointmentStore interface {
	FindPatientByUserID(ctx context.Context, userID string) (*Patient, error)
	FindDoctorByUserID(ctx context.Context, userID string) (*Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]*Doctor, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindActiveAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)
	ListActiveInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)

	// UpdateStatus moves an appointment to status and, when note is non-nil,
	// appends it in the same unit of work. A CANCELLED appointment is
	// terminal: moving it again fails with ErrConflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, note *Note) (*Appointment, error)
	AddNote(ctx context.Context, n *Note) error

	// WithTx runs fn so that every store call made with the ctx it receives
	// commits together or not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is an AppointmentStore that can also report record counts for the
// admin dashboard.
type Store interface {
	AppointmentStore
	CountPatients(ctx context.Context) (int, error)
	CountDoctors(ctx context.Context) (int, error)
	CountAppointments(ctx context.Context) (int, error)
}
