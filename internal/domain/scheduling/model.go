package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Active reports whether an appointment in this status occupies its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Role is the acting user's role as asserted by the auth layer.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole normalizes a role claim. Unknown values map to the empty Role.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return r
	}
	return ""
}

// Patient maps to the patient table. UserID is the owning auth subject.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
}

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"-"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	Specialization string    `db:"specialization" json:"specialization"`
}

// Appointment maps to the appointment table. DateTime is the UTC start
// instant; every appointment lasts SlotDuration.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patientId"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctorId"`
	DateTime  time.Time `db:"date_time" json:"dateTime"`
	Status    Status    `db:"status" json:"status"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	Notes     []Note    `json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// PatientUserID is the auth subject owning the linked patient record.
	// Populated by GetAppointment for ownership checks.
	PatientUserID string `json:"-"`
}

// Note is an append-only clinician note attached to an appointment.
type Note struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointmentId"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctorId"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Slot is a candidate one-hour start time in a doctor's day.
type Slot struct {
	DateTime  time.Time `json:"dateTime"`
	Available bool      `json:"available"`
}

func (a *Appointment) clone() *Appointment {
	cp := *a
	if a.Reason != nil {
		r := *a.Reason
		cp.Reason = &r
	}
	if a.Notes != nil {
		cp.Notes = append([]Note(nil), a.Notes...)
	}
	return &cp
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
