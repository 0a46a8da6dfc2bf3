package scheduling

import (
	"context"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func fixedClock(now time.Time) Clock {
	return ClockFunc(func() time.Time { return now })
}

type fixture struct {
	store   *MemoryStore
	svc     *Service
	patient *Patient
	other   *Patient
	doctor  *Doctor
	doctor2 *Doctor
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := NewMemoryStore()
	f := &fixture{
		store:   store,
		svc:     NewService(store, fixedClock(now)),
		patient: store.AddPatient(Patient{UserID: "patient-user", FirstName: "Ada", LastName: "Lovelace"}),
		other:   store.AddPatient(Patient{UserID: "other-user", FirstName: "Alan", LastName: "Turing"}),
		doctor:  store.AddDoctor(Doctor{UserID: "doctor-user", FirstName: "Gregory", LastName: "House", Specialization: "Diagnostics"}),
		doctor2: store.AddDoctor(Doctor{UserID: "doctor2-user", FirstName: "John", LastName: "Watson", Specialization: "General"}),
	}
	return f
}

func (f *fixture) book(t *testing.T, at time.Time, reason string) *Appointment {
	t.Helper()
	a, err := f.svc.CreateAppointment(context.Background(), f.patient.UserID, CreateInput{
		DoctorID: f.doctor.ID,
		DateTime: at,
		Reason:   reason,
	})
	if err != nil {
		t.Fatalf("book %s: %v", at, err)
	}
	return a
}

func expectKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
