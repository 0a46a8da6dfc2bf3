package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/scheduler/internal/platform/db"
)

type storePG struct{ pool *pgxpool.Pool }

// NewStorePG returns the PostgreSQL Store.
func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (r *storePG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *storePG) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// =========== Patients & Doctors ===========

func (r *storePG) FindPatientByUserID(ctx context.Context, userID string) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, user_id, first_name, last_name FROM patient WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &p, nil
}

const doctorCols = `id, user_id, first_name, last_name, specialization`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialization)
	return &d, err
}

func (r *storePG) FindDoctorByUserID(ctx context.Context, userID string) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	return d, nil
}

func (r *storePG) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "Doctor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (r *storePG) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()
	items := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =========== Appointments ===========

const apptCols = `a.id, a.patient_id, a.doctor_id, a.date_time, a.status, a.reason,
	a.created_at, a.updated_at, p.user_id`

const apptFrom = ` FROM appointment a JOIN patient p ON p.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DateTime, &status, &a.Reason,
		&a.CreatedAt, &a.UpdatedAt, &a.PatientUserID)
	a.Status = Status(status)
	a.DateTime = a.DateTime.UTC()
	return &a, err
}

func (r *storePG) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, date_time, status, reason)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.DateTime, string(a.Status), a.Reason).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	a.Notes = []Note{}
	return nil
}

func (r *storePG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "Appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if err := r.loadNotes(ctx, []*Appointment{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// FindActiveAt is the booking-time conflict probe: exact instant, active
// statuses only.
func (r *storePG) FindActiveAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.doctor_id = $1 AND a.date_time = $2 AND a.status IN ('PENDING', 'CONFIRMED')
		LIMIT 1`, doctorID, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active appointment: %w", err)
	}
	return a, nil
}

func (r *storePG) ListActiveInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	return r.list(ctx, false, `SELECT `+apptCols+apptFrom+`
		WHERE a.doctor_id = $1 AND a.date_time >= $2 AND a.date_time <= $3
			AND a.status IN ('PENDING', 'CONFIRMED')
		ORDER BY a.date_time`, doctorID, start, end)
}

func (r *storePG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, true, `SELECT `+apptCols+apptFrom+` WHERE a.patient_id = $1 ORDER BY a.date_time`, patientID)
}

func (r *storePG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, true, `SELECT `+apptCols+apptFrom+` WHERE a.doctor_id = $1 ORDER BY a.date_time`, doctorID)
}

func (r *storePG) list(ctx context.Context, withNotes bool, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if withNotes {
		if err := r.loadNotes(ctx, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *storePG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, note *Note) (*Appointment, error) {
	var out *Appointment
	err := r.WithTx(ctx, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE appointment SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status <> 'CANCELLED'`, id, string(status))
		if err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := r.GetAppointment(ctx, id); err != nil {
				return err
			}
			return newError(KindConflict, "Appointment is already cancelled")
		}
		if note != nil {
			if err := r.AddNote(ctx, note); err != nil {
				return err
			}
		}
		out, err = r.GetAppointment(ctx, id)
		return err
	})
	return out, err
}

// =========== Notes ===========

func (r *storePG) AddNote(ctx context.Context, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO note (id, appointment_id, doctor_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		n.ID, n.AppointmentID, n.DoctorID, n.Content).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *storePG) loadNotes(ctx context.Context, appts []*Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(appts))
	byID := make(map[uuid.UUID]*Appointment, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
		a.Notes = []Note{}
		byID[a.ID] = a
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, doctor_id, content, created_at
		FROM note WHERE appointment_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.Content, &n.CreatedAt); err != nil {
			return err
		}
		if a, ok := byID[n.AppointmentID]; ok {
			a.Notes = append(a.Notes, n)
		}
	}
	return rows.Err()
}

// =========== Counts ===========

func (r *storePG) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (r *storePG) CountPatients(ctx context.Context) (int, error)     { return r.count(ctx, "patient") }
func (r *storePG) CountDoctors(ctx context.Context) (int, error)      { return r.count(ctx, "doctor") }
func (r *storePG) CountAppointments(ctx context.Context) (int, error) { return r.count(ctx, "appointment") }
