package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/mediconnect/scheduler/internal/platform/middleware"
)

type Service struct {
	records RecordCounter
	audit   AuditLogRepository
}

func NewService(records RecordCounter, audit AuditLogRepository) *Service {
	return &Service{records: records, audit: audit}
}

// Stats counts patients, doctors, appointments and audit log entries.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.Patients, err = s.records.CountPatients(ctx); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if st.Doctors, err = s.records.CountDoctors(ctx); err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	if st.Appointments, err = s.records.CountAppointments(ctx); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if st.AuditLogs, err = s.audit.Count(ctx); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}
	return &st, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit, offset int) ([]*AuditLog, int, error) {
	return s.audit.List(ctx, limit, offset)
}

// RecordAccess implements middleware.AuditRecorder by persisting the entry.
func (s *Service) RecordAccess(ctx context.Context, e middleware.AuditEntry) error {
	created := e.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return s.audit.Create(ctx, &AuditLog{
		UserID:     e.UserID,
		Role:       e.Role,
		Action:     e.Action,
		Resource:   e.Resource,
		Method:     e.Method,
		Path:       e.Path,
		StatusCode: e.StatusCode,
		RequestID:  e.RequestID,
		IPAddress:  e.IPAddress,
		CreatedAt:  created,
	})
}

var _ middleware.AuditRecorder = (*Service)(nil)
