package admin

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditLogRepository defines the persistence interface for audit logs.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *AuditLog) error
	// List returns entries newest first along with the total count.
	List(ctx context.Context, limit, offset int) ([]*AuditLog, int, error)
	Count(ctx context.Context) (int, error)
}

// RecordCounter is the read side of the scheduling store used for stats.
type RecordCounter interface {
	CountPatients(ctx context.Context) (int, error)
	CountDoctors(ctx context.Context) (int, error)
	CountAppointments(ctx context.Context) (int, error)
}

// -- In-memory Audit Log Repository --

type auditRepoMemory struct {
	mu      sync.RWMutex
	entries []*AuditLog
}

// NewAuditLogRepoMemory keeps audit logs in process memory.
func NewAuditLogRepoMemory() AuditLogRepository {
	return &auditRepoMemory{}
}

func (r *auditRepoMemory) Create(_ context.Context, entry *AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	cp := *entry
	r.mu.Lock()
	r.entries = append(r.entries, &cp)
	r.mu.Unlock()
	return nil
}

func (r *auditRepoMemory) List(_ context.Context, limit, offset int) ([]*AuditLog, int, error) {
	r.mu.RLock()
	sorted := make([]*AuditLog, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		sorted = append(sorted, r.entries[i])
	}
	r.mu.RUnlock()

	// later inserts win ties on equal timestamps
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	total := len(sorted)
	if offset >= total {
		return []*AuditLog{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*AuditLog, 0, end-offset)
	for _, e := range sorted[offset:end] {
		cp := *e
		out = append(out, &cp)
	}
	return out, total, nil
}

func (r *auditRepoMemory) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}
