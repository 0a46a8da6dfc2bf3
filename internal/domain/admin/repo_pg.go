package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/scheduler/internal/platform/db"
)

// -- Audit Log Repository --

type auditRepoPG struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepoPG(pool *pgxpool.Pool) AuditLogRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *auditRepoPG) Create(ctx context.Context, entry *AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (
			id, user_id, role, action, resource, method, path,
			status_code, request_id, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		entry.ID, entry.UserID, entry.Role, entry.Action, entry.Resource, entry.Method, entry.Path,
		entry.StatusCode, entry.RequestID, entry.IPAddress,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *auditRepoPG) List(ctx context.Context, limit, offset int) ([]*AuditLog, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, role, action, resource, method, path,
			status_code, request_id, ip_address, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	items := []*AuditLog{}
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.Action, &a.Resource, &a.Method, &a.Path,
			&a.StatusCode, &a.RequestID, &a.IPAddress, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		items = append(items, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return items, total, nil
}

func (r *auditRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return n, nil
}
