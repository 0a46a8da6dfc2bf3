package admin

import (
	"time"

	"github.com/google/uuid"
)

// Stats are the dashboard record counts.
type Stats struct {
	Patients     int `json:"patients"`
	Doctors      int `json:"doctors"`
	Appointments int `json:"appointments"`
	AuditLogs    int `json:"auditLogs"`
}

// AuditLog maps to the audit_log table.
type AuditLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	Role       string    `db:"role" json:"role"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	Method     string    `db:"method" json:"method"`
	Path       string    `db:"path" json:"path"`
	StatusCode int       `db:"status_code" json:"statusCode"`
	RequestID  string    `db:"request_id" json:"requestId,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
