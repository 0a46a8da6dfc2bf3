package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediconnect/scheduler/internal/platform/auth"
)

// AuditEntry records one mutating API call: who, what, and the outcome.
type AuditEntry struct {
	UserID     string
	Role       string
	Action     string // create, update, delete, or the sub-action (cancel, reschedule, notes)
	Resource   string
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	IPAddress  string
	Timestamp  time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

const apiPrefix = "/api/v1/"

// Audit records every mutating request under /api/v1/ after the handler
// runs. Recorder failures are logged and never change the response.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditable(req.Method, path) {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				Role:       auth.PrimaryRole(ctx),
				Action:     auditAction(req.Method, path),
				Resource:   auditResource(path),
				Method:     req.Method,
				Path:       path,
				StatusCode: responseStatus(c, err),
				IPAddress:  c.RealIP(),
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			if recorder != nil {
				if recErr := recorder.RecordAccess(context.WithoutCancel(ctx), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("api_mutation")

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, apiPrefix) {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func pathSegments(path string) []string {
	return strings.Split(strings.Trim(strings.TrimPrefix(path, apiPrefix), "/"), "/")
}

// auditResource is the first segment after /api/v1/.
func auditResource(path string) string {
	if segs := pathSegments(path); segs[0] != "" {
		return segs[0]
	}
	return "unknown"
}

// auditAction names the operation: a sub-resource segment such as
// /appointments/:id/cancel wins over the method verb.
func auditAction(method, path string) string {
	if segs := pathSegments(path); len(segs) >= 3 && segs[2] != "" {
		return segs[2]
	}
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}
