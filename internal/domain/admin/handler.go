package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/scheduler/internal/platform/auth"
	"github.com/mediconnect/scheduler/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	g.GET("/stats", h.GetStats)
	g.GET("/audit-logs", h.ListAuditLogs)
}

func (h *Handler) GetStats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": stats})
}

func (h *Handler) ListAuditLogs(c echo.Context) error {
	p := pagination.FromContext(c)
	logs, total, err := h.svc.ListAuditLogs(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, p))
}
