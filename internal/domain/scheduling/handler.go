package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediconnect/scheduler/internal/platform/auth"
)

type Handler struct {
	svc API
	loc *time.Location
}

// NewHandler builds the HTTP layer. loc interprets date-only query values
// and must match the service's location.
func NewHandler(svc API, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.ListDoctors)

	appts := api.Group("/appointments")
	appts.POST("", h.CreateAppointment)
	appts.GET("", h.ListAppointments)
	appts.GET("/available-slots", h.ListAvailableSlots)
	appts.PATCH("/:id/cancel", h.CancelAppointment)
	appts.PATCH("/:id/reschedule", h.RescheduleAppointment)
	appts.POST("/:id/notes", h.AddNote)
}

type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func success(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, envelope{Status: "success", Data: data})
}

// httpError maps a scheduling failure to its HTTP status.
func httpError(err error) *echo.HTTPError {
	switch KindOf(err) {
	case KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case KindConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case KindForbidden:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case KindPolicyViolation, KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

func identity(c echo.Context) (string, Role) {
	ctx := c.Request().Context()
	return auth.UserIDFromContext(ctx), ParseRole(auth.PrimaryRole(ctx))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	return id, nil
}

// parseInstant accepts RFC 3339 timestamps.
func parseInstant(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+" is required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+field+": expected RFC 3339 timestamp")
	}
	return t, nil
}

// parseDate accepts YYYY-MM-DD (interpreted in the handler's location) or
// an RFC 3339 timestamp.
func (h *Handler) parseDate(s, field string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, h.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+field+": expected YYYY-MM-DD")
	}
	return t, nil
}

// -- Doctors --

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusOK, doctors)
}

// -- Appointments --

type createRequest struct {
	DoctorID string `json:"doctorId" validate:"required,uuid"`
	DateTime string `json:"dateTime" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	userID, role := identity(c)
	if role != RolePatient {
		return echo.NewHTTPError(http.StatusForbidden, "Only patients can book appointments")
	}

	var req createRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
	}
	at, err := parseInstant(req.DateTime, "dateTime")
	if err != nil {
		return err
	}

	appt, err := h.svc.CreateAppointment(c.Request().Context(), userID, CreateInput{
		DoctorID: doctorID,
		DateTime: at,
		Reason:   req.Reason,
	})
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	userID, role := identity(c)
	appts, err := h.svc.ListAppointments(c.Request().Context(), userID, role)
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusOK, appts)
}

func (h *Handler) ListAvailableSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctorId query parameter is required")
	}
	startStr := c.QueryParam("startDate")
	if startStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "startDate query parameter is required")
	}
	start, err := h.parseDate(startStr, "startDate")
	if err != nil {
		return err
	}
	var end *time.Time
	if endStr := c.QueryParam("endDate"); endStr != "" {
		t, err := h.parseDate(endStr, "endDate")
		if err != nil {
			return err
		}
		end = &t
	}

	slots, err := h.svc.ListAvailableSlots(c.Request().Context(), doctorID, start, end)
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusOK, slots)
}

type cancelRequest struct {
	CancellationReason string `json:"cancellationReason" validate:"max=500"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID, role := identity(c)
	appt, err := h.svc.CancelAppointment(c.Request().Context(), userID, role, id, req.CancellationReason)
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusOK, appt)
}

type rescheduleRequest struct {
	NewDateTime string `json:"newDateTime" validate:"required"`
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	at, err := parseInstant(req.NewDateTime, "newDateTime")
	if err != nil {
		return err
	}

	userID, role := identity(c)
	appt, err := h.svc.RescheduleAppointment(c.Request().Context(), userID, role, id, at)
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusOK, appt)
}

type noteRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (h *Handler) AddNote(c echo.Context) error {
	userID, role := identity(c)
	if role != RoleDoctor {
		return echo.NewHTTPError(http.StatusForbidden, "Only doctors can add notes")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.svc.AddNote(c.Request().Context(), userID, id, req.Content)
	if err != nil {
		return httpError(err)
	}
	return success(c, http.StatusCreated, note)
}
