package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediconnect/scheduler/internal/platform/auth"
)

type request struct {
	method string
	target string
	body   string
	user   string
	role   string
	id     string
}

func serve(t *testing.T, fn echo.HandlerFunc, r request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	if r.target == "" {
		r.target = "/"
	}
	var req *http.Request
	if r.body != "" {
		req = httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(r.method, r.target, nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), r.user, r.role))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if r.id != "" {
		c.SetParamNames("id")
		c.SetParamValues(r.id)
	}
	return rec, fn(c)
}

func expectHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected echo.HTTPError with %d, got %v", code, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, httpErr.Code, httpErr.Message)
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func newTestHandler(t *testing.T) (*Handler, *fixture) {
	f := newFixture(t, testNow)
	return NewHandler(f.svc, time.UTC), f
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, f := newTestHandler(t)
	body := `{"doctorId":"` + f.doctor.ID.String() + `","dateTime":"2024-01-20T09:00:00Z","reason":"Flu"}`

	rec, err := serve(t, h.CreateAppointment, request{method: http.MethodPost, target: "/appointments", body: body, user: f.patient.UserID, role: "PATIENT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	decodeEnvelope(t, rec, &a)
	if a.Status != StatusPending || a.Reason == nil || *a.Reason != "Flu" {
		t.Errorf("unexpected appointment %+v", a)
	}
	if !strings.Contains(rec.Body.String(), `"dateTime":"2024-01-20T09:00:00Z"`) {
		t.Errorf("dateTime not serialized as UTC instant: %s", rec.Body.String())
	}

	_, err = serve(t, h.CreateAppointment, request{method: http.MethodPost, target: "/appointments", body: body, user: f.other.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusConflict)
}

func TestHandler_CreateAppointment_Rejections(t *testing.T) {
	h, f := newTestHandler(t)
	doc := f.doctor.ID.String()
	tests := []struct {
		name string
		role string
		body string
		want int
	}{
		{"doctor cannot book", "DOCTOR", `{"doctorId":"` + doc + `","dateTime":"2024-01-20T09:00:00Z"}`, http.StatusForbidden},
		{"admin cannot book", "ADMIN", `{"doctorId":"` + doc + `","dateTime":"2024-01-20T09:00:00Z"}`, http.StatusForbidden},
		{"bad doctor id", "PATIENT", `{"doctorId":"nope","dateTime":"2024-01-20T09:00:00Z"}`, http.StatusBadRequest},
		{"missing dateTime", "PATIENT", `{"doctorId":"` + doc + `"}`, http.StatusBadRequest},
		{"bad dateTime", "PATIENT", `{"doctorId":"` + doc + `","dateTime":"next tuesday"}`, http.StatusBadRequest},
		{"unknown doctor", "PATIENT", `{"doctorId":"` + uuid.NewString() + `","dateTime":"2024-01-20T09:00:00Z"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serve(t, h.CreateAppointment, request{method: http.MethodPost, target: "/appointments", body: tt.body, user: f.patient.UserID, role: tt.role})
			expectHTTPStatus(t, err, tt.want)
		})
	}
}

func TestHandler_ListAvailableSlots(t *testing.T) {
	h, f := newTestHandler(t)
	f.book(t, mustTime(t, "2024-01-15T10:00:00Z"), "")
	target := "/appointments/available-slots?doctorId=" + f.doctor.ID.String() + "&startDate=2024-01-15&endDate=2024-01-15"

	rec, err := serve(t, h.ListAvailableSlots, request{method: http.MethodGet, target: target, user: f.patient.UserID, role: "PATIENT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var slots []Slot
	decodeEnvelope(t, rec, &slots)
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if slots[1].Available {
		t.Error("10:00 should be unavailable")
	}
}

func TestHandler_ListAvailableSlots_BadQuery(t *testing.T) {
	h, f := newTestHandler(t)
	doc := f.doctor.ID.String()
	for _, q := range []string{
		"startDate=2024-01-15",
		"doctorId=" + doc,
		"doctorId=" + doc + "&startDate=15/01/2024",
		"doctorId=" + doc + "&startDate=2024-01-15&endDate=soon",
		"doctorId=" + doc + "&startDate=2024-01-15&endDate=2024-01-10",
	} {
		_, err := serve(t, h.ListAvailableSlots, request{method: http.MethodGet, target: "/appointments/available-slots?" + q})
		expectHTTPStatus(t, err, http.StatusBadRequest)
	}
}

func TestHandler_CancelAppointment(t *testing.T) {
	h, f := newTestHandler(t)
	soon := f.book(t, testNow.Add(2*time.Hour), "")
	later := f.book(t, mustTime(t, "2024-01-20T09:00:00Z"), "")

	_, err := serve(t, h.CancelAppointment, request{method: http.MethodPatch, id: soon.ID.String(), user: f.patient.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusBadRequest)

	_, err = serve(t, h.CancelAppointment, request{method: http.MethodPatch, id: later.ID.String(), user: f.other.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusForbidden)

	_, err = serve(t, h.CancelAppointment, request{method: http.MethodPatch, id: uuid.NewString(), user: f.patient.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusNotFound)

	_, err = serve(t, h.CancelAppointment, request{method: http.MethodPatch, id: "not-a-uuid", user: f.patient.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusBadRequest)

	rec, err := serve(t, h.CancelAppointment, request{
		method: http.MethodPatch,
		id:     later.ID.String(),
		body:   `{"cancellationReason":"Travel"}`,
		user:   f.patient.UserID,
		role:   "PATIENT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	decodeEnvelope(t, rec, &a)
	if a.Status != StatusCancelled || len(a.Notes) != 1 {
		t.Errorf("unexpected cancel result %+v", a)
	}
}

func TestHandler_RescheduleAppointment(t *testing.T) {
	h, f := newTestHandler(t)
	old := f.book(t, mustTime(t, "2024-01-20T09:00:00Z"), "Back pain")

	_, err := serve(t, h.RescheduleAppointment, request{method: http.MethodPatch, id: old.ID.String(), body: `{}`, user: f.patient.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusBadRequest)

	rec, err := serve(t, h.RescheduleAppointment, request{
		method: http.MethodPatch,
		id:     old.ID.String(),
		body:   `{"newDateTime":"2024-01-21T09:00:00Z"}`,
		user:   f.patient.UserID,
		role:   "PATIENT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	decodeEnvelope(t, rec, &a)
	if a.ID == old.ID || a.Status != StatusPending {
		t.Errorf("unexpected reschedule result %+v", a)
	}
}

func TestHandler_AddNote(t *testing.T) {
	h, f := newTestHandler(t)
	a := f.book(t, mustTime(t, "2024-01-20T09:00:00Z"), "")
	body := `{"content":"Fasting required"}`

	_, err := serve(t, h.AddNote, request{method: http.MethodPost, id: a.ID.String(), body: body, user: f.patient.UserID, role: "PATIENT"})
	expectHTTPStatus(t, err, http.StatusForbidden)

	_, err = serve(t, h.AddNote, request{method: http.MethodPost, id: a.ID.String(), body: body, user: f.doctor2.UserID, role: "DOCTOR"})
	expectHTTPStatus(t, err, http.StatusForbidden)

	rec, err := serve(t, h.AddNote, request{method: http.MethodPost, id: a.ID.String(), body: body, user: f.doctor.UserID, role: "DOCTOR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_ListAppointmentsAndDoctors(t *testing.T) {
	h, f := newTestHandler(t)
	f.book(t, mustTime(t, "2024-01-20T09:00:00Z"), "")

	rec, err := serve(t, h.ListAppointments, request{method: http.MethodGet, target: "/appointments", user: f.patient.UserID, role: "PATIENT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var appts []Appointment
	decodeEnvelope(t, rec, &appts)
	if len(appts) != 1 {
		t.Errorf("expected 1 appointment, got %d", len(appts))
	}

	rec, err = serve(t, h.ListDoctors, request{method: http.MethodGet, target: "/doctors", user: f.patient.UserID, role: "PATIENT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var docs []Doctor
	decodeEnvelope(t, rec, &docs)
	if len(docs) != 2 {
		t.Errorf("expected 2 doctors, got %d", len(docs))
	}
	if strings.Contains(rec.Body.String(), "doctor-user") {
		t.Error("doctor user id must not be exposed")
	}
}

func TestHTTPError_Mapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{newError(KindNotFound, "x"), http.StatusNotFound},
		{newError(KindConflict, "x"), http.StatusConflict},
		{newError(KindForbidden, "x"), http.StatusForbidden},
		{newError(KindPolicyViolation, "x"), http.StatusBadRequest},
		{newError(KindValidation, "x"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := httpError(tt.err); got.Code != tt.want {
			t.Errorf("httpError(%v) = %d, want %d", tt.err, got.Code, tt.want)
		}
	}
	if msg := httpError(errors.New("db down")).Message; msg != "internal server error" {
		t.Errorf("internal errors must not leak: %v", msg)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/doctors":                       false,
		"POST /api/v1/appointments":                 false,
		"GET /api/v1/appointments":                  false,
		"GET /api/v1/appointments/available-slots":  false,
		"PATCH /api/v1/appointments/:id/cancel":     false,
		"PATCH /api/v1/appointments/:id/reschedule": false,
		"POST /api/v1/appointments/:id/notes":       false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", route)
		}
	}
}
