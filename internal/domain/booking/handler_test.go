package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/pkg/pagination"
)

func newTestHandler(t *testing.T) (*Handler, *testEnv, *echo.Echo) {
	env := newTestService(t)
	return NewHandler(env.svc), env, echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_Availability(t *testing.T) {
	h, env, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?service_id="+env.haircut.ID.String()+"&date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Availability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Date != "2026-03-02" || len(body.Slots) != 8 || body.Slots[0] != "09:00" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandler_Availability_ClosedDayIsEmptyList(t *testing.T) {
	h, env, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?service_id="+env.haircut.ID.String()+"&date=2026-03-03", nil)
	rec := httptest.NewRecorder()

	if err := h.Availability(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"slots":[]`) {
		t.Errorf("expected an empty slots array, got %s", rec.Body.String())
	}
}

func TestHandler_Availability_BadParams(t *testing.T) {
	h, env, e := newTestHandler(t)
	for _, q := range []string{
		"?service_id=nope&date=2026-03-02",
		"?service_id=" + env.haircut.ID.String() + "&date=2026-3-2",
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+q, nil), httptest.NewRecorder())
		if code := httpStatus(t, h.Availability(c)); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, code)
		}
	}
}

func TestHandler_Book(t *testing.T) {
	h, env, e := newTestHandler(t)
	body := `{"service_id":"` + env.haircut.ID.String() + `","date":"2026-03-02","time":"10:30","client_name":"Ana","client_phone":"221 555 0123"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), rec)

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var conf Confirmation
	if err := json.Unmarshal(rec.Body.Bytes(), &conf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conf.Status != StatusPending || conf.Date != "02/03/2026" || conf.Time != "10:30" {
		t.Errorf("unexpected confirmation: %+v", conf)
	}

	// Same slot again is a conflict.
	c = e.NewContext(jsonRequest(http.MethodPost, "/", body), httptest.NewRecorder())
	if code := httpStatus(t, h.Book(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_Book_Validation(t *testing.T) {
	h, env, e := newTestHandler(t)
	body := `{"service_id":"` + env.haircut.ID.String() + `","date":"2026-03-02","time":"10:15","client_name":"Ana","client_phone":"2215550123"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/", body), httptest.NewRecorder())

	err := h.Book(c)
	if code := httpStatus(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	var he *echo.HTTPError
	errors.As(err, &he)
	msg, ok := he.Message.(map[string]interface{})
	if !ok || msg["field"] != "time" {
		t.Errorf("expected the field to be reported, got %v", he.Message)
	}
}

func TestHandler_Lookup(t *testing.T) {
	h, env, e := newTestHandler(t)
	conf, _ := env.svc.Book(context.Background(), env.request("10:00", "2215550123"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?phone=2215550123", nil), rec)
	if err := h.Lookup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.ID != conf.ID || a.ServiceName != "Corte de pelo" {
		t.Errorf("unexpected appointment: %+v", a)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?phone=2215559999", nil), httptest.NewRecorder())
	if code := httpStatus(t, h.Lookup(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_ClientCancel(t *testing.T) {
	h, env, e := newTestHandler(t)
	conf, _ := env.svc.Book(context.Background(), env.request("10:00", "2215550123"))

	c := e.NewContext(jsonRequest(http.MethodPost, "/", `{"phone":"2215550000"}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(conf.ID.String())
	if code := httpStatus(t, h.ClientCancel(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}

	rec := httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/", `{"phone":"2215550123"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(conf.ID.String())
	if err := h.ClientCancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"CANCELLED"`) {
		t.Errorf("expected cancelled appointment, got %s", rec.Body.String())
	}
}

func TestHandler_List(t *testing.T) {
	h, env, e := newTestHandler(t)
	ctx := context.Background()
	env.svc.Book(ctx, env.request("09:00", "2215550101"))
	env.svc.Book(ctx, env.request("10:00", trustedPhone))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/appointments?status=pending&limit=5", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []Appointment     `json:"data"`
		Total int               `json:"total"`
		Links []pagination.Link `json:"links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 || resp.Data[0].Status != StatusPending {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Links) == 0 || resp.Links[0].Relation != "self" {
		t.Errorf("expected a self link, got %+v", resp.Links)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/appointments?status=all", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error for status=all: %v", err)
	}
	resp.Data, resp.Total = nil, 0
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected status=all to list every appointment, got %d", resp.Total)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=archived", nil), httptest.NewRecorder())
	if code := httpStatus(t, h.List(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", code)
	}
}

func TestHandler_ApproveAndReject(t *testing.T) {
	h, env, e := newTestHandler(t)
	ctx := context.Background()
	first, _ := env.svc.Book(ctx, env.request("09:00", "2215550101"))
	second, _ := env.svc.Book(ctx, env.request("10:00", "2215550102"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(first.ID.String())
	if err := h.Approve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"CONFIRMED"`) {
		t.Errorf("expected confirmed, got %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(first.ID.String())
	if code := httpStatus(t, h.Approve(c)); code != http.StatusConflict {
		t.Errorf("expected 409 approving twice, got %d", code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/", `{"reason":"fuera de horario"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(second.ID.String())
	if err := h.Reject(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"notes":"fuera de horario"`) {
		t.Errorf("expected reason stored as notes, got %s", rec.Body.String())
	}
}

func TestHandler_InvalidID(t *testing.T) {
	h, _, e := newTestHandler(t)
	handlers := map[string]echo.HandlerFunc{
		"get":      h.Get,
		"approve":  h.Approve,
		"complete": h.Complete,
		"cancel":   h.AdminCancel,
		"delete":   h.Delete,
	}
	for name, fn := range handlers {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues("not-a-uuid")
		if code := httpStatus(t, fn(c)); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, code)
		}
	}
}

func TestHandler_DeleteAndStats(t *testing.T) {
	h, env, e := newTestHandler(t)
	conf, _ := env.svc.Book(context.Background(), env.request("09:00", "2215550101"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(conf.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if code := httpStatus(t, h.Get(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}

	rec = httptest.NewRecorder()
	if err := h.Stats(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"pending":0`) {
		t.Errorf("unexpected stats body: %s", rec.Body.String())
	}
}

func TestHandler_Dependency503(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	err := apperr.HTTP(c, apperr.Dependency("list appointments", errors.New("connection refused")))
	if code := httpStatus(t, err); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
