package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestRegistry()), echo.New()
}

func TestHandler_AddClient(t *testing.T) {
	h, e := newTestHandler()
	body := `{"phone":"221-555-000","name":"Juan"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.AddClient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"phone":"221555000"`) {
		t.Errorf("expected normalized phone in response, got %s", rec.Body.String())
	}
}

func TestHandler_AddClient_Duplicate(t *testing.T) {
	h, e := newTestHandler()
	h.reg.AddClient(context.Background(), &TrustedClient{Phone: "221555000"})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"221555000"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.AddClient(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_RemoveClient_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := h.RemoveClient(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_ListClients(t *testing.T) {
	h, e := newTestHandler()
	h.reg.AddClient(context.Background(), &TrustedClient{Phone: "221555000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListClients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "221555000") {
		t.Errorf("expected client in list, got %s", rec.Body.String())
	}
}

func updateRequest(e *echo.Echo, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestHandler_UpdateClient(t *testing.T) {
	h, e := newTestHandler()
	tc := &TrustedClient{Phone: "221555000"}
	h.reg.AddClient(context.Background(), tc)

	c, rec := updateRequest(e, tc.ID.String(), `{"phone":"221-555-999","name":"Juan","notes":"regular"}`)
	if err := h.UpdateClient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"phone":"221555999"`) {
		t.Errorf("expected updated phone, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateClient_DuplicatePhone(t *testing.T) {
	h, e := newTestHandler()
	h.reg.AddClient(context.Background(), &TrustedClient{Phone: "221555000"})
	other := &TrustedClient{Phone: "221555111"}
	h.reg.AddClient(context.Background(), other)

	c, _ := updateRequest(e, other.ID.String(), `{"phone":"221555000"}`)
	err := h.UpdateClient(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_UpdateClient_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c, _ := updateRequest(e, uuid.New().String(), `{"phone":"221555000"}`)
	err := h.UpdateClient(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_UpdateClient_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c, _ := updateRequest(e, "nope", `{"phone":"221555000"}`)
	if err := h.UpdateClient(c); err == nil {
		t.Error("expected error for invalid id")
	}
}
