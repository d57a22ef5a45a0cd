package booking

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/auth"
	"github.com/Carloolivera/barberia-cobran/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public booking surface and the admin lifecycle
// routes. bookLimit, when non-nil, guards POST /appointments only.
func (h *Handler) RegisterRoutes(public *echo.Group, admin *echo.Group, bookLimit echo.MiddlewareFunc) {
	public.GET("/availability", h.Availability)
	if bookLimit != nil {
		public.POST("/appointments", h.Book, bookLimit)
	} else {
		public.POST("/appointments", h.Book)
	}
	public.GET("/appointments/lookup", h.Lookup)
	public.POST("/appointments/:id/cancel", h.ClientCancel)

	adminGroup := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/appointments", h.List)
	adminGroup.GET("/appointments/:id", h.Get)
	adminGroup.POST("/appointments/:id/approve", h.Approve)
	adminGroup.POST("/appointments/:id/reject", h.Reject)
	adminGroup.POST("/appointments/:id/complete", h.Complete)
	adminGroup.POST("/appointments/:id/cancel", h.AdminCancel)
	adminGroup.PUT("/appointments/:id/notes", h.Annotate)
	adminGroup.DELETE("/appointments/:id", h.Delete)
	adminGroup.GET("/stats", h.Stats)
}

type availabilityResponse struct {
	ServiceID uuid.UUID            `json:"service_id"`
	Date      calendar.Date        `json:"date"`
	Slots     []calendar.TimeOfDay `json:"slots"`
}

func (h *Handler) Availability(c echo.Context) error {
	serviceID, err := uuid.Parse(c.QueryParam("service_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "service_id must be a valid id")
	}
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
	}
	slots, err := h.svc.ListAvailableSlots(c.Request().Context(), serviceID, date)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, availabilityResponse{ServiceID: serviceID, Date: date, Slots: slots})
}

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	conf, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusCreated, conf)
}

func (h *Handler) Lookup(c echo.Context) error {
	a, err := h.svc.FindActiveByPhone(c.Request().Context(), c.QueryParam("phone"))
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type cancelRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) ClientCancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Cancel(c.Request().Context(), id, req.Phone)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f ListFilter
	// "all" is accepted as no filter.
	if v := c.QueryParam("status"); v != "" && !strings.EqualFold(v, "all") {
		st, err := ParseStatus(strings.ToUpper(v))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Status = st
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		}
		f.Date = d
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams())
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Approve(c echo.Context) error {
	return h.lifecycle(c, h.svc.Approve)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.lifecycle(c, h.svc.Complete)
}

func (h *Handler) AdminCancel(c echo.Context) error {
	return h.lifecycle(c, h.svc.AdminCancel)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rejectRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	a, err := h.svc.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) Annotate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Annotate(c.Request().Context(), id, req.Notes)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Stats(c echo.Context) error {
	s, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) lifecycle(c echo.Context, apply func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := apply(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
