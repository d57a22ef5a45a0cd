package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/auth"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(public *echo.Group, admin *echo.Group) {
	public.GET("/services", h.ListActiveServices)

	adminGroup := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/services", h.ListServices)
	adminGroup.GET("/services/:id", h.GetService)
	adminGroup.POST("/services", h.CreateService)
	adminGroup.PUT("/services/:id", h.UpdateService)
	adminGroup.DELETE("/services/:id", h.DeleteService)
}

type serviceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           int64  `json:"price"`
	Active          *bool  `json:"active"`
	DisplayOrder    int    `json:"display_order"`
}

func (r serviceRequest) apply(s *Service) {
	s.Name = r.Name
	s.DurationMinutes = r.DurationMinutes
	s.Price = Money(r.Price)
	s.DisplayOrder = r.DisplayOrder
	s.Active = true
	if r.Active != nil {
		s.Active = *r.Active
	}
}

func (h *Handler) ListActiveServices(c echo.Context) error {
	items, err := h.mgr.ListActiveServices(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	if items == nil {
		items = []*Service{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListServices(c echo.Context) error {
	items, err := h.mgr.ListServices(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	if items == nil {
		items = []*Service{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, err := h.mgr.GetService(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) CreateService(c echo.Context) error {
	var req serviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var s Service
	req.apply(&s)
	if err := h.mgr.CreateService(c.Request().Context(), &s); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req serviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s := Service{ID: id}
	req.apply(&s)
	if err := h.mgr.UpdateService(c.Request().Context(), &s); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.mgr.DeleteService(c.Request().Context(), id); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
