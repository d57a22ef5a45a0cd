package clients

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/auth"
)

type Handler struct {
	reg *Registry
}

func NewHandler(reg *Registry) *Handler {
	return &Handler{reg: reg}
}

func (h *Handler) RegisterRoutes(admin *echo.Group) {
	g := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	g.GET("/trusted-clients", h.ListClients)
	g.POST("/trusted-clients", h.AddClient)
	g.PUT("/trusted-clients/:id", h.UpdateClient)
	g.DELETE("/trusted-clients/:id", h.RemoveClient)
}

func (h *Handler) ListClients(c echo.Context) error {
	items, err := h.reg.ListClients(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddClient(c echo.Context) error {
	var tc TrustedClient
	if err := c.Bind(&tc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tc.ID = uuid.Nil
	if err := h.reg.AddClient(c.Request().Context(), &tc); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusCreated, tc)
}

func (h *Handler) UpdateClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var tc TrustedClient
	if err := c.Bind(&tc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tc.ID = id
	if err := h.reg.UpdateClient(c.Request().Context(), &tc); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, tc)
}

func (h *Handler) RemoveClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.reg.RemoveClient(c.Request().Context(), id); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
