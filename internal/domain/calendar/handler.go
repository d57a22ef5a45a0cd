package calendar

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Carloolivera/barberia-cobran/internal/platform/apperr"
	"github.com/Carloolivera/barberia-cobran/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public *echo.Group, admin *echo.Group) {
	public.GET("/calendar/open-days", h.OpenDays)
	public.GET("/calendar/blocked-dates", h.UpcomingBlockedDates)

	adminGroup := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/working-hours", h.ListWorkingHours)
	adminGroup.PUT("/working-hours/:weekday", h.SetWorkingHour)
	adminGroup.GET("/blocked-dates", h.ListBlockedDates)
	adminGroup.POST("/blocked-dates", h.BlockDate)
	adminGroup.DELETE("/blocked-dates/:id", h.UnblockDate)
}

// -- Public --

func (h *Handler) OpenDays(c echo.Context) error {
	days, err := h.svc.OpenWeekdays(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, int(d))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"weekdays": out})
}

func (h *Handler) UpcomingBlockedDates(c echo.Context) error {
	items, err := h.svc.UpcomingBlockedDates(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	dates := make([]string, 0, len(items))
	for _, b := range items {
		dates = append(dates, b.Date.String())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"dates": dates})
}

// -- Working hours --

type workingHourRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    *bool  `json:"active"`
}

func (h *Handler) ListWorkingHours(c echo.Context) error {
	items, err := h.svc.ListWorkingHours(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SetWorkingHour(c echo.Context) error {
	wd, err := strconv.Atoi(c.Param("weekday"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid weekday")
	}
	var req workingHourRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, err := ParseTimeOfDay(req.StartTime)
	if err != nil {
		return apperr.HTTP(c, apperr.Validation("start_time", "%v", err))
	}
	end, err := ParseTimeOfDay(req.EndTime)
	if err != nil {
		return apperr.HTTP(c, apperr.Validation("end_time", "%v", err))
	}
	w := &WorkingHour{Weekday: time.Weekday(wd), Start: start, End: end, Active: true}
	if req.Active != nil {
		w.Active = *req.Active
	}
	if err := h.svc.SetWorkingHour(c.Request().Context(), w); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// -- Blocked dates --

type blockDateRequest struct {
	Date   string  `json:"date"`
	Reason *string `json:"reason"`
}

func (h *Handler) ListBlockedDates(c echo.Context) error {
	items, err := h.svc.ListBlockedDates(c.Request().Context())
	if err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) BlockDate(c echo.Context) error {
	var req blockDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := ParseDate(req.Date)
	if err != nil {
		return apperr.HTTP(c, apperr.Validation("date", "%v", err))
	}
	b := &BlockedDate{Date: d, Reason: req.Reason}
	if err := h.svc.BlockDate(c.Request().Context(), b); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UnblockDate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.UnblockDate(c.Request().Context(), id); err != nil {
		return apperr.HTTP(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
