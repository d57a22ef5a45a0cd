package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RetryAfterSeconds is advertised to clients when storage is unavailable.
const RetryAfterSeconds = "5"

// HTTPStatus maps an error onto the status code the public API uses for it.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an echo error. Dependency failures hide their cause
// and set Retry-After on the response.
func HTTP(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	status := HTTPStatus(err)
	switch status {
	case http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", RetryAfterSeconds)
		return echo.NewHTTPError(status, "service temporarily unavailable, retry later")
	case http.StatusInternalServerError:
		return echo.NewHTTPError(status, "internal server error")
	}
	body := map[string]interface{}{
		"message": err.Error(),
		"code":    KindOf(err).String(),
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Field != "" {
		body["field"] = ae.Field
	}
	return echo.NewHTTPError(status, body)
}
