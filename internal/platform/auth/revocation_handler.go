package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// LogoutHandler serves POST /admin/auth/logout: the bearer token used for
// the request is revoked until its expiry. Requests authenticated without a
// token ID (development auth) succeed without effect.
func LogoutHandler(list RevocationList) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		jti, _ := ctx.Value(TokenIDKey).(string)
		exp, _ := ctx.Value(TokenExpiryKey).(time.Time)
		if jti == "" {
			return c.NoContent(http.StatusNoContent)
		}
		if err := list.Revoke(ctx, jti, exp); err != nil {
			c.Response().Header().Set("Retry-After", "5")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "could not revoke token")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
