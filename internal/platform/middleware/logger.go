package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/open-osp/integrator/internal/platform/auth"
)

// Logger emits one structured line per request, leveled by outcome.
// Nearly every operation here is scoped to a facility, so the facility
// a request targets is recorded whenever the route carries one.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
			case status >= 500:
				evt = logger.Error()
			case status >= 400:
				evt = logger.Warn()
			}

			if fac := requestFacility(c); fac != "" {
				evt = evt.Str("facility", fac)
			}
			// Auth middleware runs further down the chain and swaps the
			// request, so the user must come off the post-handler request.
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				evt = evt.Str("user_id", uid)
			}

			rid, _ := c.Get("request_id").(string)
			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// requestFacility finds the facility a request is scoped to, whether it
// arrives as a path segment or a query parameter.
func requestFacility(c echo.Context) string {
	if v := c.Param("facility"); v != "" {
		return v
	}
	return c.QueryParam("facility")
}
