package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	pageCSP = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; " +
		"form-action 'self'; frame-ancestors 'none'; base-uri 'self'"
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
)

// SecurityHeaders sets security response headers on every request. HTML pages
// may load their own scripts and styles and use geolocation; JSON routes
// under /api get the locked-down policy.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "no-referrer")

			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			} else {
				h.Set("Content-Security-Policy", pageCSP)
				h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(self)")
			}

			// Assessment results are health data.
			if !strings.HasPrefix(c.Request().URL.Path, "/static/") {
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
