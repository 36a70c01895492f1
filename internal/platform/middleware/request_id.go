package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/riskcheck/riskcheck/internal/platform/requestid"
)

const (
	// RequestIDHeader is echoed on every response.
	RequestIDHeader = requestid.Header
	// RequestIDKey is the echo context key holding the request id.
	RequestIDKey = "request_id"

	maxRequestIDLen = 128
)

// RequestID assigns each request an id, reusing a caller-supplied
// X-Request-ID when it is reasonably sized. The id is stored on the echo
// context and on the request context for outbound calls.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}

			c.Set(RequestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			c.SetRequest(req.WithContext(requestid.WithContext(req.Context(), rid)))

			return next(c)
		}
	}
}
