package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorData is the data for the error page.
type ErrorData struct {
	Status  int
	Title   string
	Message string
}

// ErrorHandler renders errors as JSON under /api and as the HTML error page
// elsewhere. Internal errors are logged; their details never reach the user.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			log := zerolog.Ctx(c.Request().Context())
			if log.GetLevel() == zerolog.Disabled {
				log = &logger
			}
			log.Error().Err(err).Int("status", status).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var werr error
		switch {
		case c.Request().Method == http.MethodHead:
			werr = c.NoContent(status)
		case isAPI(c.Request().URL.Path):
			werr = c.JSON(status, map[string]string{"error": msg})
		default:
			werr = c.Render(status, ErrorPage, &ErrorData{
				Status:  status,
				Title:   http.StatusText(status),
				Message: msg,
			})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
