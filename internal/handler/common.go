package handler // package handler contains the echo HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/credo/internal/middleware"
	"github.com/iliyamo/credo/internal/service"
)

const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the caller id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// decode binds the JSON body into req and runs its validate tags.
func decode(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDeadline accepts RFC 3339 or the datetime-local formats browsers
// send.  Values without a zone are taken as UTC.
func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid deadline")
}

// respondError writes err as {"error": reason} with the status matching
// its kind.  Anything unclassified is logged and reported as a 500.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrValidation):
			code = http.StatusBadRequest
		case errors.Is(err, service.ErrForbidden):
			code = http.StatusForbidden
		case errors.Is(err, service.ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, service.ErrConflict):
			code = http.StatusConflict
		}
		return c.JSON(code, echo.Map{"error": se.Reason})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	log.Error().Err(err).Str("route", c.Path()).Str("method", c.Request().Method).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
