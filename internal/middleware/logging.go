package middleware

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger: JSON on stdout with a
// timestamp and the service name.  Unknown levels fall back to info.
func InitLogger(level, service string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// RequestLogger logs one structured line per request.  The route template
// is logged instead of the raw path so ids stay out of the logs.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			status := res.Status
			evt := log.Info()
			if status >= 500 {
				evt = log.Error().Err(err)
			} else if status >= 400 {
				evt = log.Warn()
			}
			evt = evt.
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Int("status", status).
				Dur("duration_ms", time.Since(start)).
				Int64("bytes_sent", res.Size).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID))
			if uid, ok := c.Get(CtxUserID).(uint64); ok {
				evt = evt.Uint64("user_id", uid)
			}
			evt.Msg("request")
			return nil
		}
	}
}
