package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinEvent/pkg/logger"
)

// RequestLogging logs 5xx responses as errors and slow requests as warnings.
// Everything else goes to debug.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			elapsed := time.Since(start)
			res := c.Response()
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", routeOf(c)),
				logger.Int("status", res.Status),
				logger.Duration("elapsed_ms", elapsed),
				logger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			switch {
			case res.Status >= 500:
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				log.Error("http request failed", fields...)
			case slow > 0 && elapsed >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
