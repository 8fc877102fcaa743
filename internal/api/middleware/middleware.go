package middleware

import (
	"time"

	"auction-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Apply installs the viewer's middleware chain on e.
func Apply(e *echo.Echo, log logger.Logger) {
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(CORS())
	e.Use(RequestLog(log))
}

// CORS is permissive; the viewer only listens on a local address by default.
func CORS() echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.POST, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestedWith,
			echo.HeaderAccessControlRequestMethod,
			echo.HeaderAccessControlRequestHeaders,
		},
		MaxAge: 86400,
	})
}

// RequestLog logs one line per request once the handler has returned.
func RequestLog(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []interface{}{
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_addr", c.RealIP(),
				"latency", time.Since(start).String(),
			}
			if c.Response().Status >= 500 {
				log.Error("Request failed", fields...)
			} else {
				log.Debug("Request handled", fields...)
			}
			return nil
		}
	}
}
