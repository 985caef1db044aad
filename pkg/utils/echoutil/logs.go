package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request on arrival and its response with status,
// duration and error, through the context's logger.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		begin := time.Now()
		c.Logger().Infof("< %s %s", req.Method, req.URL)

		err := next(c)

		c.Logger().Infof(
			"> %s %s: status = %d in %v / error = %+v",
			req.Method, req.URL, c.Response().Status, time.Since(begin), err,
		)
		return err
	}
}

var loglevels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"":      log.WARN,
	"error": log.ERROR,
	"off":   log.OFF,
}

// SetLevel applies a loglevel name to the echo logger. Unknown names fall
// back to warn, with a warning.
func SetLevel(e *echo.Echo, loglevel string) {
	lvl, ok := loglevels[strings.ToLower(loglevel)]
	if !ok {
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel %q, falling back to warn", loglevel)
		return
	}
	e.Logger.SetLevel(lvl)
}
