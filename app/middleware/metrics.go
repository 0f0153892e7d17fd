package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records request count, latency and in-flight requests. Paths are
// labelled with the route template so ids do not explode cardinality.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		done := metrics.TrackInFlight()
		defer done()

		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			} else if !c.Response().Committed {
				status = http.StatusInternalServerError
			}
		}

		metrics.ObserveHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start))
		return err
	}
}
