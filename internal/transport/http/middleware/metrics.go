package middleware

import (
	"errors"
	"time"

	"github.com/djdiptayan1/HRone/internal/metrics"
	"github.com/gofiber/fiber/v2"
)

// NewMetricsMiddleware observes request latency labelled by the matched
// route pattern.
func NewMetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		m.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))

		return err
	}
}
