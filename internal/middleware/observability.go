package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-innovation-api/internal/observability"
)

var latencyBuckets = []struct {
	limit time.Duration
	label string
}{
	{25 * time.Millisecond, "<=25ms"},
	{50 * time.Millisecond, "<=50ms"},
	{100 * time.Millisecond, "<=100ms"},
	{250 * time.Millisecond, "<=250ms"},
	{500 * time.Millisecond, "<=500ms"},
}

// Observability records request metrics and one structured log line for every
// /api request. Successful health probes are logged at debug level.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		elapsed := time.Since(start)
		route := routeTemplate(c)
		status := c.Response().StatusCode()

		recordRequest(c.Method(), route, status, elapsed)
		logRequest(logger, c, route, status, elapsed)
		return err
	}
}

func recordRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	observability.APIRequests().WithLabelValues(method, route, code).Inc()
	observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= fiber.StatusBadRequest {
		observability.APIErrors().WithLabelValues(method, route, code).Inc()
	}
}

func logRequest(logger zerolog.Logger, c *fiber.Ctx, route string, status int, elapsed time.Duration) {
	var event *zerolog.Event
	switch {
	case status >= fiber.StatusInternalServerError:
		event = logger.Error()
	case status >= fiber.StatusBadRequest:
		event = logger.Warn()
	case strings.HasSuffix(route, "/health"):
		event = logger.Debug()
	default:
		event = logger.Info()
	}

	event = event.
		Str("correlation_id", GetCorrelationID(c)).
		Str("method", c.Method()).
		Str("route", route).
		Int("status", status).
		Dur("latency", elapsed).
		Str("latency_bucket", latencyBucket(elapsed))
	if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
		event = event.Uint("user_id", userID).Strs("roles", RolesFromContext(c))
	}
	event.Msg("request completed")
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func latencyBucket(elapsed time.Duration) string {
	for _, bucket := range latencyBuckets {
		if elapsed <= bucket.limit {
			return bucket.label
		}
	}
	return ">500ms"
}
