package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRateLimitCountsOnlyMutatingRequestsPerUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-User") == "2" {
			c.Locals("user_id", uint(2))
		} else {
			c.Locals("user_id", uint(1))
		}
		return c.Next()
	})
	app.Use(RateLimit("test", 1, time.Minute))
	app.Post("/award", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Get("/summary", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	send := func(method, path, user string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusCreated, send(http.MethodPost, "/award", "1"))
	require.Equal(t, fiber.StatusTooManyRequests, send(http.MethodPost, "/award", "1"))
	require.Equal(t, fiber.StatusCreated, send(http.MethodPost, "/award", "2"))
	require.Equal(t, fiber.StatusOK, send(http.MethodGet, "/summary", "1"))
	require.Equal(t, fiber.StatusOK, send(http.MethodGet, "/summary", "1"))
}

func TestCorrelationIDEchoesSafeIDsOnly(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, GetCorrelationID(c), CorrelationIDFromContext(c.UserContext()))
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(CorrelationHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "bad id with spaces")
	resp, err = app.Test(req)
	require.NoError(t, err)
	generated := resp.Header.Get(CorrelationHeader)
	require.NotEmpty(t, generated)
	require.NotEqual(t, "bad id with spaces", generated)
}
