package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"civicboard/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(observability.ExtractCorrelationID(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "abc-123", string(body))
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderCorrelationID))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Len(t, string(body), 36)
	assert.Equal(t, string(body), resp.Header.Get(HeaderCorrelationID))
}

func TestIdentity(t *testing.T) {
	app := fiber.New()
	app.Use(Identity())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": UserID(c), "moderator": IsModerator(c)})
	})

	tests := []struct {
		name, user, role string
		wantUser         float64
		wantModerator    bool
	}{
		{"anonymous", "", "", 0, false},
		{"user", "42", "", 42, false},
		{"moderator", "7", "Moderator", 7, true},
		{"malformed id", "abc", "", 0, false},
		{"zero id", "0", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.user != "" {
				req.Header.Set(HeaderUserID, tt.user)
			}
			if tt.role != "" {
				req.Header.Set(HeaderUserRole, tt.role)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			var got map[string]any
			body, _ := io.ReadAll(resp.Body)
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantUser, got["user"])
			assert.Equal(t, tt.wantModerator, got["moderator"])
		})
	}
}

func TestRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	app := fiber.New()
	app.Use(Identity())
	app.Post("/reports", RateLimit(rdb, 2, time.Minute, "report"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(user string) int {
		req := httptest.NewRequest("POST", "/reports", nil)
		req.Header.Set(HeaderUserID, user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusCreated, send("1"))
	assert.Equal(t, fiber.StatusCreated, send("1"))
	assert.Equal(t, fiber.StatusTooManyRequests, send("1"))
	assert.Equal(t, fiber.StatusCreated, send("2"), "limits are per caller")

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, fiber.StatusCreated, send("1"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	app := fiber.New()
	app.Post("/", RateLimit(rdb, 1, time.Minute, "x"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/off", RateLimit(nil, 1, time.Minute, "y"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for _, path := range []string{"/", "/", "/off", "/off"} {
		resp, err := app.Test(httptest.NewRequest("POST", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestCheckRateLimit_NilClient(t *testing.T) {
	_, err := CheckRateLimit(context.Background(), nil, "r", "id", 1, time.Second)
	assert.Error(t, err)
}

func TestInitMetricsIsSingleton(t *testing.T) {
	assert.Same(t, InitMetrics("a"), InitMetrics("b"))
}
