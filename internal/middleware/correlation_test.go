package middleware

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newCorrelationApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		*seen = CorrelationIDFromContext(c.UserContext())
		return c.SendString(GetCorrelationID(c))
	})
	return app
}

func TestCorrelationIDReusesIncomingHeader(t *testing.T) {
	var seen string
	app := newCorrelationApp(&seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-42", resp.Header.Get(CorrelationHeader))
	require.Equal(t, "req-42", seen)
}

func TestCorrelationIDReplacesMalformedHeader(t *testing.T) {
	var seen string
	app := newCorrelationApp(&seen)

	for _, bad := range []string{"has space", strings.Repeat("x", 200), "naïve"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(CorrelationHeader, bad)
		resp, err := app.Test(req)
		require.NoError(t, err)

		got := resp.Header.Get(CorrelationHeader)
		require.NotEqual(t, bad, got)
		require.Len(t, got, 36)
		require.Equal(t, got, seen)
	}
}

func TestContextWithCorrelation(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), " reaper-1 ")
	require.Equal(t, "reaper-1", CorrelationIDFromContext(ctx))

	require.Empty(t, CorrelationIDFromContext(ContextWithCorrelation(context.Background(), "")))
}
