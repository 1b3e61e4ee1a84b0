package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newJWTTestApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(secret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func TestJWTProtectedAcceptsBearerAndCookie(t *testing.T) {
	app := newJWTTestApp("secret")
	token, err := GenerateToken("secret", 7, "Teacher", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingAndForeignTokens(t *testing.T) {
	app := newJWTTestApp("secret")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	foreign, err := GenerateToken("other", 7, "student", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRequiresExpiryAndHS256(t *testing.T) {
	app := newJWTTestApp("secret")

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for _, token := range []string{noExpiry, expired, otherAlg} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestSubjectID(t *testing.T) {
	cases := []struct {
		claims jwt.MapClaims
		want   uint
		ok     bool
	}{
		{claims: jwt.MapClaims{"sub": "12"}, want: 12, ok: true},
		{claims: jwt.MapClaims{"sub": float64(9)}, want: 9, ok: true},
		{claims: jwt.MapClaims{"sub": "alice", "user_id": "4"}, want: 4, ok: true},
		{claims: jwt.MapClaims{"id": json.Number("5")}, want: 5, ok: true},
		{claims: jwt.MapClaims{"sub": float64(-1)}},
		{claims: jwt.MapClaims{"sub": 1.5}},
		{claims: jwt.MapClaims{}},
	}
	for _, tc := range cases {
		got, ok := subjectID(tc.claims)
		require.Equal(t, tc.ok, ok, "%v", tc.claims)
		require.Equal(t, tc.want, got, "%v", tc.claims)
	}
}

func TestRoleClaimMapsAliases(t *testing.T) {
	require.Equal(t, "trainer", canonicalRole("Instructor"))
	require.Equal(t, "admin", canonicalRole(" ADMIN "))
	require.Equal(t, "guest", canonicalRole("guest"))
	require.Equal(t, "student", roleClaim(jwt.MapClaims{"roles": []interface{}{"", "student"}}))
	require.Equal(t, "trainer", roleClaim(jwt.MapClaims{"role": "teacher", "roles": []interface{}{"admin"}}))
	require.Empty(t, roleClaim(jwt.MapClaims{"role": 3}))
}
