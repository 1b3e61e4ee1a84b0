package middleware

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// AccessTokenCookie is the cookie browsers send instead of a bearer header.
const AccessTokenCookie = "access_token"

const tokenLeeway = 30 * time.Second

var errNoToken = errors.New("authorization header missing")

// JWTProtected validates HS256 access tokens and stores the caller in the
// request locals. The Authorization header wins over the access_token cookie.
// Tokens without an expiry are rejected.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, err := tokenFromRequest(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if userID, ok := subjectID(claims); ok {
			c.Locals("user_id", userID)
		}
		if role := roleClaim(claims); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

// GenerateToken signs an HS256 access token for the given user.
func GenerateToken(secret string, userID uint, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": string(submission.ParseRole(role)),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func tokenFromRequest(c *fiber.Ctx) (string, error) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization == "" {
		if cookie := strings.TrimSpace(c.Cookies(AccessTokenCookie)); cookie != "" {
			return cookie, nil
		}
		return "", errNoToken
	}

	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

// subjectID reads the numeric user id from sub, falling back to the legacy
// user_id and id claims.
func subjectID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		var raw string
		switch v := claims[key].(type) {
		case string:
			raw = v
		case float64:
			if v < 0 || v != float64(uint64(v)) {
				continue
			}
			return uint(v), true
		case json.Number:
			raw = v.String()
		default:
			continue
		}
		if id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
			return uint(id), true
		}
	}
	return 0, false
}

// roleClaim returns the first non-empty role from role or roles, mapped onto
// the canonical classroom roles. Unknown roles are kept lower-cased so
// RequireRole can still reject them.
func roleClaim(claims jwt.MapClaims) string {
	var candidates []string
	if role, ok := claims["role"].(string); ok {
		candidates = append(candidates, role)
	}
	switch roles := claims["roles"].(type) {
	case string:
		candidates = append(candidates, roles)
	case []interface{}:
		for _, item := range roles {
			if role, ok := item.(string); ok {
				candidates = append(candidates, role)
			}
		}
	}
	for _, candidate := range candidates {
		if role := canonicalRole(candidate); role != "" {
			return role
		}
	}
	return ""
}

func canonicalRole(value string) string {
	if role := submission.ParseRole(value); role != "" {
		return string(role)
	}
	return strings.ToLower(strings.TrimSpace(value))
}
