package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-classroom/internal/submission"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// Auth role constants used by WithAuth.
const (
	AuthRoleAny        = "any"
	AuthRoleInstructor = "instructor"
	AuthRoleStudent    = "student"
)

// Principal is the caller JWTProtected attached to the request.
type Principal struct {
	UserID uint
	// Role is the canonical role; unknown claim values are kept lower-cased.
	Role string
}

// Authenticated reports whether a token identified the caller.
func (p Principal) Authenticated() bool {
	return p.UserID > 0 || p.Role != ""
}

// SubmissionRole maps the principal onto the workflow role, empty when the
// claim is not a classroom role.
func (p Principal) SubmissionRole() submission.Role {
	return submission.ParseRole(p.Role)
}

// PrincipalFrom reads the caller from the request locals.
func PrincipalFrom(c *fiber.Ctx) Principal {
	p := Principal{Role: canonicalRole(roleLocal(c.Locals("user_role")))}
	switch id := c.Locals("user_id").(type) {
	case uint:
		p.UserID = id
	case *uint:
		if id != nil {
			p.UserID = *id
		}
	case int:
		if id > 0 {
			p.UserID = uint(id)
		}
	}
	return p
}

// RequireRole rejects callers whose role is not listed. Aliases such as
// "teacher" match their canonical role.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := canonicalRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if !principal.Authenticated() {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[principal.Role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// AuthOptions configures WithAuth.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a single handler. Any role other than AuthRoleAny implies
// RequireUser.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if requireUser && principal.UserID == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !principal.allows(role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}

func (p Principal) allows(role string) bool {
	switch role {
	case AuthRoleAny:
		return true
	case AuthRoleStudent:
		return p.SubmissionRole() == submission.RoleStudent
	case AuthRoleInstructor:
		return p.SubmissionRole().IsInstructor()
	default:
		return p.Role == canonicalRole(role)
	}
}

func roleLocal(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", value)
	}
}
