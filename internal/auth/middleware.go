package auth

import (
	"strings"

	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxEmployeeIDKey   = "employee_id"
	CtxEmployeeRoleKey = "employee_role"
	CtxEmployeeNameKey = "employee_name"
)

// JWTMiddleware reads a Bearer token into the request locals. With required
// false a missing header passes through, so audit logs still pick up the
// employee whenever the client does send a token.
func JWTMiddleware(secret string, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			if !required {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Debug("Rejected token")
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(CtxEmployeeIDKey, claims.EmployeeID)
		c.Locals(CtxEmployeeRoleKey, claims.Role)
		c.Locals(CtxEmployeeNameKey, claims.Name)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.EmployeeRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxEmployeeRoleKey).(models.EmployeeRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Missing role")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Not allowed for this role")
	}
}

// Actor returns the signed-in employee, or nil and "anonymous" when the
// request carried no token.
func Actor(c *fiber.Ctx) (*uint, string) {
	id, ok := c.Locals(CtxEmployeeIDKey).(uint)
	if !ok {
		return nil, "anonymous"
	}
	name, _ := c.Locals(CtxEmployeeNameKey).(string)
	return &id, name
}
