package auth

import (
	"errors"
	"strings"

	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type EmployeeInfo struct {
	ID    uint                `json:"id"`
	Name  string              `json:"name"`
	Email string              `json:"email"`
	Role  models.EmployeeRole `json:"role"`
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, secret string, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}
		email := strings.TrimSpace(strings.ToLower(body.Email))

		var emp models.Employee
		err := db.WithContext(c.UserContext()).Where("LOWER(email) = ?", email).First(&emp).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Login failed")
		}

		if emp.PasswordHash == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
		}

		token, err := GenerateToken(secret, &emp)
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Token signing failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create token")
		}

		logging.FromContext(c.UserContext()).WithField("employee_id", emp.ID).Info("Employee logged in")

		return c.JSON(fiber.Map{
			"token":    token,
			"employee": employeeInfo(&emp),
		})
	}
}

// POST /api/auth/google
func GoogleHandler(v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body GoogleRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		profile, err := DecodeGoogleCredential(body.Credential)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid Google credential")
		}

		return c.JSON(fiber.Map{
			"email":   profile.Email,
			"name":    profile.Name,
			"picture": profile.Picture,
			"success": true,
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := c.Locals(CtxEmployeeIDKey).(uint)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not signed in")
		}

		var emp models.Employee
		if err := db.WithContext(c.UserContext()).First(&emp, id).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Employee no longer exists")
		}
		return c.JSON(employeeInfo(&emp))
	}
}

func employeeInfo(emp *models.Employee) EmployeeInfo {
	info := EmployeeInfo{ID: emp.ID, Name: emp.Name, Role: emp.Role}
	if emp.Email != nil {
		info.Email = *emp.Email
	}
	return info
}
