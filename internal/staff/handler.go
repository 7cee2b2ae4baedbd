package staff

import (
	"errors"
	"fmt"
	"strings"

	"kiosk-backend/internal/audit"
	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EmployeeResponse struct {
	ID     uint                `json:"id"`
	Name   string              `json:"name"`
	Role   models.EmployeeRole `json:"role"`
	Salary decimal.Decimal     `json:"salary"`
	Email  *string             `json:"email,omitempty"`
}

// EmployeeRequest is used for create and update. Email and password are only
// needed for employees who sign in to the manager or cashier screens.
type EmployeeRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Role     string          `json:"role" validate:"required,oneof=cashier manager"`
	Salary   decimal.Decimal `json:"salary" validate:"gte=0"`
	Email    *string         `json:"email" validate:"omitempty,email,max=100"`
	Password string          `json:"password" validate:"omitempty,min=8,max=72"`
}

func toResponse(e *models.Employee) EmployeeResponse {
	return EmployeeResponse{ID: e.ID, Name: e.Name, Role: e.Role, Salary: e.Wage, Email: e.Email}
}

func apply(e *models.Employee, body EmployeeRequest) error {
	e.Name = strings.TrimSpace(body.Name)
	e.Role = models.EmployeeRole(body.Role)
	e.Wage = body.Salary.Round(2)
	if body.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*body.Email))
		if email == "" {
			e.Email = nil
		} else {
			e.Email = &email
		}
	}
	if body.Password != "" {
		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return err
		}
		e.PasswordHash = hash
	}
	return nil
}

// GET /api/manager/employees
func ListEmployeesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var employees []models.Employee
		if err := db.WithContext(c.UserContext()).Order("name").Find(&employees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to list employees")
		}

		res := make([]EmployeeResponse, 0, len(employees))
		for i := range employees {
			res = append(res, toResponse(&employees[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/manager/employees
func CreateEmployeeHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EmployeeRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		var e models.Employee
		if err := apply(&e, body); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		employeeID, actor := auth.Actor(c)
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&e).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityEmployee,
				EntityID:    e.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Hired %s as %s", e.Name, e.Role),
				After:       e,
			})
		})
		if err != nil {
			return writeError(c, err, "create")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(&e))
	}
}

// PUT /api/manager/employees/:id
func UpdateEmployeeHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body EmployeeRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		var e models.Employee
		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&e, id).Error; err != nil {
				return err
			}
			before := e

			if err := apply(&e, body); err != nil {
				return err
			}
			if err := tx.Model(&e).Select("name", "role", "wage", "email", "password_hash").Updates(&e).Error; err != nil {
				return err
			}

			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityEmployee,
				EntityID:    e.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Updated employee %s", e.Name),
				Before:      before,
				After:       e,
			})
		})
		if err != nil {
			return writeError(c, err, "update")
		}

		return c.JSON(toResponse(&e))
	}
}

// DELETE /api/manager/employees/:id
func DeleteEmployeeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var e models.Employee
			if err := tx.First(&e, id).Error; err != nil {
				return err
			}
			if err := tx.Delete(&e).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityEmployee,
				EntityID:    e.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Removed employee %s", e.Name),
				Before:      e,
			})
		})
		if err != nil {
			return writeError(c, err, "delete")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func writeError(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Employee not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusBadRequest, "Email is already used by another employee")
	}
	logging.FromContext(c.UserContext()).WithError(err).Errorf("Employee %s failed", op)
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to "+op+" employee")
}
