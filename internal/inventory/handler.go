package inventory

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
	"gorm.io/gorm/clause"
)

type StockResponse struct {
	ItemID   uint   `json:"item_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type IngredientResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type CreateIngredientRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Category string          `json:"category" validate:"required,max=50"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

// UpdateIngredientRequest only touches the fields that are present.
type UpdateIngredientRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=100"`
	Category *string          `json:"category" validate:"omitempty,max=50"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity" validate:"omitempty,gte=0"`
}

var errIngredientInUse = errors.New("ingredient is used in a recipe")

func toResponse(ing *models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: ing.ID, Name: ing.Name, Category: ing.Category, Price: ing.Price, Quantity: ing.Quantity}
}

// GET /api/cashier/inventory
func StockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ingredients []models.Ingredient
		if err := db.WithContext(c.UserContext()).Order("category, name").Find(&ingredients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load inventory")
		}

		res := make([]StockResponse, 0, len(ingredients))
		for _, ing := range ingredients {
			res = append(res, StockResponse{ItemID: ing.ID, Name: ing.Name, Category: ing.Category, Quantity: ing.Quantity})
		}
		return c.JSON(res)
	}
}

// GET /api/manager/ingredients
func ListIngredientsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ingredients []models.Ingredient
		if err := db.WithContext(c.UserContext()).Order("category, name").Find(&ingredients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to list ingredients")
		}

		res := make([]IngredientResponse, 0, len(ingredients))
		for i := range ingredients {
			res = append(res, toResponse(&ingredients[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/manager/ingredients
// New ingredients start with no stock; use restock or PUT to add some.
func CreateIngredientHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIngredientRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		ing := models.Ingredient{
			Name:     strings.TrimSpace(body.Name),
			Category: strings.TrimSpace(body.Category),
			Price:    body.Price.Round(2),
			Quantity: 0,
		}

		employeeID, actor := auth.Actor(c)
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&ing).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityIngredient,
				EntityID:    ing.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Created ingredient %s", ing.Name),
				After:       ing,
			})
		})
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Ingredient create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create ingredient")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(&ing))
	}
}

// PUT /api/manager/ingredients/:id
func UpdateIngredientHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateIngredientRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}
		if body.Price != nil && body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price must be at least 0")
		}
		if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name must not be empty")
		}

		var ing models.Ingredient
		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			// The row lock keeps order decrements from landing between the
			// read below and the write, so the snapshot matches what we change.
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ing, id).Error; err != nil {
				return err
			}
			before := ing

			changes := map[string]any{}
			if body.Name != nil {
				ing.Name = strings.TrimSpace(*body.Name)
				changes["name"] = ing.Name
			}
			if body.Category != nil {
				ing.Category = strings.TrimSpace(*body.Category)
				changes["category"] = ing.Category
			}
			if body.Price != nil {
				ing.Price = body.Price.Round(2)
				changes["price"] = ing.Price
			}
			if body.Quantity != nil {
				ing.Quantity = *body.Quantity
				changes["quantity"] = ing.Quantity
			}
			if len(changes) > 0 {
				if err := tx.Model(&ing).Updates(changes).Error; err != nil {
					return err
				}
			}

			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityIngredient,
				EntityID:    ing.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Updated ingredient %s", ing.Name),
				Before:      before,
				After:       ing,
			})
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ingredient not found")
		}
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Ingredient update failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update ingredient")
		}

		return c.JSON(toResponse(&ing))
	}
}

// DELETE /api/manager/ingredients/:id
func DeleteIngredientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var ing models.Ingredient
			if err := tx.First(&ing, id).Error; err != nil {
				return err
			}

			var uses int64
			if err := tx.Model(&models.ProductIngredient{}).Where("ingredient_id = ?", id).Count(&uses).Error; err != nil {
				return err
			}
			if uses > 0 {
				return fmt.Errorf("%w: %s is needed by %d products", errIngredientInUse, ing.Name, uses)
			}

			if err := tx.Delete(&ing).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityIngredient,
				EntityID:    ing.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Deleted ingredient %s", ing.Name),
				Before:      ing,
			})
		})
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Ingredient not found")
		case errors.Is(err, errIngredientInUse):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			logging.FromContext(c.UserContext()).WithError(err).Error("Ingredient delete failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete ingredient")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
