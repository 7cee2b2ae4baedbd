package catalog

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

type ProductResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

type ProductRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Category string          `json:"category" validate:"required,max=50"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type RecipeLine struct {
	IngredientID   uint   `json:"ingredient_id" validate:"required"`
	IngredientName string `json:"ingredient_name,omitempty"`
	QuantityNeeded int    `json:"quantity_needed" validate:"gte=0,lte=1000"`
}

type RecipeRequest struct {
	Ingredients []RecipeLine `json:"ingredients" validate:"dive"`
}

func toResponse(p *models.Product) ProductResponse {
	return ProductResponse{ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price}
}

// GET /api/manager/products
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := db.WithContext(c.UserContext()).Order("category, name").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to list products")
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, toResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/manager/products
func CreateProductHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		p := models.Product{
			Name:     strings.TrimSpace(body.Name),
			Category: strings.TrimSpace(body.Category),
			Price:    body.Price.Round(2),
		}

		employeeID, actor := auth.Actor(c)
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityProduct,
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Created product %s", p.Name),
				After:       p,
			})
		})
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Product create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create product")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(&p))
	}
}

// PUT /api/manager/products/:id
func UpdateProductHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body ProductRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		var p models.Product
		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&p, id).Error; err != nil {
				return err
			}
			before := p

			p.Name = strings.TrimSpace(body.Name)
			p.Category = strings.TrimSpace(body.Category)
			p.Price = body.Price.Round(2)
			if err := tx.Model(&p).Select("name", "category", "price").Updates(&p).Error; err != nil {
				return err
			}

			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityProduct,
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Updated product %s", p.Name),
				Before:      before,
				After:       p,
			})
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Product update failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update product")
		}

		return c.JSON(toResponse(&p))
	}
}

// DELETE /api/manager/products/:id
// The recipe goes with the product; past order items keep their copied names.
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var p models.Product
			if err := tx.Preload("Recipe").First(&p, id).Error; err != nil {
				return err
			}
			if err := tx.Delete(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityProduct,
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Deleted product %s", p.Name),
				Before:      p,
			})
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Product delete failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete product")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// GET /api/manager/products/:id/ingredients
func GetRecipeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		var p models.Product
		err = db.WithContext(c.UserContext()).
			Preload("Recipe", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_id") }).
			Preload("Recipe.Ingredient").
			First(&p, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load recipe")
		}

		res := make([]RecipeLine, 0, len(p.Recipe))
		for _, line := range p.Recipe {
			res = append(res, RecipeLine{
				IngredientID:   line.IngredientID,
				IngredientName: line.Ingredient.Name,
				QuantityNeeded: line.QuantityNeeded,
			})
		}
		return c.JSON(res)
	}
}

// PUT /api/manager/products/:id/ingredients
// Replaces the whole recipe. A missing quantity_needed means one unit.
func UpdateRecipeHandler(db *gorm.DB, v *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := validation.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body RecipeRequest
		if err := validation.ParseBody(c, v, &body); err != nil {
			return err
		}

		lines, err := normalizeRecipe(id, body.Ingredients)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		employeeID, actor := auth.Actor(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var p models.Product
			if err := tx.Preload("Recipe").First(&p, id).Error; err != nil {
				return err
			}

			if err := ensureIngredientsExist(tx, lines); err != nil {
				return err
			}
			if err := audit.ReplaceRecipe(tx, id, lines); err != nil {
				return err
			}

			return audit.WriteLog(tx, audit.LogOptions{
				EmployeeID:  employeeID,
				Actor:       actor,
				EntityType:  models.AuditEntityRecipe,
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Updated recipe of %s (%d ingredients)", p.Name, len(lines)),
				Before:      p.Recipe,
				After:       lines,
			})
		})
		var missing unknownIngredientError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		case errors.As(err, &missing):
			return fiber.NewError(fiber.StatusBadRequest, missing.Error())
		case err != nil:
			logging.FromContext(c.UserContext()).WithError(err).Error("Recipe update failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update recipe")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func normalizeRecipe(productID uint, in []RecipeLine) ([]models.ProductIngredient, error) {
	seen := map[uint]bool{}
	lines := make([]models.ProductIngredient, 0, len(in))
	for _, l := range in {
		if seen[l.IngredientID] {
			return nil, fmt.Errorf("ingredient %d is listed more than once", l.IngredientID)
		}
		seen[l.IngredientID] = true

		qty := l.QuantityNeeded
		if qty == 0 {
			qty = 1
		}
		lines = append(lines, models.ProductIngredient{
			ProductID:      productID,
			IngredientID:   l.IngredientID,
			QuantityNeeded: qty,
		})
	}
	return lines, nil
}

type unknownIngredientError struct {
	ids []uint
}

func (e unknownIngredientError) Error() string {
	return fmt.Sprintf("unknown ingredient ids: %v", e.ids)
}

func ensureIngredientsExist(tx *gorm.DB, lines []models.ProductIngredient) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}

	var found []uint
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	have := make(map[uint]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return unknownIngredientError{ids: missing}
}
