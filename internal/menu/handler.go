package menu

import (
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	Sizes            = []string{"Small", "Medium", "Large"}
	IceOptions       = []string{"No Ice", "Less Ice", "Regular Ice", "Extra Ice"}
	SweetnessOptions = []string{"0%", "25%", "50%", "75%", "100%"}
)

type MenuItem struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
}

type Topping struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Customizations struct {
	Sizes            []string  `json:"sizes"`
	IceOptions       []string  `json:"iceOptions"`
	SweetnessOptions []string  `json:"sweetnessOptions"`
	Toppings         []Topping `json:"toppings"`
}

// GET /api/menu and GET /api/cashier/products
func MenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := db.WithContext(c.UserContext()).Order("category, name").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load menu")
		}

		res := make([]MenuItem, 0, len(products))
		for _, p := range products {
			res = append(res, MenuItem{ProductID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price})
		}
		return c.JSON(res)
	}
}

// GET /api/customizations
// Every ingredient still in stock can be added as a topping at a flat price.
func CustomizationsHandler(db *gorm.DB, toppingPrice decimal.Decimal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ingredients []models.Ingredient
		err := db.WithContext(c.UserContext()).
			Select("id", "name").
			Where("quantity > 0").
			Order("name").
			Find(&ingredients).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to load customizations")
		}

		toppings := make([]Topping, 0, len(ingredients))
		for _, ing := range ingredients {
			toppings = append(toppings, Topping{ID: ing.ID, Name: ing.Name, Price: toppingPrice})
		}

		return c.JSON(Customizations{
			Sizes:            Sizes,
			IceOptions:       IceOptions,
			SweetnessOptions: SweetnessOptions,
			Toppings:         toppings,
		})
	}
}
