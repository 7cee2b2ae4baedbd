package menu

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"kiosk-backend/internal/database/databasetest"
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuAndCustomizations(t *testing.T) {
	db := databasetest.Open(t, "menu")

	require.NoError(t, db.Create(&[]models.Product{
		{Name: "Taro Milk Tea", Category: "Milk Tea", Price: decimal.RequireFromString("5.25")},
		{Name: "Classic Milk Tea", Category: "Milk Tea", Price: decimal.RequireFromString("4.50")},
		{Name: "Mango Green Tea", Category: "Fruit Tea", Price: decimal.RequireFromString("4.75")},
	}).Error)
	require.NoError(t, db.Create(&[]models.Ingredient{
		{Name: "Pudding", Category: "Topping", Price: decimal.NewFromInt(1), Quantity: 3},
		{Name: "Boba", Category: "Topping", Price: decimal.NewFromInt(1), Quantity: 10},
		{Name: "Aloe", Category: "Topping", Price: decimal.NewFromInt(1), Quantity: 0},
	}).Error)

	app := fiber.New()
	app.Get("/api/menu", MenuHandler(db))
	app.Get("/api/customizations", CustomizationsHandler(db, decimal.RequireFromString("0.50")))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/menu", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var items []MenuItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Mango Green Tea", "Classic Milk Tea", "Taro Milk Tea"}, names, "ordered by category then name")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/customizations", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var custom Customizations
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&custom))
	assert.Equal(t, Sizes, custom.Sizes)
	assert.Len(t, custom.SweetnessOptions, 5)
	require.Len(t, custom.Toppings, 2, "out of stock ingredients are not offered")
	assert.Equal(t, "Boba", custom.Toppings[0].Name)
	assert.True(t, decimal.RequireFromString("0.50").Equal(custom.Toppings[0].Price))
}
