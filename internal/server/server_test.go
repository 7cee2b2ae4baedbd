package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/database/databasetest"
	"kiosk-backend/internal/metrics"
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const secret = "0123456789abcdef0123456789abcdef"

func testConfig(authRequired bool) *config.Config {
	return &config.Config{
		JWTSecret:         secret,
		CORSOrigins:       "http://localhost:5173",
		AuthRequired:      authRequired,
		ToppingPrice:      decimal.RequireFromString("0.50"),
		LowStockThreshold: 10,
	}
}

// offlineDB is a handle that never connects; enough for requests that are
// rejected before touching the database.
func offlineDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 port=1 dbname=none"}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "short and stout", body["error"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body["error"], "exploded")
}

func TestAuthGuards(t *testing.T) {
	app := New(testConfig(true), offlineDB(t), metrics.NewOrders())

	cashier, err := auth.GenerateToken(secret, &models.Employee{ID: 2, Name: "Ben", Role: models.RoleCashier})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "manager route needs a token", method: "GET", path: "/api/manager/employees", want: 401},
		{name: "cashier cannot manage", method: "GET", path: "/api/manager/employees", token: cashier, want: 403},
		{name: "cashier route needs a token", method: "POST", path: "/api/cashier/orders", want: 401},
		{name: "me needs a token", method: "GET", path: "/api/auth/me", want: 401},
		{name: "cashier can reach cashier routes", method: "POST", path: "/api/cashier/orders", token: cashier, want: 400},
		{name: "customer orders are public", method: "POST", path: "/api/orders", want: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(`{"items":[]}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
		})
	}
}

func TestOrderFlow(t *testing.T) {
	db := databasetest.Open(t, "server")
	m := metrics.NewOrders()
	app := New(testConfig(false), db, m)

	tea := models.Ingredient{Name: "Jasmine Tea", Category: "Tea", Price: decimal.NewFromInt(1), Quantity: 5}
	boba := models.Ingredient{Name: "Boba", Category: "Topping", Price: decimal.NewFromInt(1), Quantity: 5}
	require.NoError(t, db.Create(&tea).Error)
	require.NoError(t, db.Create(&boba).Error)
	p := models.Product{Name: "Jasmine Milk Tea", Category: "Milk Tea", Price: decimal.RequireFromString("4.00"),
		Recipe: []models.ProductIngredient{{IngredientID: tea.ID, QuantityNeeded: 2}}}
	require.NoError(t, db.Create(&p).Error)

	send := func(method, path, body string) (int, []byte) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, raw
	}

	status, raw := send("GET", "/health", "")
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = send("POST", "/api/orders", fmt.Sprintf(`{"items":[{"menuItemId":%d,"name":"Jasmine Milk Tea","size":"Medium",
		"toppings":[{"id":%d,"name":"Boba","price":0.5}],"price":9.00,"quantity":2}],"totalPrice":9.00}`, p.ID, boba.ID))
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	var placed struct {
		OrderID    uint            `json:"orderId"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
	}
	require.NoError(t, json.Unmarshal(raw, &placed))
	assert.True(t, decimal.RequireFromString("9.00").Equal(placed.TotalPrice))

	require.NoError(t, db.First(&tea, tea.ID).Error)
	require.NoError(t, db.First(&boba, boba.ID).Error)
	assert.Equal(t, 1, tea.Quantity)
	assert.Equal(t, 3, boba.Quantity)

	// Two more teas would need 4 units with only 1 left.
	status, raw = send("POST", "/api/cashier/orders", fmt.Sprintf(`{"items":[{"product_id":%d,"product_name":"Jasmine Milk Tea",
		"quantity":2,"price_per_unit":4,"subtotal":8}]}`, p.ID))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	var failed map[string]string
	require.NoError(t, json.Unmarshal(raw, &failed))
	assert.Contains(t, failed["error"], "insufficient inventory")

	status, raw = send("GET", fmt.Sprintf("/api/cashier/orders/%d", placed.OrderID), "")
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), "Jasmine Milk Tea (Size: Medium, Toppings: Boba)")

	status, raw = send("GET", "/metrics", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `kiosk_orders_submitted_total{channel="kiosk"} 1`)
	assert.Contains(t, string(raw), `kiosk_orders_failed_total{channel="cashier",reason="insufficient_stock"} 1`)
}
