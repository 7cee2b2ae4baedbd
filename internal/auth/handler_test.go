package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"kiosk-backend/internal/database/databasetest"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndMe(t *testing.T) {
	db := databasetest.Open(t, "auth")

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	email := "mina@kiosk.test"
	emp := models.Employee{Name: "Mina", Role: models.RoleManager, Wage: decimal.NewFromInt(20), Email: &email, PasswordHash: hash}
	require.NoError(t, db.Create(&emp).Error)

	app := fiber.New()
	v := validation.New()
	app.Post("/api/auth/login", LoginHandler(db, testSecret, v))
	app.Get("/api/auth/me", JWTMiddleware(testSecret, true), MeHandler(db))

	login := func(body string) (int, []byte) {
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, raw
	}

	status, _ := login(`{"email":"mina@kiosk.test","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = login(`{"email":"nobody@kiosk.test","password":"correct horse"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = login(`{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, raw := login(`{"email":"MINA@kiosk.test","password":"correct horse"}`)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var res struct {
		Token    string       `json:"token"`
		Employee EmployeeInfo `json:"employee"`
	}
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, emp.ID, res.Employee.ID)
	assert.Equal(t, models.RoleManager, res.Employee.Role)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me EmployeeInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "mina@kiosk.test", me.Email)
}
