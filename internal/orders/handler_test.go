package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	got     Submission
	receipt Receipt
	err     error
	calls   int
}

func (f *fakeSubmitter) Submit(_ context.Context, sub Submission) (Receipt, error) {
	f.calls++
	f.got = sub
	if err := Validate(sub.Items); err != nil {
		return Receipt{}, err
	}
	return f.receipt, f.err
}

type observation struct {
	channel string
	reason  string
}

type fakeRecorder struct {
	seen []observation
}

func (f *fakeRecorder) Observe(channel string, _ time.Time, reason string) {
	f.seen = append(f.seen, observation{channel: channel, reason: reason})
}

func newApp(svc Submitter, rec Recorder) *fiber.App {
	app := fiber.New()
	app.Post("/api/orders", CustomerOrderHandler(svc, rec))
	app.Post("/api/cashier/orders", CashierOrderHandler(svc, rec))
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestCashierOrderHandler_Created(t *testing.T) {
	svc := &fakeSubmitter{receipt: Receipt{OrderID: 42, Total: decimal.RequireFromString("11.50")}}
	rec := &fakeRecorder{}
	app := newApp(svc, rec)

	status, raw := post(t, app, "/api/cashier/orders", `{"items":[
		{"product_id":1,"product_name":"Classic Milk Tea","quantity":2,"price_per_unit":4.5,"subtotal":9.0},
		{"product_id":3,"product_name":"Matcha Latte","quantity":1,"price_per_unit":2.5,"subtotal":2.5,"toppings":[7]}
	]}`)

	require.Equal(t, fiber.StatusCreated, status)

	var res OrderResponse
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, uint(42), res.OrderID)
	assert.True(t, decimal.RequireFromString("11.50").Equal(res.TotalPrice))

	require.Len(t, svc.got.Items, 2)
	assert.Equal(t, models.ChannelCashier, svc.got.Channel)
	assert.Equal(t, []uint{7}, svc.got.Items[1].ToppingIDs)
	assert.Equal(t, []observation{{channel: "cashier", reason: ""}}, rec.seen)
}

func TestCashierOrderHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantReason string
	}{
		{
			name:       "malformed json",
			body:       `{"items":`,
			wantStatus: fiber.StatusBadRequest,
			wantReason: "malformed_body",
		},
		{
			name:       "line over the cap",
			body:       `{"items":[{"product_id":1,"quantity":1001,"price_per_unit":1,"subtotal":1001}]}`,
			wantStatus: fiber.StatusBadRequest,
			wantReason: "invalid_item",
		},
		{
			name:       "empty cart",
			body:       `{"items":[]}`,
			wantStatus: fiber.StatusBadRequest,
			wantReason: "empty_order",
		},
		{
			name:       "zero quantity",
			body:       `{"items":[{"product_id":1,"quantity":0,"price_per_unit":1,"subtotal":0}]}`,
			wantStatus: fiber.StatusBadRequest,
			wantReason: "invalid_item",
		},
		{
			name:       "insufficient stock",
			body:       `{"items":[{"product_id":1,"quantity":1,"price_per_unit":1,"subtotal":1}]}`,
			err:        ErrInsufficientStock,
			wantStatus: fiber.StatusInternalServerError,
			wantReason: "insufficient_stock",
		},
		{
			name:       "unknown product",
			body:       `{"items":[{"product_id":99,"quantity":1,"price_per_unit":1,"subtotal":1}]}`,
			err:        ErrProductNotFound,
			wantStatus: fiber.StatusNotFound,
			wantReason: "product_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			app := newApp(&fakeSubmitter{err: tt.err}, rec)

			status, _ := post(t, app, "/api/cashier/orders", tt.body)
			assert.Equal(t, tt.wantStatus, status)

			require.Len(t, rec.seen, 1)
			assert.Equal(t, tt.wantReason, rec.seen[0].reason)
		})
	}
}

func TestCustomerOrderHandler(t *testing.T) {
	svc := &fakeSubmitter{receipt: Receipt{OrderID: 7, Total: decimal.RequireFromString("6.00")}}
	rec := &fakeRecorder{}
	app := newApp(svc, rec)

	status, raw := post(t, app, "/api/orders", `{
		"items":[{"menuItemId":2,"name":"Taro Milk Tea","size":"Large","iceLevel":"Less Ice",
			"sweetnessLevel":"50%","toppings":[{"id":9,"name":"Boba","price":0.5}],"price":6.00,"quantity":1}],
		"totalPrice":6.00,
		"customerEmail":"guest@example.com"
	}`)

	require.Equal(t, fiber.StatusCreated, status, string(raw))
	assert.Equal(t, models.ChannelKiosk, svc.got.Channel)
	assert.Equal(t, "guest@example.com", svc.got.CustomerEmail)
	require.Len(t, svc.got.Items, 1)
	assert.Equal(t, "Taro Milk Tea (Size: Large, Ice: Less Ice, Sweetness: 50%, Toppings: Boba)", svc.got.Items[0].ProductName)
	assert.Equal(t, []observation{{channel: "kiosk", reason: ""}}, rec.seen)
}

func TestCustomerOrderHandler_TotalMismatch(t *testing.T) {
	svc := &fakeSubmitter{}
	rec := &fakeRecorder{}
	app := newApp(svc, rec)

	status, _ := post(t, app, "/api/orders", `{"items":[{"menuItemId":2,"name":"Taro","price":5,"quantity":1}],"totalPrice":9.99}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, svc.calls, "a mismatched cart never reaches the database")
	require.Len(t, rec.seen, 1)
	assert.Equal(t, "invalid_item", rec.seen[0].reason)
}

func TestCustomerOrderHandler_MalformedBody(t *testing.T) {
	svc := &fakeSubmitter{}
	rec := &fakeRecorder{}
	app := newApp(svc, rec)

	status, raw := post(t, app, "/api/orders", `{"items":[{"menuItemId":"two"}]}`)

	assert.Equal(t, fiber.StatusBadRequest, status, string(raw))
	assert.Zero(t, svc.calls)
	assert.Equal(t, []observation{{channel: "kiosk", reason: "malformed_body"}}, rec.seen)
}
