package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_Observe(t *testing.T) {
	m := NewOrders()

	m.Observe("cashier", time.Now(), "")
	m.Observe("cashier", time.Now(), "")
	m.Observe("kiosk", time.Now(), "insufficient_stock")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submitted.WithLabelValues("cashier")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.submitted.WithLabelValues("kiosk")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("kiosk", "insufficient_stock")))
}

func TestOrders_Handler(t *testing.T) {
	m := NewOrders()
	m.Observe("cashier", time.Now(), "")

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kiosk_orders_submitted_total{channel="cashier"} 1`)
}
