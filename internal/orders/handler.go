package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Submitter is the part of Service the handlers need.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Receipt, error)
}

// Recorder receives one observation per submission attempt.
type Recorder interface {
	Observe(channel string, started time.Time, reason string)
}

type CashierItem struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Toppings     []uint          `json:"toppings"`
}

type CashierOrderRequest struct {
	Items []CashierItem `json:"items"`
}

type OrderResponse struct {
	OrderID    uint            `json:"orderId"`
	Message    string          `json:"message"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type OrderItemResponse struct {
	ID           uint            `json:"id"`
	ProductID    *uint           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderDetailResponse struct {
	ID            uint                `json:"id"`
	OrderDate     string              `json:"order_date"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	Channel       string              `json:"channel"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	Items         []OrderItemResponse `json:"items"`
}

// POST /api/cashier/orders
func CashierOrderHandler(svc Submitter, rec Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CashierOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return reject(rec, models.ChannelCashier, ErrMalformedBody)
		}

		items := make([]LineItem, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, LineItem{
				ProductID:    it.ProductID,
				ProductName:  it.ProductName,
				Quantity:     it.Quantity,
				PricePerUnit: it.PricePerUnit,
				Subtotal:     it.Subtotal,
				ToppingIDs:   it.Toppings,
			})
		}

		return submit(c, svc, rec, Submission{Channel: models.ChannelCashier, Items: items})
	}
}

// POST /api/orders
func CustomerOrderHandler(svc Submitter, rec Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CustomerOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return reject(rec, models.ChannelKiosk, ErrMalformedBody)
		}

		items, err := body.LineItems()
		if err != nil {
			return reject(rec, models.ChannelKiosk, err)
		}

		return submit(c, svc, rec, Submission{
			Channel:       models.ChannelKiosk,
			CustomerEmail: body.CustomerEmail,
			Items:         items,
		})
	}
}

// reject records a request that failed before reaching the service.
func reject(rec Recorder, channel models.OrderChannel, err error) error {
	rec.Observe(string(channel), time.Now(), reason(err))
	return toFiberError(err)
}

func submit(c *fiber.Ctx, svc Submitter, rec Recorder, sub Submission) error {
	started := time.Now()
	receipt, err := svc.Submit(c.UserContext(), sub)
	rec.Observe(string(sub.Channel), started, reason(err))
	if err != nil {
		return toFiberError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(OrderResponse{
		OrderID:    receipt.OrderID,
		Message:    "Order placed successfully",
		TotalPrice: receipt.Total,
	})
}

// GET /api/cashier/next-order-id
func NextOrderIDHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next, err := svc.NextOrderID(c.UserContext())
		if err != nil {
			logging.FromContext(c.UserContext()).WithError(err).Error("Next order id lookup failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to get next order id")
		}
		return c.JSON(fiber.Map{"nextOrderId": next})
	}
}

// GET /api/cashier/orders/:id
func GetOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		order, err := svc.Get(c.UserContext(), uint(id))
		if errors.Is(err, ErrOrderNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		res := OrderDetailResponse{
			ID:            order.ID,
			OrderDate:     order.OrderDate.Format("2006-01-02 15:04:05"),
			TotalPrice:    order.TotalPrice,
			Channel:       string(order.Channel),
			CustomerEmail: order.CustomerEmail,
			Items:         make([]OrderItemResponse, 0, len(order.Items)),
		}
		for _, it := range order.Items {
			res.Items = append(res.Items, OrderItemResponse{
				ID:           it.ID,
				ProductID:    it.ProductID,
				ProductName:  it.ProductName,
				Quantity:     it.Quantity,
				PricePerUnit: it.PricePerUnit,
				Subtotal:     it.Subtotal,
			})
		}
		return c.JSON(res)
	}
}

func toFiberError(err error) error {
	switch {
	case IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to submit order: "+err.Error())
	}
}
