package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type CartTopping struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CartItem is one line of the customer kiosk cart. Price is the line subtotal.
type CartItem struct {
	MenuItemID     uint            `json:"menuItemId"`
	Name           string          `json:"name"`
	Size           string          `json:"size"`
	IceLevel       string          `json:"iceLevel"`
	SweetnessLevel string          `json:"sweetnessLevel"`
	Toppings       []CartTopping   `json:"toppings"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
}

type CustomerOrderRequest struct {
	Items         []CartItem       `json:"items"`
	TotalPrice    *decimal.Decimal `json:"totalPrice"`
	CustomerEmail string           `json:"customerEmail"`
}

// LineItems converts the cart into order lines. A missing quantity means one drink.
func (r CustomerOrderRequest) LineItems() ([]LineItem, error) {
	items := make([]LineItem, 0, len(r.Items))
	for _, c := range r.Items {
		qty := c.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, ErrInvalidQuantity
		}

		toppings := make([]uint, 0, len(c.Toppings))
		for _, t := range c.Toppings {
			toppings = append(toppings, t.ID)
		}

		items = append(items, LineItem{
			ProductID:    c.MenuItemID,
			ProductName:  c.DisplayName(),
			Quantity:     qty,
			PricePerUnit: c.Price.Div(decimal.NewFromInt(int64(qty))).Round(2),
			Subtotal:     c.Price,
			ToppingIDs:   toppings,
		})
	}

	if r.TotalPrice != nil && len(items) > 0 {
		if !r.TotalPrice.Round(2).Equal(Total(items)) {
			return nil, fmt.Errorf("%w: got %s, items sum to %s",
				ErrTotalMismatch, r.TotalPrice.StringFixed(2), Total(items).StringFixed(2))
		}
	}
	return items, nil
}

// DisplayName is the product name with the customization summary, e.g.
// "Taro Milk Tea (Size: Large, Ice: Less Ice, Sweetness: 50%, Toppings: Boba, Pudding)".
func (c CartItem) DisplayName() string {
	var parts []string
	if c.Size != "" {
		parts = append(parts, "Size: "+c.Size)
	}
	if c.IceLevel != "" {
		parts = append(parts, "Ice: "+c.IceLevel)
	}
	if c.SweetnessLevel != "" {
		parts = append(parts, "Sweetness: "+c.SweetnessLevel)
	}
	if len(c.Toppings) > 0 {
		names := make([]string, 0, len(c.Toppings))
		for _, t := range c.Toppings {
			names = append(names, t.Name)
		}
		parts = append(parts, "Toppings: "+strings.Join(names, ", "))
	}

	name := strings.TrimSpace(c.Name)
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
}
