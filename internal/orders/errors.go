package orders

import "errors"

var (
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrQuantityTooLarge = errors.New("quantity is too large")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrInvalidProduct   = errors.New("product_id is required")
	ErrTotalMismatch    = errors.New("order total does not match the sum of its items")
	ErrMalformedBody    = errors.New("invalid order payload")

	ErrProductNotFound    = errors.New("product not found")
	ErrIngredientNotFound = errors.New("ingredient not found in inventory")
	ErrInsufficientStock  = errors.New("insufficient inventory")
	ErrStockChanged       = errors.New("inventory changed while placing the order")
	ErrOrderNotFound      = errors.New("order not found")
)

// IsValidation reports whether err was caused by the request itself.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrQuantityTooLarge) ||
		errors.Is(err, ErrMalformedBody) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrTotalMismatch)
}

// reason is the metrics label for a failed submission.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, ErrMalformedBody):
		return "malformed_body"
	case IsValidation(err):
		return "invalid_item"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrIngredientNotFound):
		return "ingredient_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrStockChanged):
		return "stock_changed"
	default:
		return "internal"
	}
}
