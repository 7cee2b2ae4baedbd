package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxLineQuantity caps how many drinks a single cart line may order.
const MaxLineQuantity = 1000

// maxRequirement bounds the units of one ingredient a single order may take.
const maxRequirement = math.MaxInt32

type LineItem struct {
	ProductID    uint
	ProductName  string // filled from the catalog when empty
	Quantity     int
	PricePerUnit decimal.Decimal
	Subtotal     decimal.Decimal
	ToppingIDs   []uint // each topping consumes one unit of that ingredient per drink
}

type Submission struct {
	Channel       models.OrderChannel
	CustomerEmail string
	Items         []LineItem
}

type Receipt struct {
	OrderID uint
	Total   decimal.Decimal
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	if db == nil {
		panic("db is nil")
	}
	return &Service{db: db}
}

// Submit records the order and takes every ingredient it consumes out of stock
// in a single transaction. Either the order, its items and all stock decrements
// are committed together, or nothing is.
func (s *Service) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if err := Validate(sub.Items); err != nil {
		return Receipt{}, err
	}

	total := Total(sub.Items)
	logger := logging.FromContext(ctx).WithField("channel", sub.Channel)

	var receipt Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		names, err := productNames(tx, sub.Items)
		if err != nil {
			return err
		}

		order := models.Order{
			OrderDate:     time.Now(),
			TotalPrice:    total,
			Channel:       sub.Channel,
			CustomerEmail: sub.CustomerEmail,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("could not insert order: %w", err)
		}

		rows := make([]models.OrderItem, 0, len(sub.Items))
		for _, item := range sub.Items {
			productID := item.ProductID
			name := item.ProductName
			if name == "" {
				name = names[item.ProductID]
			}
			rows = append(rows, models.OrderItem{
				OrderID:      order.ID,
				ProductID:    &productID,
				ProductName:  name,
				Quantity:     item.Quantity,
				PricePerUnit: item.PricePerUnit.Round(2),
				Subtotal:     item.Subtotal.Round(2),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("could not insert order items: %w", err)
		}

		needs, err := requirements(tx, sub.Items)
		if err != nil {
			return err
		}
		for _, n := range needs {
			left, err := consume(tx, n)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"order_id":      order.ID,
				"ingredient_id": n.IngredientID,
				"decremented":   n.Quantity,
				"remaining":     left,
			}).Debug("Ingredient decremented")
		}

		receipt = Receipt{OrderID: order.ID, Total: total}
		return nil
	})
	if err != nil {
		logger.WithError(err).Warn("Order transaction rolled back")
		return Receipt{}, err
	}

	logger.WithFields(logrus.Fields{
		"order_id": receipt.OrderID,
		"total":    receipt.Total.StringFixed(2),
		"items":    len(sub.Items),
	}).Info("Order committed")

	return receipt, nil
}

// Validate rejects a cart before any connection is taken from the pool.
func Validate(items []LineItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for i, item := range items {
		if item.ProductID == 0 {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidProduct)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidQuantity)
		}
		if item.Quantity > MaxLineQuantity {
			return fmt.Errorf("item %d: %w: at most %d per line", i+1, ErrQuantityTooLarge, MaxLineQuantity)
		}
		if item.Subtotal.IsNegative() || item.PricePerUnit.IsNegative() {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidPrice)
		}
	}
	return nil
}

// Total is the sum of the rounded item subtotals, which is exactly what ends up
// in the order_items rows.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal.Round(2))
	}
	return total
}

// Need is the total amount of one ingredient an order consumes.
type Need struct {
	IngredientID uint
	Quantity     int
}

// Aggregate sums recipe requirements per ingredient. Results are sorted by
// ingredient id so concurrent transactions lock rows in the same order.
// A requirement that would exceed maxRequirement is an error, never a wrap.
func Aggregate(items []LineItem, recipes map[uint][]models.ProductIngredient) ([]Need, error) {
	byIngredient := map[uint]int{}
	add := func(ingredientID uint, qty int) error {
		if qty > maxRequirement-byIngredient[ingredientID] {
			return fmt.Errorf("%w: ingredient ID %d needs more than %d units", ErrQuantityTooLarge, ingredientID, maxRequirement)
		}
		byIngredient[ingredientID] += qty
		return nil
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product ID %d: %w", item.ProductID, ErrInvalidQuantity)
		}
		for _, line := range recipes[item.ProductID] {
			if line.QuantityNeeded <= 0 {
				return nil, fmt.Errorf("recipe for product ID %d has quantity %d for ingredient ID %d",
					item.ProductID, line.QuantityNeeded, line.IngredientID)
			}
			if item.Quantity > maxRequirement/line.QuantityNeeded {
				return nil, fmt.Errorf("%w: ingredient ID %d needs more than %d units", ErrQuantityTooLarge, line.IngredientID, maxRequirement)
			}
			if err := add(line.IngredientID, line.QuantityNeeded*item.Quantity); err != nil {
				return nil, err
			}
		}
		for _, toppingID := range item.ToppingIDs {
			if err := add(toppingID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}

	needs := make([]Need, 0, len(byIngredient))
	for id, qty := range byIngredient {
		needs = append(needs, Need{IngredientID: id, Quantity: qty})
	}
	sort.Slice(needs, func(i, j int) bool { return needs[i].IngredientID < needs[j].IngredientID })
	return needs, nil
}

func productNames(tx *gorm.DB, items []LineItem) (map[uint]string, error) {
	ids := uniqueProductIDs(items)

	var products []models.Product
	if err := tx.Select("id", "name").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("could not load products: %w", err)
	}

	names := make(map[uint]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, id)
		}
	}
	return names, nil
}

func requirements(tx *gorm.DB, items []LineItem) ([]Need, error) {
	var lines []models.ProductIngredient
	if err := tx.Where("product_id IN ?", uniqueProductIDs(items)).Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("could not load recipes: %w", err)
	}

	recipes := map[uint][]models.ProductIngredient{}
	for _, line := range lines {
		recipes[line.ProductID] = append(recipes[line.ProductID], line)
	}
	return Aggregate(items, recipes)
}

// consume checks and decrements one ingredient. The UPDATE repeats the stock
// condition so a concurrent order that got there first makes it affect no rows.
func consume(tx *gorm.DB, n Need) (int, error) {
	var ing models.Ingredient
	err := tx.Select("id", "name", "quantity").First(&ing, n.IngredientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: ingredient ID %d", ErrIngredientNotFound, n.IngredientID)
	}
	if err != nil {
		return 0, fmt.Errorf("could not read inventory for ingredient ID %d: %w", n.IngredientID, err)
	}

	if ing.Quantity < n.Quantity {
		return 0, fmt.Errorf("%w for %s (ID %d): need %d, have %d",
			ErrInsufficientStock, ing.Name, ing.ID, n.Quantity, ing.Quantity)
	}

	res := tx.Model(&models.Ingredient{}).
		Where("id = ? AND quantity >= ?", n.IngredientID, n.Quantity).
		Update("quantity", gorm.Expr("quantity - ?", n.Quantity))
	if res.Error != nil {
		return 0, fmt.Errorf("could not update inventory for ingredient ID %d: %w", n.IngredientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: ingredient %s (ID %d)", ErrStockChanged, ing.Name, ing.ID)
	}

	return ing.Quantity - n.Quantity, nil
}

func uniqueProductIDs(items []LineItem) []uint {
	seen := map[uint]bool{}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// NextOrderID is only a display hint for the cashier screen; the real id is
// assigned on insert.
func (s *Service) NextOrderID(ctx context.Context) (uint, error) {
	var next uint
	if err := s.db.WithContext(ctx).Raw(`SELECT COALESCE(MAX(id), 0) + 1 FROM orders`).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("could not get next order id: %w", err)
	}
	return next, nil
}

func (s *Service) Get(ctx context.Context, id uint) (models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Order{}, fmt.Errorf("%w: ID %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("could not load order %d: %w", id, err)
	}
	return order, nil
}
