package orders

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"kiosk-backend/internal/database/databasetest"
	"kiosk-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	milkTea models.Product
	tea     models.Ingredient
	milk    models.Ingredient
	boba    models.Ingredient
}

// seed creates one drink needing 2 tea + 1 milk, and boba as a topping.
func seed(t *testing.T, teaStock, milkStock, bobaStock int) fixture {
	t.Helper()
	db := databasetest.Open(t, "orders")

	f := fixture{db: db, svc: NewService(db)}
	f.tea = models.Ingredient{Name: "Black Tea", Category: "Tea", Price: d("0.20"), Quantity: teaStock}
	f.milk = models.Ingredient{Name: "Milk", Category: "Dairy", Price: d("0.30"), Quantity: milkStock}
	f.boba = models.Ingredient{Name: "Boba", Category: "Topping", Price: d("0.50"), Quantity: bobaStock}
	require.NoError(t, db.Create(&f.tea).Error)
	require.NoError(t, db.Create(&f.milk).Error)
	require.NoError(t, db.Create(&f.boba).Error)

	f.milkTea = models.Product{
		Name:     "Classic Milk Tea",
		Category: "Milk Tea",
		Price:    d("4.50"),
		Recipe: []models.ProductIngredient{
			{IngredientID: f.tea.ID, QuantityNeeded: 2},
			{IngredientID: f.milk.ID, QuantityNeeded: 1},
		},
	}
	require.NoError(t, db.Create(&f.milkTea).Error)
	return f
}

func (f fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var ing models.Ingredient
	require.NoError(t, f.db.First(&ing, id).Error)
	return ing.Quantity
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f fixture) line(qty int, toppings ...uint) LineItem {
	sub := d("4.50").Mul(decimal.NewFromInt(int64(qty)))
	return LineItem{
		ProductID:    f.milkTea.ID,
		ProductName:  "Classic Milk Tea",
		Quantity:     qty,
		PricePerUnit: d("4.50"),
		Subtotal:     sub,
		ToppingIDs:   toppings,
	}
}

func TestSubmit_DecrementsStockAndRecordsOrder(t *testing.T) {
	f := seed(t, 100, 50, 20)
	ctx := context.Background()

	receipt, err := f.svc.Submit(ctx, Submission{
		Channel: models.ChannelCashier,
		Items:   []LineItem{f.line(3, f.boba.ID), f.line(1)},
	})
	require.NoError(t, err)
	assert.NotZero(t, receipt.OrderID)
	assert.Equal(t, "18.00", receipt.Total.StringFixed(2))

	assert.Equal(t, 100-2*4, f.stock(t, f.tea.ID))
	assert.Equal(t, 50-1*4, f.stock(t, f.milk.ID))
	assert.Equal(t, 20-3, f.stock(t, f.boba.ID))

	order, err := f.svc.Get(ctx, receipt.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.Subtotal)
		require.NotNil(t, it.ProductID)
		assert.Equal(t, f.milkTea.ID, *it.ProductID)
	}
	assert.True(t, sum.Equal(order.TotalPrice), "items %s, total %s", sum, order.TotalPrice)
	assert.Equal(t, models.ChannelCashier, order.Channel)
}

func TestSubmit_FillsMissingProductName(t *testing.T) {
	f := seed(t, 10, 10, 10)

	item := f.line(1)
	item.ProductName = ""
	receipt, err := f.svc.Submit(context.Background(), Submission{Channel: models.ChannelCashier, Items: []LineItem{item}})
	require.NoError(t, err)

	order, err := f.svc.Get(context.Background(), receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Classic Milk Tea", order.Items[0].ProductName)
}

func TestSubmit_InsufficientStockRollsBack(t *testing.T) {
	f := seed(t, 100, 2, 20)

	_, err := f.svc.Submit(context.Background(), Submission{
		Channel: models.ChannelCashier,
		Items:   []LineItem{f.line(3, f.boba.ID)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Milk")

	assert.Equal(t, 100, f.stock(t, f.tea.ID), "tea is decremented before milk and must be rolled back")
	assert.Equal(t, 2, f.stock(t, f.milk.ID))
	assert.Equal(t, 20, f.stock(t, f.boba.ID))
	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
}

func TestSubmit_MissingIngredientRollsBack(t *testing.T) {
	f := seed(t, 100, 50, 20)

	_, err := f.svc.Submit(context.Background(), Submission{
		Channel: models.ChannelKiosk,
		Items:   []LineItem{f.line(1, 9999)},
	})
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	assert.Equal(t, 100, f.stock(t, f.tea.ID))
	assert.Zero(t, f.count(t, &models.Order{}))
}

func TestSubmit_UnknownProduct(t *testing.T) {
	f := seed(t, 100, 50, 20)

	item := f.line(1)
	item.ProductID = 4242
	_, err := f.svc.Submit(context.Background(), Submission{Channel: models.ChannelCashier, Items: []LineItem{item}})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Zero(t, f.count(t, &models.Order{}))
}

func TestSubmit_EmptyOrderWritesNothing(t *testing.T) {
	f := seed(t, 100, 50, 20)

	_, err := f.svc.Submit(context.Background(), Submission{Channel: models.ChannelCashier})
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
}

func TestSubmit_ConcurrentOrdersNeverOversell(t *testing.T) {
	// Enough milk for exactly one of the two orders.
	f := seed(t, 100, 3, 20)

	var succeeded atomic.Int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.svc.Submit(context.Background(), Submission{
				Channel: models.ChannelCashier,
				Items:   []LineItem{f.line(2)},
			})
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrStockChanged) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, 1, f.stock(t, f.milk.ID))
	assert.Equal(t, 96, f.stock(t, f.tea.ID))
	assert.Equal(t, int64(1), f.count(t, &models.Order{}))
}

func TestNextOrderID(t *testing.T) {
	f := seed(t, 100, 50, 20)
	ctx := context.Background()

	next, err := f.svc.NextOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), next)

	receipt, err := f.svc.Submit(ctx, Submission{Channel: models.ChannelCashier, Items: []LineItem{f.line(1)}})
	require.NoError(t, err)

	next, err = f.svc.NextOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, receipt.OrderID+1, next)
}

func TestGet_NotFound(t *testing.T) {
	f := seed(t, 1, 1, 1)
	_, err := f.svc.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
