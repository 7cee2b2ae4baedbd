package reports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"kiosk-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid report range")

// soldName groups kiosk items (whose names carry customizations) under the
// catalog name, falling back to the stored name for deleted products.
const soldName = "COALESCE(p.name, oi.product_name)"

type ItemCount struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type LowStockItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type IngredientUsage struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type MenuStat struct {
	Name      string  `json:"name"`
	TotalSold int64   `json:"totalSold"`
	AvgPerDay float64 `json:"avgPerDay"`
}

type XReport struct {
	Date          string          `json:"date"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalItems    int64           `json:"totalItems"`
	TopItems      []ItemCount     `json:"topItems"`
	LowStock      []LowStockItem  `json:"lowStock"`
	EmployeeCount int64           `json:"employeeCount"`
	AvgWage       decimal.Decimal `json:"avgWage"`
}

type ProductUsage struct {
	StartDate        string            `json:"startDate"`
	EndDate          string            `json:"endDate"`
	ProductsSold     []ItemCount       `json:"productsSold"`
	IngredientsUsed  []IngredientUsage `json:"ingredientsUsed"`
	TotalProducts    int64             `json:"totalProducts"`
	TotalIngredients int64             `json:"totalIngredients"`
}

// Period is a reporting window [Start, End) and the number of days it averages over.
type Period struct {
	Start time.Time
	End   time.Time
	Days  int
}

// ParsePeriod understands day (since midnight), week (last 7 days) and month
// (last 30 days). An empty name means day.
func ParsePeriod(name string, now time.Time) (Period, error) {
	switch name {
	case "", "day":
		return Period{Start: startOfDay(now), End: now, Days: 1}, nil
	case "week":
		return Period{Start: now.AddDate(0, 0, -7), End: now, Days: 7}, nil
	case "month":
		return Period{Start: now.AddDate(0, 0, -30), End: now, Days: 30}, nil
	default:
		return Period{}, fmt.Errorf("%w: period must be day, week or month", ErrInvalidRange)
	}
}

// ParseDateRange reads inclusive YYYY-MM-DD dates. The returned end is the
// midnight after endDate.
func ParseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate and endDate are required", ErrInvalidRange)
	}
	start, err := time.ParseInLocation(dateLayout, startDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidRange)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidRange)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate is before startDate", ErrInvalidRange)
	}
	return start, end.AddDate(0, 0, 1), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AvgPerDay rounds to one decimal place.
func AvgPerDay(total int64, days int) float64 {
	if days <= 1 {
		return float64(total)
	}
	return math.Round(float64(total)/float64(days)*10) / 10
}

type Service struct {
	db                *gorm.DB
	lowStockThreshold int
}

func NewService(db *gorm.DB, lowStockThreshold int) *Service {
	return &Service{db: db, lowStockThreshold: lowStockThreshold}
}

func (s *Service) soldBetween(ctx context.Context, start, end time.Time) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("LEFT JOIN products p ON p.id = oi.product_id").
		Where("o.order_date >= ? AND o.order_date < ?", start, end)
}

func (s *Service) itemCounts(ctx context.Context, start, end time.Time) ([]ItemCount, error) {
	var counts []ItemCount
	err := s.soldBetween(ctx, start, end).
		Select(soldName + " AS product_name, SUM(oi.quantity) AS quantity").
		Group(soldName).
		Order("quantity DESC, product_name").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("could not count sold items: %w", err)
	}
	if counts == nil {
		counts = []ItemCount{}
	}
	return counts, nil
}

// MenuStats lists every product with how many were sold in the period.
func (s *Service) MenuStats(ctx context.Context, p Period) ([]MenuStat, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Select("id", "name").Order("category, name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("could not load products: %w", err)
	}

	counts, err := s.itemCounts(ctx, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	sold := make(map[string]int64, len(counts))
	for _, c := range counts {
		sold[c.ProductName] = c.Quantity
	}

	stats := make([]MenuStat, 0, len(products))
	for _, prod := range products {
		total := sold[prod.Name]
		stats = append(stats, MenuStat{Name: prod.Name, TotalSold: total, AvgPerDay: AvgPerDay(total, p.Days)})
	}
	return stats, nil
}

// XReport summarizes today's sales so far.
func (s *Service) XReport(ctx context.Context, now time.Time) (XReport, error) {
	today := startOfDay(now)
	db := s.db.WithContext(ctx)

	var totals struct {
		Orders  int64
		Revenue decimal.Decimal
	}
	err := db.Model(&models.Order{}).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_price), 0) AS revenue").
		Where("order_date >= ?", today).
		Scan(&totals).Error
	if err != nil {
		return XReport{}, fmt.Errorf("could not total orders: %w", err)
	}

	items, err := s.itemCounts(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return XReport{}, err
	}
	var totalItems int64
	for _, it := range items {
		totalItems += it.Quantity
	}
	top := items
	if len(top) > 5 {
		top = top[:5]
	}

	lowStock := []LowStockItem{}
	err = db.Model(&models.Ingredient{}).
		Select("name, quantity").
		Where("quantity < ?", s.lowStockThreshold).
		Order("quantity, name").
		Scan(&lowStock).Error
	if err != nil {
		return XReport{}, fmt.Errorf("could not list low stock: %w", err)
	}

	var staff struct {
		Count   int64
		AvgWage decimal.Decimal
	}
	err = db.Model(&models.Employee{}).
		Select("COUNT(*) AS count, COALESCE(AVG(wage), 0) AS avg_wage").
		Scan(&staff).Error
	if err != nil {
		return XReport{}, fmt.Errorf("could not summarize staff: %w", err)
	}

	return XReport{
		Date:          today.Format(dateLayout),
		TotalOrders:   totals.Orders,
		TotalRevenue:  totals.Revenue.Round(2),
		TotalItems:    totalItems,
		TopItems:      top,
		LowStock:      lowStock,
		EmployeeCount: staff.Count,
		AvgWage:       staff.AvgWage.Round(2),
	}, nil
}

// ProductUsage reports products sold in [start, end) and the ingredients
// their recipes consumed.
func (s *Service) ProductUsage(ctx context.Context, start, end time.Time) (ProductUsage, error) {
	sold, err := s.itemCounts(ctx, start, end)
	if err != nil {
		return ProductUsage{}, err
	}

	usage := []IngredientUsage{}
	err = s.soldBetween(ctx, start, end).
		Joins("JOIN product_ingredients pi ON pi.product_id = oi.product_id").
		Joins("JOIN ingredients i ON i.id = pi.ingredient_id").
		Select("i.name AS name, SUM(oi.quantity * pi.quantity_needed) AS quantity").
		Group("i.name").
		Order("quantity DESC, name").
		Scan(&usage).Error
	if err != nil {
		return ProductUsage{}, fmt.Errorf("could not compute ingredient usage: %w", err)
	}

	report := ProductUsage{
		StartDate:       start.Format(dateLayout),
		EndDate:         end.AddDate(0, 0, -1).Format(dateLayout),
		ProductsSold:    sold,
		IngredientsUsed: usage,
	}
	for _, it := range sold {
		report.TotalProducts += it.Quantity
	}
	for _, u := range usage {
		report.TotalIngredients += u.Quantity
	}
	return report, nil
}
