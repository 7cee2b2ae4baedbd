package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient is a stocked item. Quantity is the on-hand stock and never goes negative.
type Ingredient struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:100;not null"`
	Category  string          `gorm:"size:50;not null;index"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity  int             `gorm:"not null;default:0;check:chk_ingredients_quantity,quantity >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
