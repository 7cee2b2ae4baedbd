package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:100;not null"`
	Category  string          `gorm:"size:50;not null;index"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Recipe []ProductIngredient `gorm:"constraint:OnDelete:CASCADE"`
}

// ProductIngredient: one recipe line, how much of an ingredient a single product consumes
type ProductIngredient struct {
	ProductID      uint       `gorm:"primaryKey"`
	IngredientID   uint       `gorm:"primaryKey;index"`
	Ingredient     Ingredient `gorm:"constraint:OnDelete:RESTRICT"`
	QuantityNeeded int        `gorm:"not null;default:1;check:chk_product_ingredients_quantity_needed,quantity_needed > 0"`
}
