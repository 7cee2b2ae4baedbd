package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderChannel string

const (
	ChannelKiosk   OrderChannel = "kiosk"
	ChannelCashier OrderChannel = "cashier"
)

type Order struct {
	ID            uint            `gorm:"primaryKey"`
	OrderDate     time.Time       `gorm:"index;not null"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Channel       OrderChannel    `gorm:"size:20;not null;default:cashier"`
	CustomerEmail string          `gorm:"size:255"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE"`
}

// OrderItem keeps the product name denormalized so history survives catalog edits.
// ProductID has no foreign key for the same reason.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uint            `gorm:"index;not null"`
	ProductID    *uint           `gorm:"index"`
	ProductName  string          `gorm:"size:255;not null"`
	Quantity     int             `gorm:"not null"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}
