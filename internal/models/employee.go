package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EmployeeRole string

const (
	RoleCashier EmployeeRole = "cashier"
	RoleManager EmployeeRole = "manager"
)

type Employee struct {
	ID           uint            `gorm:"primaryKey"`
	Name         string          `gorm:"size:100;not null"`
	Role         EmployeeRole    `gorm:"size:20;not null"`
	Wage         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Email        *string         `gorm:"size:100;uniqueIndex"` // optional, only needed for login
	PasswordHash string          `gorm:"size:255" json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
