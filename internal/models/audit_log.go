package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
)

type AuditEntity string

const (
	AuditEntityProduct    AuditEntity = "product"
	AuditEntityRecipe     AuditEntity = "recipe"
	AuditEntityIngredient AuditEntity = "ingredient"
	AuditEntityEmployee   AuditEntity = "employee"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Who? Nil when the kiosk runs without login.
	EmployeeID *uint  `json:"employee_id"`
	Actor      string `gorm:"size:100" json:"actor"`

	EntityType AuditEntity `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint        `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Snapshots before and after the change (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`

	// Set on the log that was produced by an undo
	Undone bool `json:"undone"`

	// Set on the log that has been undone
	IsUndone bool       `gorm:"default:false" json:"is_undone"`
	UndoneBy *uint      `json:"undone_by"`
	UndoneAt *time.Time `json:"undone_at"`
}
