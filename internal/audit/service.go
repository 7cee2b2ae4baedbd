package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kiosk-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrLogNotFound   = errors.New("audit log not found")
	ErrAlreadyUndone = errors.New("this change has already been undone")
	ErrNotUndoable   = errors.New("this change cannot be undone")
)

type LogOptions struct {
	EmployeeID  *uint
	Actor       string
	EntityType  models.AuditEntity
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores a change record. Pass the transaction that made the change
// so the log commits or rolls back with it.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	before, err := snapshot(opts.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(opts.After)
	if err != nil {
		return err
	}

	log := models.AuditLog{
		EmployeeID:  opts.EmployeeID,
		Actor:       opts.Actor,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  before,
		AfterData:   after,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// jsonb rejects an empty string, so absent snapshots are stored as null.
func snapshot(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("could not encode audit snapshot: %w", err)
	}
	return string(b), nil
}

// UndoLog reverts the change recorded by logID and records the undo itself.
// It returns the log that was undone.
func UndoLog(db *gorm.DB, logID uint, employeeID *uint, actor string) (models.AuditLog, error) {
	var log models.AuditLog
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&log, logID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: ID %d", ErrLogNotFound, logID)
		}
		if err != nil {
			return err
		}

		if log.IsUndone {
			return ErrAlreadyUndone
		}

		switch log.Action {
		case models.AuditActionCreate:
			err = deleteEntity(tx, log.EntityType, log.EntityID)
		case models.AuditActionUpdate:
			err = restoreEntity(tx, log.EntityType, log.EntityID, log.BeforeData, log.AfterData)
		case models.AuditActionDelete:
			err = recreateEntity(tx, log.EntityType, log.BeforeData)
		default:
			err = ErrNotUndoable
		}
		if err != nil {
			return err
		}

		now := time.Now()
		log.IsUndone = true
		log.UndoneBy = employeeID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("could not mark audit log: %w", err)
		}

		undo := models.AuditLog{
			EmployeeID:  employeeID,
			Actor:       actor,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Undone: " + log.Description,
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("could not write undo log: %w", err)
		}
		return nil
	})
	return log, err
}

// RestoresWithoutLogin reports whether undoing log brings back an employee
// whose password hash was not kept in the snapshot.
func RestoresWithoutLogin(log models.AuditLog) bool {
	return log.EntityType == models.AuditEntityEmployee && log.Action == models.AuditActionDelete
}

func deleteEntity(tx *gorm.DB, entity models.AuditEntity, id uint) error {
	switch entity {
	case models.AuditEntityProduct:
		return tx.Delete(&models.Product{}, id).Error
	case models.AuditEntityIngredient:
		return tx.Delete(&models.Ingredient{}, id).Error
	case models.AuditEntityEmployee:
		return tx.Delete(&models.Employee{}, id).Error
	default:
		return fmt.Errorf("%w: unknown entity type %s", ErrNotUndoable, entity)
	}
}

func recreateEntity(tx *gorm.DB, entity models.AuditEntity, data string) error {
	switch entity {
	case models.AuditEntityProduct:
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return err
		}
		for i := range p.Recipe {
			p.Recipe[i].Ingredient = models.Ingredient{}
		}
		return tx.Create(&p).Error

	case models.AuditEntityIngredient:
		var ing models.Ingredient
		if err := json.Unmarshal([]byte(data), &ing); err != nil {
			return err
		}
		return tx.Create(&ing).Error

	case models.AuditEntityEmployee:
		var emp models.Employee
		if err := json.Unmarshal([]byte(data), &emp); err != nil {
			return err
		}
		return tx.Create(&emp).Error

	default:
		return fmt.Errorf("%w: unknown entity type %s", ErrNotUndoable, entity)
	}
}

func restoreEntity(tx *gorm.DB, entity models.AuditEntity, id uint, data, after string) error {
	switch entity {
	case models.AuditEntityProduct:
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return err
		}
		return tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
			"name":     p.Name,
			"category": p.Category,
			"price":    p.Price,
		}).Error

	case models.AuditEntityRecipe:
		var lines []models.ProductIngredient
		if err := json.Unmarshal([]byte(data), &lines); err != nil {
			return err
		}
		return ReplaceRecipe(tx, id, lines)

	case models.AuditEntityIngredient:
		return restoreIngredient(tx, id, data, after)

	case models.AuditEntityEmployee:
		var emp models.Employee
		if err := json.Unmarshal([]byte(data), &emp); err != nil {
			return err
		}
		return tx.Model(&models.Employee{}).Where("id = ?", id).Updates(map[string]any{
			"name":  emp.Name,
			"role":  emp.Role,
			"wage":  emp.Wage,
			"email": emp.Email,
		}).Error

	default:
		return fmt.Errorf("%w: unknown entity type %s", ErrNotUndoable, entity)
	}
}

// restoreIngredient puts back the descriptive fields and reverses only the
// stock change the logged edit made. Orders placed since then keep their
// decrements.
func restoreIngredient(tx *gorm.DB, id uint, before, after string) error {
	var was, became models.Ingredient
	if err := json.Unmarshal([]byte(before), &was); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(after), &became); err != nil {
		return err
	}

	res := tx.Model(&models.Ingredient{}).Where("id = ?", id).Updates(map[string]any{
		"name":     was.Name,
		"category": was.Category,
		"price":    was.Price,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: ingredient ID %d no longer exists", ErrNotUndoable, id)
	}

	delta := was.Quantity - became.Quantity
	if delta == 0 {
		return nil
	}
	res = tx.Model(&models.Ingredient{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: stock of ingredient ID %d would go below zero", ErrNotUndoable, id)
	}
	return nil
}

// ReplaceRecipe swaps a product's recipe for lines.
func ReplaceRecipe(tx *gorm.DB, productID uint, lines []models.ProductIngredient) error {
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductIngredient{}).Error; err != nil {
		return fmt.Errorf("could not clear recipe: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	rows := make([]models.ProductIngredient, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, models.ProductIngredient{
			ProductID:      productID,
			IngredientID:   l.IngredientID,
			QuantityNeeded: l.QuantityNeeded,
		})
	}
	if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
		return fmt.Errorf("could not write recipe: %w", err)
	}
	return nil
}
