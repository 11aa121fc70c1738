package audit

import (
	"encoding/json"
	"fmt"

	"fishfarm-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      string
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores an audit row using tx, so the row commits or rolls back with
// the change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	userName := opts.UserName
	if userName == "" && opts.UserID != "" {
		if err := tx.Model(&models.User{}).Select("name").Where("id = ?", opts.UserID).Scan(&userName).Error; err != nil {
			return fmt.Errorf("audit: look up user: %w", err)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    userName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be written: %w", err)
	}
	return nil
}

// toJSON encodes v, falling back to JSON null so the column is always valid JSON.
func toJSON(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
