package database

import (
	"fmt"

	"fishfarm-backend/internal/models"

	"gorm.io/gorm"
)

const SequenceDisposal = "disposal"

// NextSequence increments the named counter inside tx and formats it as
// prefix + zero-padded number. The UPDATE holds the row lock until tx ends, so
// concurrent callers get distinct numbers.
func NextSequence(tx *gorm.DB, name, prefix string, padding int) (string, error) {
	res := tx.Model(&models.CodeSequence{}).
		Where("name = ?", name).
		UpdateColumn("last_no", gorm.Expr("last_no + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("increment sequence %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&models.CodeSequence{Name: name, LastNo: 1}).Error; err != nil {
			return "", fmt.Errorf("create sequence %s: %w", name, err)
		}
	}

	var seq models.CodeSequence
	if err := tx.First(&seq, "name = ?", name).Error; err != nil {
		return "", fmt.Errorf("read sequence %s: %w", name, err)
	}
	return fmt.Sprintf("%s%0*d", prefix, padding, seq.LastNo), nil
}
