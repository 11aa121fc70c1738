package database

import (
	"fmt"

	"fishfarm-backend/internal/config"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Init opens the Postgres store, migrates the schema and seeds lookup tables.
func Init(cfg *config.Config, bands []models.SizeClass) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db, bands); err != nil {
		return nil, err
	}

	logger.L().Info("database ready", zap.Int("size_classes", len(bands)))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.CodeSequence{},
		&models.SizeClass{},
		&models.SortingBatch{},
		&models.StorageLocation{},
		&models.StockRecord{},
		&models.DisposalReason{},
		&models.DisposalRecord{},
		&models.DisposalItem{},
		&models.TransferRecord{},
		&models.OutletOrder{},
		&models.OutletOrderItem{},
		&models.Dispatch{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Seed inserts the disposal reasons, the code sequences and, when the table is
// still empty, the given size-class bands. Safe to run on every start.
func Seed(db *gorm.DB, bands []models.SizeClass) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, code := range models.DisposalReasonCodes {
			reason := models.DisposalReason{Code: code, Name: code.Label()}
			if err := tx.Where("code = ?", code).FirstOrCreate(&reason).Error; err != nil {
				return fmt.Errorf("seed disposal reason %s: %w", code, err)
			}
		}

		for _, name := range []string{SequenceDisposal} {
			seq := models.CodeSequence{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&seq).Error; err != nil {
				return fmt.Errorf("seed sequence %s: %w", name, err)
			}
		}

		var count int64
		if err := tx.Model(&models.SizeClass{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 && len(bands) > 0 {
			if err := tx.Create(&bands).Error; err != nil {
				return fmt.Errorf("seed size classes: %w", err)
			}
			logger.L().Info("size classes seeded", zap.Int("count", len(bands)))
		}
		return nil
	})
}
