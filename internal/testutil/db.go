// Package testutil opens throwaway databases and writes fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated and seeded in-memory SQLite database. A single
// connection keeps every query on the same in-memory schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, sizing.DefaultBands()))
	return db
}

// NoRetry runs every transaction once without waiting.
var NoRetry = database.RetryPolicy{Attempts: 1}

func User(t testing.TB, db *gorm.DB, name string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@farm.test", PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func Location(t testing.TB, db *gorm.DB, name string, capacityKg float64, status models.StorageStatus) models.StorageLocation {
	t.Helper()
	l := models.StorageLocation{Name: name, CapacityKg: capacityKg, Status: status}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func Batch(t testing.TB, db *gorm.DB, number string, processed *time.Time) models.SortingBatch {
	t.Helper()
	b := models.SortingBatch{BatchNumber: number, FarmerName: "Farmer " + number, ProcessingDate: processed}
	require.NoError(t, db.Create(&b).Error)
	return b
}

// Stock creates an available record with remaining figures equal to the totals.
func Stock(t testing.TB, db *gorm.DB, batchID string, locationID *string, sizeClass, pieces int, grams int64) models.StockRecord {
	t.Helper()
	r := models.StockRecord{
		SizeClass:            sizeClass,
		TotalPieces:          pieces,
		TotalWeightGrams:     grams,
		RemainingPieces:      pieces,
		RemainingWeightGrams: grams,
		StorageLocationID:    locationID,
		BatchID:              batchID,
		Status:               models.StockAvailable,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func DaysAgo(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, -days)
	return &d
}

func Ptr[T any](v T) *T { return &v }
