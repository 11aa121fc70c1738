package ledger

import (
	"testing"

	"fishfarm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestAggregateSkipsInactiveRecords(t *testing.T) {
	records := []models.StockRecord{
		{ID: "1", SizeClass: 2, RemainingPieces: 10, RemainingWeightGrams: 1500, StorageLocationID: ptr("a"), Status: models.StockAvailable},
		{ID: "2", SizeClass: 2, RemainingPieces: 5, RemainingWeightGrams: 500, StorageLocationID: ptr("a"), Status: models.StockAvailable},
		{ID: "3", SizeClass: 4, RemainingPieces: 1, RemainingWeightGrams: 250, StorageLocationID: ptr("a"), Status: models.StockAvailable},
		{ID: "4", SizeClass: 4, RemainingPieces: 9, RemainingWeightGrams: 9000, StorageLocationID: ptr("a"), Status: models.StockDisposed},
		{ID: "5", SizeClass: 4, RemainingPieces: 0, RemainingWeightGrams: 0, StorageLocationID: ptr("a"), Status: models.StockConsumed},
		{ID: "6", SizeClass: 1, RemainingPieces: 3, RemainingWeightGrams: 300, Status: models.StockAvailable},
	}

	got := Aggregate(records)
	require.Contains(t, got, "a")
	a := got["a"]
	assert.Equal(t, 2.25, a.Kg())
	assert.Equal(t, 3, a.Records)
	assert.Equal(t, 16, a.Pieces)
	assert.Equal(t, []SizeAggregate{
		{SizeClass: 2, Records: 2, Pieces: 15, WeightKg: 2},
		{SizeClass: 4, Records: 1, Pieces: 1, WeightKg: 0.25},
	}, a.BySize)

	assert.Equal(t, 0.3, got[""].Kg())
}

func TestUtilizationPercent(t *testing.T) {
	assert.Equal(t, 50.0, UtilizationPercent(50, 100))
	assert.Equal(t, 0.0, UtilizationPercent(50, 0))
	assert.Equal(t, 150.0, UtilizationPercent(150, 100))
}
