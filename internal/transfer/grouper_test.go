package transfer

import (
	"testing"
	"time"

	"fishfarm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 123456000, time.UTC)

func rec(id, from, to string, size, qty int, kg float64, at time.Time, notes string) models.TransferRecord {
	return models.TransferRecord{
		ID: id, FromStorageID: from, ToStorageID: to,
		SizeClass: size, Quantity: qty, WeightKg: kg,
		Status: models.TransferPending, Notes: notes, CreatedAt: at,
	}
}

func TestGroupBatchScenario(t *testing.T) {
	views := Group([]models.TransferRecord{
		rec("t2", "A", "B", 2, 30, 12.5, t0, "x"),
		rec("t1", "A", "B", 1, 50, 10.25, t0, "x"),
	})
	require.Len(t, views, 1)
	v := views[0]
	assert.True(t, v.IsBatch)
	assert.Equal(t, []int{1, 2}, v.BatchSizes)
	assert.Equal(t, 80, v.TotalBatchQuantity)
	assert.Equal(t, 22.75, v.TotalBatchWeightKg)
	assert.Equal(t, "t1", v.ID, "representative is the first member by size")
	require.Len(t, v.BatchTransfers, 2)
	assert.Equal(t, "t1", v.BatchTransfers[0].ID)
}

func TestGroupSingleUnchanged(t *testing.T) {
	r := rec("t1", "A", "B", 4, 10, 3.5, t0, "")
	views := Group([]models.TransferRecord{r})
	require.Len(t, views, 1)
	assert.False(t, views[0].IsBatch)
	assert.Equal(t, r, views[0].TransferRecord)
	assert.Empty(t, views[0].BatchTransfers)
}

func TestGroupKeyIsExact(t *testing.T) {
	views := Group([]models.TransferRecord{
		rec("a", "A", "B", 1, 1, 1, t0, "x"),
		rec("b", "A", "B", 2, 1, 1, t0.Add(time.Microsecond), "x"),
		rec("c", "A", "B", 3, 1, 1, t0, "y"),
		rec("d", "A", "C", 4, 1, 1, t0, "x"),
		rec("e", "Z", "B", 5, 1, 1, t0, "x"),
	})
	assert.Len(t, views, 5)
	for _, v := range views {
		assert.False(t, v.IsBatch)
	}
}

func TestGroupMergesCoincidentSingles(t *testing.T) {
	views := Group([]models.TransferRecord{
		rec("a", "A", "B", 1, 5, 1, t0, "same"),
		rec("b", "A", "B", 1, 7, 1, t0, "same"),
	})
	require.Len(t, views, 1)
	assert.True(t, views[0].IsBatch)
	assert.Equal(t, []int{1}, views[0].BatchSizes)
	assert.Equal(t, 12, views[0].TotalBatchQuantity)
}

func TestGroupOrderNewestFirst(t *testing.T) {
	views := Group([]models.TransferRecord{
		rec("old", "A", "B", 1, 1, 1, t0, ""),
		rec("new1", "A", "B", 1, 1, 1, t0.Add(time.Hour), "n"),
		rec("new2", "A", "B", 2, 1, 1, t0.Add(time.Hour), "n"),
		rec("mid", "B", "A", 1, 1, 1, t0.Add(time.Minute), ""),
	})
	require.Len(t, views, 3)
	assert.Equal(t, "new1", views[0].ID)
	assert.Equal(t, "mid", views[1].ID)
	assert.Equal(t, "old", views[2].ID)
}

func TestGroupIsIdempotent(t *testing.T) {
	input := []models.TransferRecord{
		rec("a", "A", "B", 3, 10, 2.2, t0, "x"),
		rec("b", "A", "B", 1, 20, 4.4, t0, "x"),
		rec("c", "A", "B", 2, 30, 6.6, t0, "x"),
		rec("d", "B", "C", 1, 5, 1.1, t0.Add(time.Second), ""),
		rec("e", "C", "A", 7, 9, 9.9, t0.Add(-time.Second), "z"),
	}
	first := Group(input)
	second := Group(Flatten(first))
	assert.Equal(t, first, second)
	assert.Len(t, Flatten(first), len(input))
}

func TestBatchTotalsMatchMembers(t *testing.T) {
	views := Group([]models.TransferRecord{
		rec("a", "A", "B", 3, 10, 0.1, t0, ""),
		rec("b", "A", "B", 1, 20, 0.2, t0, ""),
		rec("c", "A", "B", 2, 30, 0.3, t0, ""),
	})
	require.Len(t, views, 1)
	v := views[0]

	var qty int
	var kg float64
	for _, m := range v.BatchTransfers {
		qty += m.Quantity
		kg += m.WeightKg
	}
	assert.Equal(t, qty, v.TotalBatchQuantity)
	assert.Equal(t, kg, v.TotalBatchWeightKg)
	assert.Equal(t, v.TotalBatchQuantity, v.Quantity)
}

func TestKeyIgnoresTimezone(t *testing.T) {
	ist := time.FixedZone("IST", 3*3600)
	a := rec("a", "A", "B", 1, 1, 1, t0, "")
	b := rec("b", "A", "B", 2, 1, 1, t0.In(ist), "")
	assert.Equal(t, KeyOf(a), KeyOf(b))
}
