package ledger_test

import (
	"context"
	"testing"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/ledger"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"
	"fishfarm-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryRecomputesFromStock(t *testing.T) {
	db := testutil.NewDB(t)
	l := ledger.New(db, testutil.NoRetry)
	tank := testutil.Location(t, db, "Tank A", 10, models.StorageActive)
	batch := testutil.Batch(t, db, "SB-1", testutil.Ptr(time.Now()))
	testutil.Stock(t, db, batch.ID, &tank.ID, 2, 10, 4000)
	testutil.Stock(t, db, batch.ID, &tank.ID, 3, 4, 2000)
	disposed := testutil.Stock(t, db, batch.ID, &tank.ID, 3, 4, 9000)
	require.NoError(t, db.Model(&disposed).Update("status", models.StockDisposed).Error)

	s, err := l.Summary(context.Background(), tank.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, s.UsageKg)
	assert.Equal(t, 60.0, s.UtilizationPercent)
	assert.False(t, s.OverCapacity)
	assert.False(t, s.CacheInSync, "nothing reconciled yet")
	assert.Equal(t, 2, s.Records)
	assert.Len(t, s.BySize, 2)

	usage, err := l.Usage(context.Background(), tank.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, usage)

	drifted, err := l.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, drifted)

	s, err = l.Summary(context.Background(), tank.ID)
	require.NoError(t, err)
	assert.True(t, s.CacheInSync)
	assert.Equal(t, 6.0, s.CachedUsageKg)

	drifted, err = l.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, drifted)
}

func TestSummaryNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	l := ledger.New(db, testutil.NoRetry)

	_, err := l.Summary(context.Background(), "00000000-0000-0000-0000-000000000000")
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
	_, err = l.Usage(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorAs(t, err, &nf)
}

func TestIntakeClassifiesAndReconciles(t *testing.T) {
	db := testutil.NewDB(t)
	l := ledger.New(db, testutil.NoRetry)
	user := testutil.User(t, db, "ops", models.RoleWarehouse)
	tank := testutil.Location(t, db, "Tank A", 100, models.StorageActive)
	classifier, err := sizing.NewClassifier(sizing.DefaultBands())
	require.NoError(t, err)
	ctx := context.Background()

	batch, err := l.CreateBatch(ctx, ledger.CreateBatchRequest{BatchNumber: "SB-9", FarmerName: "Veli", ProcessingDate: testutil.Ptr(time.Now())}, user.ID)
	require.NoError(t, err)

	rec, err := l.Intake(ctx, classifier, ledger.IntakeRequest{
		BatchID: batch.ID, StorageLocationID: &tank.ID, TotalPieces: 10, TotalWeightGrams: 5000,
	}, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.SizeClass, "500 g per piece")
	assert.Equal(t, 10, rec.RemainingPieces)

	var loc models.StorageLocation
	require.NoError(t, db.First(&loc, "id = ?", tank.ID).Error)
	assert.Equal(t, 5.0, loc.CurrentUsageKg)

	explicit, err := l.Intake(ctx, classifier, ledger.IntakeRequest{BatchID: batch.ID, SizeClass: testutil.Ptr(2), TotalPieces: 0, TotalWeightGrams: 0}, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, explicit.SizeClass)

	var v *apperr.ValidationError
	_, err = l.Intake(ctx, classifier, ledger.IntakeRequest{BatchID: batch.ID, TotalPieces: 0}, user.ID)
	assert.ErrorAs(t, err, &v)
	_, err = l.Intake(ctx, classifier, ledger.IntakeRequest{BatchID: batch.ID, SizeClass: testutil.Ptr(12), TotalPieces: 1}, user.ID)
	assert.ErrorAs(t, err, &v)

	var nf *apperr.NotFoundError
	_, err = l.Intake(ctx, classifier, ledger.IntakeRequest{BatchID: "00000000-0000-0000-0000-000000000000", TotalPieces: 1, TotalWeightGrams: 1}, user.ID)
	assert.ErrorAs(t, err, &nf)
	ghost := "00000000-0000-0000-0000-000000000001"
	_, err = l.Intake(ctx, classifier, ledger.IntakeRequest{BatchID: batch.ID, StorageLocationID: &ghost, TotalPieces: 1, TotalWeightGrams: 1}, user.ID)
	assert.ErrorAs(t, err, &nf)

	st := models.StockAvailable
	list, err := l.ListStock(ctx, ledger.StockFilter{Status: &st, StorageLocationID: tank.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLocationLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	l := ledger.New(db, testutil.NoRetry)
	user := testutil.User(t, db, "admin", models.RoleAdmin)
	ctx := context.Background()

	loc, err := l.CreateLocation(ctx, ledger.CreateLocationRequest{Name: "Cold Room", CapacityKg: 250}, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StorageActive, loc.Status)

	var v *apperr.ValidationError
	_, err = l.CreateLocation(ctx, ledger.CreateLocationRequest{Name: "", CapacityKg: 1}, user.ID)
	assert.ErrorAs(t, err, &v)
	_, err = l.CreateLocation(ctx, ledger.CreateLocationRequest{Name: "X", CapacityKg: -1}, user.ID)
	assert.ErrorAs(t, err, &v)

	loc, err = l.SetStatus(ctx, loc.ID, models.StorageMaintenance, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StorageMaintenance, loc.Status)

	_, err = l.SetStatus(ctx, loc.ID, "broken", user.ID)
	assert.ErrorAs(t, err, &v)

	all, err := l.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StorageMaintenance, all[0].Status)
	assert.Equal(t, 0.0, all[0].UtilizationPercent)
}
