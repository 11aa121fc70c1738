package dispatch_test

import (
	"context"
	"testing"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/dispatch"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db    *gorm.DB
	svc   *dispatch.Service
	user  models.User
	tank  models.StorageLocation
	batch models.SortingBatch
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.NewDB(t)
	return env{
		db:    db,
		svc:   dispatch.NewService(db, testutil.NoRetry),
		user:  testutil.User(t, db, "zeynep", models.RoleWarehouse),
		tank:  testutil.Location(t, db, "Tank A", 1000, models.StorageActive),
		batch: testutil.Batch(t, db, "SB-1", testutil.Ptr(time.Now())),
	}
}

func (e env) confirmedOrder(t *testing.T, items ...dispatch.OrderItemRequest) models.OutletOrder {
	t.Helper()
	ctx := context.Background()
	o, err := e.svc.CreateOrder(ctx, dispatch.CreateOrderRequest{OutletName: "Market", Items: items}, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)
	o, err = e.svc.ConfirmOrder(ctx, o.ID, e.user.ID)
	require.NoError(t, err)
	return o
}

func TestDispatchCommitsPick(t *testing.T) {
	e := setup(t)
	r1 := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 15, 4500)
	r2 := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 10, 3500)
	order := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 20})

	d, err := e.svc.Dispatch(context.Background(), order.ID, []dispatch.Selection{
		{StockRecordID: r1.ID, Quantity: 15},
		{StockRecordID: r2.ID, Quantity: 5},
	}, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, d.TotalPieces)
	assert.True(t, decimal.RequireFromString("6.25").Equal(d.TotalWeightKg))
	assert.Equal(t, map[int]int{3: 20}, d.SizeBreakdown.Data())
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, []string(d.FishIDs))
	assert.Equal(t, models.DispatchPending, d.Status)

	var got1, got2 models.StockRecord
	require.NoError(t, e.db.First(&got1, "id = ?", r1.ID).Error)
	require.NoError(t, e.db.First(&got2, "id = ?", r2.ID).Error)
	assert.Equal(t, models.StockConsumed, got1.Status)
	assert.Equal(t, 0, got1.RemainingPieces)
	assert.Equal(t, models.StockAvailable, got2.Status)
	assert.Equal(t, 5, got2.RemainingPieces)
	assert.Equal(t, int64(1750), got2.RemainingWeightGrams)

	var tank models.StorageLocation
	require.NoError(t, e.db.First(&tank, "id = ?", e.tank.ID).Error)
	assert.InDelta(t, 1.75, tank.CurrentUsageKg, 1e-9)

	var order2 models.OutletOrder
	require.NoError(t, e.db.First(&order2, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderDispatched, order2.Status)

	stored, err := e.svc.GetDispatch(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{3: 20}, stored.SizeBreakdown.Data())
	assert.True(t, d.TotalWeightKg.Equal(stored.TotalWeightKg))
}

func TestDispatchCapacityErrorRollsBack(t *testing.T) {
	e := setup(t)
	r := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 10, 1000)
	order := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 50})

	_, err := e.svc.Dispatch(context.Background(), order.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 11}}, e.user.ID)
	var capErr *apperr.CapacityError
	require.ErrorAs(t, err, &capErr)

	var count int64
	e.db.Model(&models.Dispatch{}).Count(&count)
	assert.Zero(t, count)
	var back models.StockRecord
	require.NoError(t, e.db.First(&back, "id = ?", r.ID).Error)
	assert.Equal(t, 10, back.RemainingPieces)
}

func TestDispatchedOrderCannotBePickedAgain(t *testing.T) {
	e := setup(t)
	r := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 10, 1000)
	order := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 4})
	sel := []dispatch.Selection{{StockRecordID: r.ID, Quantity: 2}}

	_, err := e.svc.Dispatch(context.Background(), order.ID, sel, e.user.ID)
	require.NoError(t, err)
	_, err = e.svc.Dispatch(context.Background(), order.ID, sel, e.user.ID)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestFullyPickedRecordLeavesEligibility(t *testing.T) {
	e := setup(t)
	r := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 4, 1000)
	first := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 4})
	second := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 1})

	_, err := e.svc.Dispatch(context.Background(), first.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 4}}, e.user.ID)
	require.NoError(t, err)

	_, err = e.svc.Dispatch(context.Background(), second.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 1}}, e.user.ID)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestApproveDispatchRequiresDriverAndDate(t *testing.T) {
	e := setup(t)
	r := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 10, 1000)
	order := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 1})
	d, err := e.svc.Dispatch(context.Background(), order.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 1}}, e.user.ID)
	require.NoError(t, err)

	var v *apperr.ValidationError
	_, err = e.svc.ApproveDispatch(context.Background(), d.ID, dispatch.ApproveRequest{DriverName: "Can"}, e.user.ID)
	assert.ErrorAs(t, err, &v)
	_, err = e.svc.ApproveDispatch(context.Background(), d.ID, dispatch.ApproveRequest{DispatchDate: testutil.Ptr(time.Now())}, e.user.ID)
	assert.ErrorAs(t, err, &v)

	approved, err := e.svc.ApproveDispatch(context.Background(), d.ID, dispatch.ApproveRequest{
		DriverName:   "Can",
		DispatchDate: testutil.Ptr(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)),
	}, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchApproved, approved.Status)
	assert.Equal(t, "Can", approved.DriverName)

	shipped, err := e.svc.MarkDispatched(context.Background(), d.ID, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchDispatched, shipped.Status)

	var conflict *apperr.ConflictError
	_, err = e.svc.MarkDispatched(context.Background(), d.ID, e.user.ID)
	assert.ErrorAs(t, err, &conflict)
}

func TestOrderValidation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	var v *apperr.ValidationError

	_, err := e.svc.CreateOrder(ctx, dispatch.CreateOrderRequest{Items: []dispatch.OrderItemRequest{{SizeClass: 1, Quantity: 1}}}, e.user.ID)
	assert.ErrorAs(t, err, &v)
	_, err = e.svc.CreateOrder(ctx, dispatch.CreateOrderRequest{OutletName: "M"}, e.user.ID)
	assert.ErrorAs(t, err, &v)
	_, err = e.svc.CreateOrder(ctx, dispatch.CreateOrderRequest{OutletName: "M", Items: []dispatch.OrderItemRequest{{SizeClass: 1, Quantity: 0}}}, e.user.ID)
	assert.ErrorAs(t, err, &v)

	o := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 1, Quantity: 1})
	var conflict *apperr.ConflictError
	_, err = e.svc.ConfirmOrder(ctx, o.ID, e.user.ID)
	assert.ErrorAs(t, err, &conflict)

	st := models.OrderConfirmed
	orders, err := e.svc.ListOrders(ctx, &st)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
}

func TestCancelOrder(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	r := testutil.Stock(t, e.db, e.batch.ID, &e.tank.ID, 3, 10, 1000)

	pending, err := e.svc.CreateOrder(ctx, dispatch.CreateOrderRequest{
		OutletName: "Market",
		Items:      []dispatch.OrderItemRequest{{SizeClass: 3, Quantity: 1}},
	}, e.user.ID)
	require.NoError(t, err)
	cancelled, err := e.svc.CancelOrder(ctx, pending.ID, e.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	confirmed := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 2})
	_, err = e.svc.CancelOrder(ctx, confirmed.ID, e.user.ID)
	require.NoError(t, err)

	var conflict *apperr.ConflictError
	_, err = e.svc.Dispatch(ctx, confirmed.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 2}}, e.user.ID)
	assert.ErrorAs(t, err, &conflict, "cancelled orders cannot be picked")
	_, err = e.svc.CancelOrder(ctx, confirmed.ID, e.user.ID)
	assert.ErrorAs(t, err, &conflict)

	dispatched := e.confirmedOrder(t, dispatch.OrderItemRequest{SizeClass: 3, Quantity: 1})
	_, err = e.svc.Dispatch(ctx, dispatched.ID, []dispatch.Selection{{StockRecordID: r.ID, Quantity: 1}}, e.user.ID)
	require.NoError(t, err)
	_, err = e.svc.CancelOrder(ctx, dispatched.ID, e.user.ID)
	assert.ErrorAs(t, err, &conflict)

	var back models.StockRecord
	require.NoError(t, e.db.First(&back, "id = ?", r.ID).Error)
	assert.Equal(t, 9, back.RemainingPieces)
}
