package paymentControllers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	orderControllers "github.com/TruwixTech/Truwix-RM-Rental-Backend/controllers/order"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGateway struct {
	statuses map[string]gateway.StatusResult
	err      error
	calls    int
	onStatus func() // runs during the poll, before the result returns
}

func (f *fakeGateway) Initiate(req gateway.InitiateRequest) (string, error) {
	return "https://pay.example.com/" + req.MerchantTxnID, nil
}

func (f *fakeGateway) Status(merchantTxnID string) (gateway.StatusResult, error) {
	f.calls++
	if f.onStatus != nil {
		f.onStatus()
	}
	if f.err != nil {
		return gateway.StatusResult{}, f.err
	}
	return f.statuses[merchantTxnID], nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.RentalRate{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Payment{}, &models.OrderCounter{}, &models.OutboxEvent{},
	))
	require.NoError(t, db.Create(&models.User{ID: "u1", Email: "u1@example.com"}).Error)
	return db
}

// seedUnpaidOrder builds the state CreateOrder leaves behind: an unpaid
// pending order with a pending payment attempt, a full cart and untouched
// stock.
func seedUnpaidOrder(t *testing.T, db *gorm.DB, txn string) (*models.Order, *models.Product) {
	t.Helper()
	p := &models.Product{
		Title:           "Wardrobe",
		Size:            models.SizeLarge,
		Stock:           5,
		SecurityDeposit: 100000,
		RentalRates:     []models.RentalRate{{Months: 6, Rate: 270000}},
	}
	require.NoError(t, db.Create(p).Error)

	require.NoError(t, db.Create(&models.Cart{UserID: "u1", Items: []models.CartItem{{
		ProductID: p.ID, Title: p.Title, RentMonths: 6, Quantity: 2, AddedAt: time.Now(),
	}}}).Error)

	order := &models.Order{
		OrderNumber:   "RMOR" + txn[len(txn)-6:],
		MerchantTxnID: txn,
		UserID:        "u1",
		FurnitureRent: 540000,
		TotalPrice:    760000,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Items: []models.OrderItem{{
			ProductID: p.ID, Title: p.Title, RentMonths: 6, Quantity: 2, Rate: 270000,
		}},
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.Payment{
		OrderID: order.ID, MerchantTxnID: txn, Amount: order.TotalPrice,
		Currency: "INR", Status: models.PaymentStatePending, UserID: "u1",
	}).Error)
	return order, p
}

func stock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func completedPayments(t *testing.T, db *gorm.DB, orderID uint) []models.Payment {
	t.Helper()
	var out []models.Payment
	require.NoError(t, db.Where("order_id = ? AND status = ?", orderID, models.PaymentStateCompleted).Find(&out).Error)
	return out
}

func paymentCount(t *testing.T, db *gorm.DB, orderID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestReconcileSuccess(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000001")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000001": {Success: true, Code: "PAYMENT_SUCCESS", ProviderRef: "prov-1"},
	}}

	got, err := Reconcile(db, gw, "txn-000001")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	assert.Equal(t, 3, stock(t, db, p.ID), "reservation applied on confirmation")

	payments := completedPayments(t, db, order.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "prov-1", payments[0].ProviderRef)
	assert.Equal(t, order.TotalPrice, payments[0].Amount)
	assert.Equal(t, int64(1), paymentCount(t, db, order.ID), "the pending attempt is resolved, not duplicated")

	var cartCount int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", "u1").Count(&cartCount).Error)
	assert.Zero(t, cartCount, "cart cleared on confirmed payment")

	var events []models.OutboxEvent
	require.NoError(t, db.Where("topic = ?", "order_paid").Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestReconcileReplayIsHarmless(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000002")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000002": {Success: true, Code: "PAYMENT_SUCCESS", ProviderRef: "prov-2"},
	}}

	for i := 0; i < 4; i++ {
		got, err := Reconcile(db, gw, "txn-000002")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	}

	assert.Equal(t, 3, stock(t, db, p.ID), "stock decremented exactly once")
	assert.Len(t, completedPayments(t, db, order.ID), 1, "one completed payment despite replays")
	assert.Equal(t, 1, gw.calls, "paid orders short-circuit before the provider poll")
}

func TestReconcileUnknownTransaction(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}

	_, err := Reconcile(db, gw, "txn-missing")
	require.ErrorIs(t, err, orderControllers.ErrOrderNotFound)
	assert.Zero(t, gw.calls)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count, "no side effects for unknown transactions")
}

func TestReconcileFailure(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000003")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000003": {Success: false, Code: "PAYMENT_ERROR"},
	}}

	got, err := Reconcile(db, gw, "txn-000003")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Equal(t, "PAYMENT_ERROR", got.PaymentNote)

	assert.Equal(t, 5, stock(t, db, p.ID), "no charge means no reservation")
	assert.Empty(t, completedPayments(t, db, order.ID))

	var failed []models.Payment
	require.NoError(t, db.Where("order_id = ? AND status = ?", order.ID, models.PaymentStateFailed).Find(&failed).Error)
	assert.Len(t, failed, 1)
	assert.Equal(t, int64(1), paymentCount(t, db, order.ID), "pending attempt resolved in place")

	var cartCount int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", "u1").Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount, "cart kept so the user can retry")
}

func TestReconcileFailureReplayKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000008")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000008": {Success: false, Code: "PAYMENT_ERROR"},
	}}

	// A client polling a dead transaction must not grow the table
	for i := 0; i < 3; i++ {
		got, err := Reconcile(db, gw, "txn-000008")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusUnpaid, got.PaymentStatus)
		assert.Equal(t, "PAYMENT_ERROR", got.PaymentNote)
	}

	assert.Equal(t, int64(1), paymentCount(t, db, order.ID), "replayed failure stays one row")
	var failed []models.Payment
	require.NoError(t, db.Where("order_id = ? AND status = ?", order.ID, models.PaymentStateFailed).Find(&failed).Error)
	assert.Len(t, failed, 1)
	assert.Equal(t, 5, stock(t, db, p.ID))
}

func TestReconcilePending(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000004")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000004": {Success: false, Code: "PAYMENT_PENDING"},
	}}

	got, err := Reconcile(db, gw, "txn-000004")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Empty(t, got.PaymentNote)
	assert.Equal(t, 5, stock(t, db, p.ID))
	assert.Empty(t, completedPayments(t, db, order.ID))
}

func TestReconcileSuccessOnCancelledOrder(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000005")
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", models.OrderStatusCancelled).Error)
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000005": {Success: true, Code: "PAYMENT_SUCCESS"},
	}}

	_, err := Reconcile(db, gw, "txn-000005")
	require.ErrorIs(t, err, ErrInconsistentState)

	assert.Equal(t, 5, stock(t, db, p.ID), "no side effects on the conflict")
	assert.Empty(t, completedPayments(t, db, order.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusUnpaid, reloaded.PaymentStatus)
}

func TestReconcileCancelCommittedDuringPoll(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000009")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000009": {Success: true, Code: "PAYMENT_SUCCESS"},
	}}
	// Cancellation lands after the order snapshot was read but before the
	// paid flip, so only the flip's own condition can catch it.
	gw.onStatus = func() {
		require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", models.OrderStatusCancelled).Error)
	}

	_, err := Reconcile(db, gw, "txn-000009")
	require.ErrorIs(t, err, ErrInconsistentState)

	assert.Equal(t, 5, stock(t, db, p.ID), "reservation rolled back with the transaction")
	assert.Empty(t, completedPayments(t, db, order.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, reloaded.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, reloaded.PaymentStatus, "never cancelled and paid at once")

	var cartCount int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", "u1").Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount)
}

func TestReconcileStatusCheckRejected(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000010")
	gw := &fakeGateway{err: gateway.ErrRejected}

	_, err := Reconcile(db, gw, "txn-000010")
	require.ErrorIs(t, err, gateway.ErrRejected)

	// A rejected status check is a config problem, not a payment outcome
	assert.Equal(t, 5, stock(t, db, p.ID))
	assert.Equal(t, int64(1), paymentCount(t, db, order.ID))
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Empty(t, reloaded.PaymentNote)
}

func TestReconcileGatewayError(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000006")
	gw := &fakeGateway{err: gateway.ErrUnavailable}

	_, err := Reconcile(db, gw, "txn-000006")
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, 5, stock(t, db, p.ID))
	assert.Empty(t, completedPayments(t, db, order.ID))
}

func TestReconcileFailureThenSuccess(t *testing.T) {
	db := newTestDB(t)
	order, p := seedUnpaidOrder(t, db, "txn-000007")
	gw := &fakeGateway{statuses: map[string]gateway.StatusResult{
		"txn-000007": {Success: false, Code: "PAYMENT_ERROR"},
	}}

	// First attempt fails...
	got, err := Reconcile(db, gw, "txn-000007")
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_ERROR", got.PaymentNote)

	// ...then the user retries and the provider confirms
	gw.statuses["txn-000007"] = gateway.StatusResult{Success: true, Code: "PAYMENT_SUCCESS"}
	got, err = Reconcile(db, gw, "txn-000007")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	assert.Equal(t, 3, stock(t, db, p.ID))
	assert.Len(t, completedPayments(t, db, order.ID), 1)
	assert.Equal(t, int64(2), paymentCount(t, db, order.ID), "resolved failure plus the fresh completed attempt")
}
