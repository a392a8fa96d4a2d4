package sales

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/internal/invoice"
	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/pricing"
	"github.com/sabrositas/pos-backend/internal/stock"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

var posSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  on_hand NUMERIC NOT NULL DEFAULT 0,
  low_stock_threshold NUMERIC NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT UNIQUE,
  phone TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  invoice_number TEXT NOT NULL UNIQUE,
  cashier_id TEXT NOT NULL,
  customer_id TEXT,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  total_amount NUMERIC NOT NULL,
  refund_of TEXT,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS sale_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  unit_price NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  movement_type TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  reference_type TEXT,
  reference_id TEXT,
  note TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
  scope TEXT NOT NULL,
  key TEXT NOT NULL,
  sale_id TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME,
  PRIMARY KEY (scope, key)
);`,
}

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:salessvc?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range posSchema {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	for _, table := range []string{"idempotency_keys", "inventory_movements", "sale_items", "sales", "customers", "products"} {
		require.NoError(t, conn.Exec("DELETE FROM "+table).Error)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	numberer, err := invoice.NewNumberer(nil, "TICKET")
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(conn),
		db.FromGorm(conn),
		stock.NewLedger(conn),
		journal.NewJournal(conn),
		pricing.NewEngine(),
		numberer,
		config.SalesConfig{
			InvoicePrefix:  "TICKET",
			CommitRetries:  3,
			RetryBackoff:   time.Millisecond,
			IdempotencyTTL: 24 * time.Hour,
		},
		logger.New(logger.Options{ServiceName: "sales-test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc
}

func seedSaleProduct(t *testing.T, conn *gorm.DB, price, onHand string) uuid.UUID {
	t.Helper()
	product := &models.Product{
		ID:     uuid.New(),
		Code:   "P-" + uuid.NewString()[:8],
		Name:   "Arepa",
		Price:  decimal.RequireFromString(price),
		OnHand: decimal.RequireFromString(onHand),
		Active: true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product.ID
}

func onHand(t *testing.T, conn *gorm.DB, pid uuid.UUID) decimal.Decimal {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.Where("id = ?", pid).First(&product).Error)
	return product.OnHand
}

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Table(table).Count(&count).Error)
	return count
}

func TestCreateSaleHappyPath(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	p2 := seedSaleProduct(t, conn, "4.50", "10")
	actor := uuid.New()

	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []LineInput{
			{ProductID: p1, Quantity: decimal.NewFromInt(2)},
			{ProductID: p2, Quantity: decimal.NewFromInt(3)},
		},
		PaymentMethod: enums.PaymentMethodCash,
	}, actor)
	require.NoError(t, err)

	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("33.50")), "total %s", sale.TotalAmount)
	assert.Equal(t, enums.SaleStatusCompleted, sale.Status)
	assert.NotEmpty(t, sale.InvoiceNumber)
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, actor, sale.CashierID)

	assert.True(t, onHand(t, conn, p1).Equal(decimal.NewFromInt(3)))
	assert.True(t, onHand(t, conn, p2).Equal(decimal.NewFromInt(7)))

	var movements []models.InventoryMovement
	require.NoError(t, conn.Where("reference_id = ?", sale.ID).Find(&movements).Error)
	require.Len(t, movements, 2)
	for _, movement := range movements {
		assert.Equal(t, enums.MovementTypeSale, movement.MovementType)
		assert.Equal(t, actor, movement.ActorID)
	}
}

func TestCreateSaleInsufficientStockLeavesStateUntouched(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	p1 := seedSaleProduct(t, conn, "10.00", "1")

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(2)}},
		PaymentMethod: enums.PaymentMethodCash,
	}, uuid.New())
	require.Error(t, err)

	domainErr := errors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, errors.CodeInsufficientStock, domainErr.Code())
	details, ok := domainErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p1.String(), details["product_id"])
	assert.Equal(t, "2", details["requested"])
	assert.Equal(t, "1", details["available"])

	assert.True(t, onHand(t, conn, p1).Equal(decimal.NewFromInt(1)))
	assert.Zero(t, countRows(t, conn, "sales"))
	assert.Zero(t, countRows(t, conn, "inventory_movements"))
}

func TestCreateSaleTotalMismatchRollsBack(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	expected := decimal.RequireFromString("9.99")

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: enums.PaymentMethodCash,
		ExpectedTotal: &expected,
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeTotalMismatch, errors.As(err).Code())

	assert.True(t, onHand(t, conn, p1).Equal(decimal.NewFromInt(5)))
	assert.Zero(t, countRows(t, conn, "sales"))
}

func TestCreateSaleRejectsDuplicateLines(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	p1 := seedSaleProduct(t, conn, "10.00", "5")

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []LineInput{
			{ProductID: p1, Quantity: decimal.NewFromInt(1)},
			{ProductID: p1, Quantity: decimal.NewFromInt(2)},
		},
		PaymentMethod: enums.PaymentMethodCash,
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeDuplicateLine, errors.As(err).Code())
}

func TestCreateSaleUnknownPaymentMethod(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	p1 := seedSaleProduct(t, conn, "10.00", "5")

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: "barter",
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnknownEnum, errors.As(err).Code())
}

func TestCreateSaleUnknownProductAndCustomer(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, CreateSaleInput{
		Items:         []LineInput{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: enums.PaymentMethodCash,
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeProductUnknown, errors.As(err).Code())

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	missingCustomer := uuid.New()
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(1)}},
		PaymentMethod: enums.PaymentMethodCash,
		CustomerID:    &missingCustomer,
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeCustomerUnknown, errors.As(err).Code())
}

func TestCreateSaleExactStockReachesZero(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(5)}},
		PaymentMethod: enums.PaymentMethodCard,
	}, uuid.New())
	require.NoError(t, err)
	assert.True(t, onHand(t, conn, p1).IsZero())
}

func TestCreateSaleSnapshotsPriceOverride(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	override := decimal.RequireFromString("8.00")
	discount := decimal.RequireFromString("0.25")

	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(2), UnitPrice: &override, Discount: &discount}},
		PaymentMethod: enums.PaymentMethodCash,
	}, uuid.New())
	require.NoError(t, err)

	// 2 x 8.00 x 0.75 = 12.00
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("12.00")))
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].UnitPrice.Equal(override))
	assert.True(t, sale.Items[0].Discount.Equal(discount))
}

func TestCreateSaleIdempotentReplay(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	input := CreateSaleInput{
		Items:          []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(2)}},
		PaymentMethod:  enums.PaymentMethodCash,
		IdempotencyKey: "K-1",
	}
	actor := uuid.New()

	first, err := svc.CreateSale(ctx, input, actor)
	require.NoError(t, err)

	second, err := svc.CreateSale(ctx, input, actor)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, int64(1), countRows(t, conn, "sales"))
	assert.Equal(t, int64(1), countRows(t, conn, "inventory_movements"))
	assert.True(t, onHand(t, conn, p1).Equal(decimal.NewFromInt(3)))
}

func TestCreateSaleReusesKeyAfterExpiry(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	stale := &models.IdempotencyKey{
		Scope:     IdempotencyScopeSale,
		Key:       "K-STALE",
		SaleID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, conn.Create(stale).Error)

	p1 := seedSaleProduct(t, conn, "10.00", "5")
	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		Items:          []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(2)}},
		PaymentMethod:  enums.PaymentMethodCash,
		IdempotencyKey: "K-STALE",
	}, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, sale)

	assert.Equal(t, int64(1), countRows(t, conn, "sales"))

	var record models.IdempotencyKey
	require.NoError(t, conn.Where("scope = ? AND key = ?", IdempotencyScopeSale, "K-STALE").First(&record).Error)
	assert.Equal(t, sale.ID, record.SaleID)
	assert.True(t, record.ExpiresAt.After(time.Now().UTC()))
}

func TestGetSaleUnknown(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)

	_, err := svc.GetSale(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.CodeSaleUnknown, errors.As(err).Code())
}

func TestListSalesWindow(t *testing.T) {
	conn := setupSalesTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	p1 := seedSaleProduct(t, conn, "10.00", "50")
	actor := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateSale(ctx, CreateSaleInput{
			Items:         []LineInput{{ProductID: p1, Quantity: decimal.NewFromInt(1)}},
			PaymentMethod: enums.PaymentMethodCash,
		}, actor)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	listed, next, err := svc.ListSales(ctx, ListFilter{Start: now.Add(-time.Hour), End: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.Empty(t, next)

	empty, _, err := svc.ListSales(ctx, ListFilter{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _, err = svc.ListSales(ctx, ListFilter{Start: now, End: now})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.As(err).Code())
}
