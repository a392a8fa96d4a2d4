package reports

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

	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

const salesDDL = `CREATE TABLE IF NOT EXISTS sales (
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
);`

func newReportService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:reportsvc?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(salesDDL).Error)
	require.NoError(t, conn.Exec("DELETE FROM sales").Error)

	svc, err := NewService(conn, logger.New(logger.Options{ServiceName: "reports-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, conn
}

func insertSale(t *testing.T, conn *gorm.DB, at time.Time, method enums.PaymentMethod, total string, refundOf *uuid.UUID) uuid.UUID {
	t.Helper()
	sale := &models.Sale{
		ID:            uuid.New(),
		InvoiceNumber: "T-" + uuid.NewString()[:13],
		CashierID:     uuid.New(),
		PaymentMethod: method,
		Status:        enums.SaleStatusCompleted,
		TotalAmount:   decimal.RequireFromString(total),
		RefundOf:      refundOf,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	require.NoError(t, conn.Create(sale).Error)
	return sale.ID
}

func TestDailySalesAggregation(t *testing.T) {
	svc, conn := newReportService(t)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	original := insertSale(t, conn, day1, enums.PaymentMethodCash, "33.50", nil)
	insertSale(t, conn, day1.Add(time.Hour), enums.PaymentMethodCard, "12.00", nil)
	insertSale(t, conn, day1.Add(2*time.Hour), enums.PaymentMethodCash, "-10.00", &original)
	insertSale(t, conn, day2, enums.PaymentMethodTransfer, "8.00", nil)

	rows, err := svc.DailySales(ctx, day1.Add(-time.Hour), day2.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "2026-03-14", first.Date)
	assert.Equal(t, 2, first.SalesCount)
	assert.Equal(t, 1, first.RefundCount)
	assert.True(t, first.Gross.Equal(decimal.RequireFromString("45.50")), "gross %s", first.Gross)
	assert.True(t, first.Refunded.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, first.Net.Equal(decimal.RequireFromString("35.50")))
	assert.True(t, first.ByPayment[enums.PaymentMethodCash].Equal(decimal.RequireFromString("23.50")))
	assert.True(t, first.ByPayment[enums.PaymentMethodCard].Equal(decimal.RequireFromString("12.00")))

	second := rows[1]
	assert.Equal(t, "2026-03-15", second.Date)
	assert.Equal(t, 1, second.SalesCount)
	assert.Zero(t, second.RefundCount)
	assert.True(t, second.Net.Equal(decimal.RequireFromString("8.00")))
}

func TestDailySalesEmptyWindow(t *testing.T) {
	svc, _ := newReportService(t)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := svc.DailySales(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailySalesRejectsInvertedWindow(t *testing.T) {
	svc, _ := newReportService(t)

	now := time.Now().UTC()
	_, err := svc.DailySales(context.Background(), now, now)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.As(err).Code())
}
