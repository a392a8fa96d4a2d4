package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabrositas/pos-backend/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceHappySale(t *testing.T) {
	engine := NewEngine()
	p1, p2 := uuid.New(), uuid.New()

	result, err := engine.Price([]Line{
		{ProductID: p1, Quantity: dec("2"), UnitPrice: dec("10.00")},
		{ProductID: p2, Quantity: dec("3"), UnitPrice: dec("4.50")},
	}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, result.Total.Equal(dec("33.50")), "total %s", result.Total)
	assert.True(t, result.Subtotal.Equal(dec("33.50")))
	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[0].Total.Equal(dec("20.00")))
	assert.True(t, result.Lines[1].Total.Equal(dec("13.50")))
}

func TestPriceAppliesLineDiscountWithBankersRounding(t *testing.T) {
	engine := NewEngine()

	// 3 x 3.35 x 0.5 = 5.025, banker's rounding gives 5.02
	result, err := engine.Price([]Line{
		{ProductID: uuid.New(), Quantity: dec("3"), UnitPrice: dec("3.35"), Discount: dec("0.5")},
	}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(dec("5.02")), "total %s", result.Total)

	// 1 x 3.35 x 0.5 = 1.675 rounds to 1.68 (8 is even)
	result, err = engine.Price([]Line{
		{ProductID: uuid.New(), Quantity: dec("1"), UnitPrice: dec("3.35"), Discount: dec("0.5")},
	}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(dec("1.68")), "total %s", result.Total)
}

func TestPriceSaleDiscountAndTax(t *testing.T) {
	engine := NewEngine()
	lines := []Line{{ProductID: uuid.New(), Quantity: dec("2"), UnitPrice: dec("10.00")}}

	result, err := engine.Price(lines, dec("5.00"), dec("1.50"))
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(dec("16.50")), "total %s", result.Total)

	// discount equal to subtotal leaves total = tax
	result, err = engine.Price(lines, dec("20.00"), dec("1.50"))
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(dec("1.50")), "total %s", result.Total)

	// one cent beyond the subtotal is rejected
	_, err = engine.Price(lines, dec("20.01"), decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDiscountExceedsSubtotal, errors.As(err).Code())
}

func TestPriceRefundLines(t *testing.T) {
	engine := NewEngine()

	result, err := engine.Price([]Line{
		{ProductID: uuid.New(), Quantity: dec("-2"), UnitPrice: dec("10.00")},
		{ProductID: uuid.New(), Quantity: dec("-1"), UnitPrice: dec("4.50"), Discount: dec("0.1")},
	}, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(dec("-24.05")), "total %s", result.Total)
}

func TestPriceValidation(t *testing.T) {
	engine := NewEngine()
	pid := uuid.New()

	cases := []struct {
		name     string
		lines    []Line
		discount decimal.Decimal
		tax      decimal.Decimal
	}{
		{"empty lines", nil, decimal.Zero, decimal.Zero},
		{"zero quantity", []Line{{ProductID: pid, Quantity: decimal.Zero, UnitPrice: dec("1.00")}}, decimal.Zero, decimal.Zero},
		{"nil product", []Line{{Quantity: dec("1"), UnitPrice: dec("1.00")}}, decimal.Zero, decimal.Zero},
		{"negative price", []Line{{ProductID: pid, Quantity: dec("1"), UnitPrice: dec("-1.00")}}, decimal.Zero, decimal.Zero},
		{"sub-cent price", []Line{{ProductID: pid, Quantity: dec("1"), UnitPrice: dec("1.005")}}, decimal.Zero, decimal.Zero},
		{"discount above one", []Line{{ProductID: pid, Quantity: dec("1"), UnitPrice: dec("1.00"), Discount: dec("1.5")}}, decimal.Zero, decimal.Zero},
		{"negative sale discount", []Line{{ProductID: pid, Quantity: dec("1"), UnitPrice: dec("1.00")}}, dec("-1"), decimal.Zero},
		{"negative tax", []Line{{ProductID: pid, Quantity: dec("1"), UnitPrice: dec("1.00")}}, decimal.Zero, dec("-1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Price(tc.lines, tc.discount, tc.tax)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.As(err).Code())
		})
	}
}

func TestCheckExpectedTotal(t *testing.T) {
	engine := NewEngine()

	require.NoError(t, engine.CheckExpectedTotal(dec("10.00"), dec("10.00")))
	require.NoError(t, engine.CheckExpectedTotal(dec("10.00"), dec("10.005")))

	err := engine.CheckExpectedTotal(dec("10.00"), dec("9.99"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeTotalMismatch, errors.As(err).Code())
}
