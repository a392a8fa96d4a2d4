package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sabrositas/pos-backend/pkg/errors"
)

// TotalTolerance bounds the accepted gap between a client-supplied total
// and the engine's result. A gap of a full cent is already a mismatch.
var TotalTolerance = decimal.RequireFromString("0.01")

var one = decimal.NewFromInt(1)

// Line is one priced line of a sale. Quantities are positive for sales and
// negative for refund lines; zero is rejected.
type Line struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// LineTotal pairs a line with its rounded total.
type LineTotal struct {
	ProductID uuid.UUID
	Total     decimal.Decimal
}

// Result carries the canonical totals for a sale.
type Result struct {
	Lines    []LineTotal
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Engine computes sale totals. It performs no I/O and owns the only
// rounding rule in the system: banker's rounding at 2 fractional digits.
type Engine interface {
	Price(lines []Line, saleDiscount, saleTax decimal.Decimal) (*Result, error)
	CheckExpectedTotal(computed, supplied decimal.Decimal) error
}

type engine struct{}

// NewEngine returns the standard pricing engine.
func NewEngine() Engine {
	return engine{}
}

func (engine) Price(lines []Line, saleDiscount, saleTax decimal.Decimal) (*Result, error) {
	if len(lines) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "at least one line is required")
	}
	if saleDiscount.IsNegative() {
		return nil, errors.New(errors.CodeInvalidInput, "sale discount cannot be negative")
	}
	if saleTax.IsNegative() {
		return nil, errors.New(errors.CodeInvalidInput, "sale tax cannot be negative")
	}
	if !isMoney(saleDiscount) || !isMoney(saleTax) {
		return nil, errors.New(errors.CodeInvalidInput, "monetary amounts allow at most 2 fractional digits")
	}

	result := &Result{
		Lines:    make([]LineTotal, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	for _, line := range lines {
		if err := validateLine(line); err != nil {
			return nil, err
		}
		total := line.Quantity.Mul(line.UnitPrice).Mul(one.Sub(line.Discount)).RoundBank(2)
		result.Lines = append(result.Lines, LineTotal{ProductID: line.ProductID, Total: total})
		result.Subtotal = result.Subtotal.Add(total)
	}

	// Refund lines produce a negative subtotal; the discount guard only
	// applies to ordinary sales.
	if saleDiscount.IsPositive() && saleDiscount.GreaterThan(result.Subtotal) {
		return nil, errors.New(errors.CodeDiscountExceedsSubtotal, "sale discount exceeds subtotal").WithDetails(map[string]any{
			"subtotal": result.Subtotal.String(),
			"discount": saleDiscount.String(),
		})
	}

	result.Total = result.Subtotal.Sub(saleDiscount).Add(saleTax)
	return result, nil
}

func (engine) CheckExpectedTotal(computed, supplied decimal.Decimal) error {
	if computed.Sub(supplied).Abs().GreaterThanOrEqual(TotalTolerance) {
		return errors.New(errors.CodeTotalMismatch, "supplied total does not match computed total").WithDetails(map[string]any{
			"expected": computed.String(),
			"supplied": supplied.String(),
		})
	}
	return nil
}

func validateLine(line Line) error {
	if line.ProductID == uuid.Nil {
		return errors.New(errors.CodeInvalidInput, "line product id is required")
	}
	if line.Quantity.IsZero() {
		return errors.New(errors.CodeInvalidInput, "line quantity cannot be zero").WithDetails(map[string]any{
			"product_id": line.ProductID.String(),
		})
	}
	if line.UnitPrice.IsNegative() {
		return errors.New(errors.CodeInvalidInput, "unit price cannot be negative").WithDetails(map[string]any{
			"product_id": line.ProductID.String(),
		})
	}
	if !isMoney(line.UnitPrice) {
		return errors.New(errors.CodeInvalidInput, "unit price allows at most 2 fractional digits").WithDetails(map[string]any{
			"product_id": line.ProductID.String(),
		})
	}
	if line.Discount.IsNegative() || line.Discount.GreaterThan(one) {
		return errors.New(errors.CodeInvalidInput, "discount fraction must be between 0 and 1").WithDetails(map[string]any{
			"product_id": line.ProductID.String(),
		})
	}
	return nil
}

func isMoney(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(2))
}
