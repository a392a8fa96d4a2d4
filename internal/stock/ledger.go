package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/errors"
)

// Ledger is the single authoritative writer of Product.on_hand. Reserve and
// Restore must run inside the caller's transaction; the conditional UPDATE
// both enforces non-negativity and holds the row lock until commit, so
// concurrent writers against the same product serialize. Callers touching
// multiple products must do so in ascending product id order.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Available(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	Restore(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error
	Adjust(ctx context.Context, productID uuid.UUID, newQty decimal.Decimal) (decimal.Decimal, error)
}

type ledger struct {
	db *gorm.DB
}

// NewLedger returns a stock ledger bound to the provided database.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

func (l *ledger) Available(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var product models.Product
	err := l.db.WithContext(ctx).
		Select("id", "on_hand").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, productUnknown(productID)
		}
		return decimal.Zero, err
	}
	return product.OnHand, nil
}

func (l *ledger) Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return errors.New(errors.CodeInvalidInput, "reserve quantity must be positive")
	}

	res := l.db.WithContext(ctx).Exec(
		"UPDATE products SET on_hand = on_hand - ?, updated_at = ? WHERE id = ? AND on_hand >= ?",
		qty, time.Now().UTC(), productID, qty,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		available, err := l.Available(ctx, productID)
		if err != nil {
			return err
		}
		return errors.New(errors.CodeInsufficientStock, "not enough stock on hand").WithDetails(map[string]any{
			"product_id": productID.String(),
			"requested":  qty.String(),
			"available":  available.String(),
		})
	}
	return nil
}

func (l *ledger) Restore(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return errors.New(errors.CodeInvalidInput, "restore quantity must be positive")
	}

	res := l.db.WithContext(ctx).Exec(
		"UPDATE products SET on_hand = on_hand + ?, updated_at = ? WHERE id = ?",
		qty, time.Now().UTC(), productID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return productUnknown(productID)
	}
	return nil
}

// Adjust sets on_hand to newQty and returns the applied delta. The guarded
// second UPDATE detects a concurrent write between read and set; the caller
// retries the whole operation on conflict.
func (l *ledger) Adjust(ctx context.Context, productID uuid.UUID, newQty decimal.Decimal) (decimal.Decimal, error) {
	if newQty.IsNegative() {
		return decimal.Zero, errors.New(errors.CodeInvalidInput, "adjusted quantity cannot be negative")
	}

	current, err := l.Available(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}

	res := l.db.WithContext(ctx).Exec(
		"UPDATE products SET on_hand = ?, updated_at = ? WHERE id = ? AND on_hand = ?",
		newQty, time.Now().UTC(), productID, current,
	)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, errors.New(errors.CodeRetryableConflict, "product stock changed during adjustment").WithDetails(map[string]any{
			"product_id": productID.String(),
		})
	}
	return newQty.Sub(current), nil
}

func productUnknown(productID uuid.UUID) error {
	return errors.New(errors.CodeProductUnknown, "product does not exist").WithDetails(map[string]any{
		"product_id": productID.String(),
	})
}
