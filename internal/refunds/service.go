package refunds

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	"github.com/sabrositas/pos-backend/pkg/types"
)

// ItemInput is one refunded line, quantity strictly positive.
type ItemInput struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason,omitempty"`
}

// Input carries a refund request against an existing sale.
type Input struct {
	Items          []ItemInput `json:"items"`
	Note           string      `json:"note,omitempty"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service processes full and partial refunds.
type Service interface {
	Refund(ctx context.Context, originalSaleID uuid.UUID, input Input, actorID uuid.UUID) (*models.Sale, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   stock.Ledger
	journal  journal.Journal
	pricing  pricing.Engine
	numberer invoice.Numberer
	cfg      config.SalesConfig
	logg     *logger.Logger
}

// NewService wires a refund service with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ledger stock.Ledger,
	jr journal.Journal,
	engine pricing.Engine,
	numberer invoice.Numberer,
	cfg config.SalesConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if jr == nil {
		return nil, fmt.Errorf("inventory journal required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if numberer == nil {
		return nil, fmt.Errorf("invoice numberer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		journal:  jr,
		pricing:  engine,
		numberer: numberer,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

func (s *service) Refund(ctx context.Context, originalSaleID uuid.UUID, input Input, actorID uuid.UUID) (*models.Sale, error) {
	if originalSaleID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "original sale id is required")
	}
	if actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if s.cfg.OperationDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OperationDeadline)
		defer cancel()
	}

	scope := idempotencyScope(originalSaleID)
	if input.IdempotencyKey != "" {
		if replayed, err := s.replayRefund(ctx, scope, input.IdempotencyKey); err != nil {
			return nil, err
		} else if replayed != nil {
			return replayed, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.CommitRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		refund, err := s.commitRefund(ctx, originalSaleID, input, actorID, scope)
		if err == nil {
			s.logg.Info(s.logg.WithInvoice(s.logg.WithSaleID(ctx, refund.ID.String()), refund.InvoiceNumber), "refund committed")
			return refund, nil
		}

		switch {
		case db.IsUniqueViolation(err, "idempotency"):
			return s.mustReplayRefund(ctx, scope, input.IdempotencyKey)
		case db.IsUniqueViolation(err, "invoice_number"), db.IsRetryableConflict(err):
			lastErr = err
			continue
		default:
			return nil, err
		}
	}

	return nil, errors.Wrap(errors.CodeRetryableConflict, lastErr, "refund commit kept conflicting, giving up")
}

func (s *service) commitRefund(ctx context.Context, originalSaleID uuid.UUID, input Input, actorID uuid.UUID, scope string) (*models.Sale, error) {
	var refund *models.Sale

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)
		jr := s.journal.WithTx(tx)

		original, err := repo.FindSale(ctx, originalSaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New(errors.CodeSaleUnknown, "sale does not exist").WithDetails(map[string]any{
					"sale_id": originalSaleID.String(),
				})
			}
			return err
		}
		if original.IsRefund() || original.Status != enums.SaleStatusCompleted {
			return errors.New(errors.CodeNotRefundable, "sale cannot be refunded").WithDetails(map[string]any{
				"sale_id": originalSaleID.String(),
				"status":  string(original.Status),
			})
		}

		originalQty := make(map[uuid.UUID]decimal.Decimal, len(original.Items))
		originalLine := make(map[uuid.UUID]models.SaleItem, len(original.Items))
		for _, item := range original.Items {
			originalQty[item.ProductID] = originalQty[item.ProductID].Add(item.Quantity)
			originalLine[item.ProductID] = item
		}

		priorRefunds, err := repo.ListRefundsOf(ctx, originalSaleID)
		if err != nil {
			return err
		}
		refunded := make(map[uuid.UUID]decimal.Decimal)
		for _, prior := range priorRefunds {
			for _, item := range prior.Items {
				refunded[item.ProductID] = refunded[item.ProductID].Add(item.Quantity.Abs())
			}
		}

		items := make([]ItemInput, len(input.Items))
		copy(items, input.Items)
		sort.Slice(items, func(i, j int) bool {
			return bytes.Compare(items[i].ProductID[:], items[j].ProductID[:]) < 0
		})

		reasons := make(map[string]string)
		lines := make([]pricing.Line, 0, len(items))
		saleItems := make([]models.SaleItem, 0, len(items))
		for _, item := range items {
			total, inOriginal := originalQty[item.ProductID]
			remaining := total.Sub(refunded[item.ProductID])
			if !inOriginal || item.Quantity.GreaterThan(remaining) {
				return errors.New(errors.CodeRefundExceedsOriginal, "refund quantity exceeds what remains refundable").WithDetails(map[string]any{
					"product_id": item.ProductID.String(),
					"remaining":  remaining.String(),
				})
			}

			line := originalLine[item.ProductID]
			lines = append(lines, pricing.Line{
				ProductID: item.ProductID,
				Quantity:  item.Quantity.Neg(),
				UnitPrice: line.UnitPrice,
				Discount:  line.Discount,
			})
			saleItems = append(saleItems, models.SaleItem{
				ID:        uuid.New(),
				ProductID: item.ProductID,
				Quantity:  item.Quantity.Neg(),
				UnitPrice: line.UnitPrice,
				Discount:  line.Discount,
			})
			if item.Reason != "" {
				reasons[item.ProductID.String()] = item.Reason
			}
		}

		result, err := s.pricing.Price(lines, decimal.Zero, decimal.Zero)
		if err != nil {
			return err
		}

		for _, item := range items {
			if err := ledger.Restore(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		metadata := types.SaleMetadata{
			RefundOf:        &original.ID,
			OriginalInvoice: original.InvoiceNumber,
			Note:            input.Note,
		}
		if len(reasons) > 0 {
			metadata.Reasons = reasons
		}

		refund = &models.Sale{
			ID:            uuid.New(),
			InvoiceNumber: s.numberer.RefundNumber(original.InvoiceNumber, len(priorRefunds)),
			CashierID:     actorID,
			CustomerID:    original.CustomerID,
			PaymentMethod: original.PaymentMethod,
			Status:        enums.SaleStatusCompleted,
			TotalAmount:   result.Total,
			RefundOf:      &original.ID,
			Metadata:      metadata,
		}
		refund.Items = saleItems
		if err := repo.CreateSale(ctx, refund); err != nil {
			return err
		}

		refType := models.ReferenceTypeSale
		for _, item := range refund.Items {
			movement := &models.InventoryMovement{
				ProductID:     item.ProductID,
				Quantity:      item.Quantity.Abs(),
				MovementType:  enums.MovementTypeReturn,
				ActorID:       actorID,
				ReferenceType: &refType,
				ReferenceID:   &refund.ID,
			}
			if err := jr.Append(ctx, movement); err != nil {
				return err
			}
		}

		if fullyRefunded(originalQty, refunded, items) {
			if err := repo.UpdateStatus(ctx, original.ID, enums.SaleStatusRefunded); err != nil {
				return err
			}
		}

		if input.IdempotencyKey != "" {
			// A lapsed record from a prior refund still occupies the (scope, key)
			// slot until the daily purge. Clear it so the fresh insert lands.
			if err := repo.DeleteExpiredIdempotency(ctx, scope, input.IdempotencyKey); err != nil {
				return err
			}
			record := &models.IdempotencyKey{
				Scope:     scope,
				Key:       input.IdempotencyKey,
				SaleID:    refund.ID,
				ExpiresAt: time.Now().UTC().Add(s.cfg.IdempotencyTTL),
			}
			if err := repo.CreateIdempotency(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// fullyRefunded reports whether prior refunds plus the current items cover
// every original line completely.
func fullyRefunded(originalQty, refunded map[uuid.UUID]decimal.Decimal, items []ItemInput) bool {
	covered := make(map[uuid.UUID]decimal.Decimal, len(refunded))
	for pid, qty := range refunded {
		covered[pid] = qty
	}
	for _, item := range items {
		covered[item.ProductID] = covered[item.ProductID].Add(item.Quantity)
	}
	for pid, qty := range originalQty {
		if covered[pid].LessThan(qty) {
			return false
		}
	}
	return true
}

func (s *service) replayRefund(ctx context.Context, scope, key string) (*models.Sale, error) {
	record, err := s.repo.FindIdempotency(ctx, scope, key)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return nil, nil
	}
	sale, err := s.repo.FindSale(ctx, record.SaleID)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) mustReplayRefund(ctx context.Context, scope, key string) (*models.Sale, error) {
	refund, err := s.replayRefund(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, errors.New(errors.CodeRetryableConflict, "idempotency record vanished during replay")
	}
	return refund, nil
}

func (s *service) backoff(ctx context.Context, attempt int) error {
	delay := s.cfg.RetryBackoff << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.CodeTimeout, ctx.Err(), "deadline expired before commit")
	case <-timer.C:
		return nil
	}
}

func idempotencyScope(originalSaleID uuid.UUID) string {
	return fmt.Sprintf("refund:%s", originalSaleID)
}

func validateInput(input Input) error {
	if len(input.Items) == 0 {
		return errors.New(errors.CodeInvalidInput, "at least one refund item is required")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return errors.New(errors.CodeInvalidInput, "refund item product id is required")
		}
		if seen[item.ProductID] {
			return errors.New(errors.CodeDuplicateLine, "product appears in more than one refund line").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
		seen[item.ProductID] = true
		if !item.Quantity.IsPositive() {
			return errors.New(errors.CodeInvalidInput, "refund quantity must be positive").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
		if !item.Quantity.Equal(item.Quantity.Truncate(3)) {
			return errors.New(errors.CodeInvalidInput, "refund quantity allows at most 3 fractional digits").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
	}
	return nil
}
