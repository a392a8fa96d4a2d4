package sales

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
	"github.com/sabrositas/pos-backend/pkg/pagination"
	"github.com/sabrositas/pos-backend/pkg/types"
)

// IdempotencyScopeSale groups idempotency keys for sale creation.
const IdempotencyScopeSale = "sale"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service orchestrates sale creation and reads.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput, actorID uuid.UUID) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]models.Sale, string, error)
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

// NewService wires a sale service with its collaborators.
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
		return nil, fmt.Errorf("sales repository required")
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

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput, actorID uuid.UUID) (*models.Sale, error) {
	if actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	if s.cfg.OperationDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OperationDeadline)
		defer cancel()
	}

	if input.IdempotencyKey != "" {
		if replayed, err := s.replaySale(ctx, IdempotencyScopeSale, input.IdempotencyKey); err != nil {
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

		sale, err := s.commitSale(ctx, input, actorID)
		if err == nil {
			s.logg.Info(s.logg.WithInvoice(s.logg.WithSaleID(ctx, sale.ID.String()), sale.InvoiceNumber), "sale committed")
			return sale, nil
		}

		switch {
		case db.IsUniqueViolation(err, "idempotency"):
			// a concurrent request with the same key won the race
			return s.mustReplaySale(ctx, IdempotencyScopeSale, input.IdempotencyKey)
		case db.IsUniqueViolation(err, "invoice_number"), db.IsRetryableConflict(err), isRetryableCode(err):
			lastErr = err
			continue
		default:
			return nil, err
		}
	}

	return nil, errors.Wrap(errors.CodeRetryableConflict, lastErr, "sale commit kept conflicting, giving up")
}

func (s *service) commitSale(ctx context.Context, input CreateSaleInput, actorID uuid.UUID) (*models.Sale, error) {
	var sale *models.Sale

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)
		jr := s.journal.WithTx(tx)

		if input.CustomerID != nil {
			exists, err := repo.CustomerExists(ctx, *input.CustomerID)
			if err != nil {
				return err
			}
			if !exists {
				return errors.New(errors.CodeCustomerUnknown, "customer does not exist").WithDetails(map[string]any{
					"customer_id": input.CustomerID.String(),
				})
			}
		}

		// ascending product id order fixes the lock order across sales
		items := make([]LineInput, len(input.Items))
		copy(items, input.Items)
		sort.Slice(items, func(i, j int) bool {
			return bytes.Compare(items[i].ProductID[:], items[j].ProductID[:]) < 0
		})

		ids := make([]uuid.UUID, len(items))
		for i, item := range items {
			ids[i] = item.ProductID
		}
		products, err := repo.LoadProducts(ctx, ids)
		if err != nil {
			return err
		}

		lines := make([]pricing.Line, 0, len(items))
		saleItems := make([]models.SaleItem, 0, len(items))
		for _, item := range items {
			product, ok := products[item.ProductID]
			if !ok || !product.Active {
				return errors.New(errors.CodeProductUnknown, "product does not exist").WithDetails(map[string]any{
					"product_id": item.ProductID.String(),
				})
			}

			unitPrice := product.Price
			if item.UnitPrice != nil {
				unitPrice = *item.UnitPrice
			}
			discount := decimal.Zero
			if item.Discount != nil {
				discount = *item.Discount
			}

			lines = append(lines, pricing.Line{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				Discount:  discount,
			})
			saleItems = append(saleItems, models.SaleItem{
				ID:        uuid.New(),
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				Discount:  discount,
			})
		}

		result, err := s.pricing.Price(lines, input.DiscountAmount, input.TaxAmount)
		if err != nil {
			return err
		}
		if input.ExpectedTotal != nil {
			if err := s.pricing.CheckExpectedTotal(result.Total, *input.ExpectedTotal); err != nil {
				return err
			}
		}

		for _, line := range lines {
			if err := ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		invoiceNumber, err := s.numberer.Next(ctx)
		if err != nil {
			return err
		}

		sale = &models.Sale{
			ID:            uuid.New(),
			InvoiceNumber: invoiceNumber,
			CashierID:     actorID,
			CustomerID:    input.CustomerID,
			PaymentMethod: input.PaymentMethod,
			Status:        enums.SaleStatusCompleted,
			TotalAmount:   result.Total,
			Metadata:      types.SaleMetadata{Extra: input.Metadata},
			Items:         saleItems,
		}
		if err := repo.CreateSale(ctx, sale); err != nil {
			return err
		}

		refType := models.ReferenceTypeSale
		for _, item := range sale.Items {
			movement := &models.InventoryMovement{
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				MovementType:  enums.MovementTypeSale,
				ActorID:       actorID,
				ReferenceType: &refType,
				ReferenceID:   &sale.ID,
			}
			if err := jr.Append(ctx, movement); err != nil {
				return err
			}
		}

		if input.IdempotencyKey != "" {
			// A lapsed record from a prior sale still occupies the (scope, key)
			// slot until the daily purge. Clear it so the fresh insert lands.
			if err := repo.DeleteExpiredIdempotency(ctx, IdempotencyScopeSale, input.IdempotencyKey); err != nil {
				return err
			}
			record := &models.IdempotencyKey{
				Scope:     IdempotencyScopeSale,
				Key:       input.IdempotencyKey,
				SaleID:    sale.ID,
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
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, saleUnknown(id)
		}
		return nil, err
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, filter ListFilter) ([]models.Sale, string, error) {
	if !filter.End.After(filter.Start) {
		return nil, "", errors.New(errors.CodeInvalidInput, "listing window end must follow start")
	}

	cursor, err := pagination.ParseCursor(filter.Pagination.Cursor)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeInvalidInput, err, "invalid cursor")
	}

	rows, err := s.repo.ListWindow(ctx, filter.Start, filter.End, pagination.LimitWithBuffer(filter.Pagination.Limit), cursor)
	if err != nil {
		return nil, "", err
	}

	page, next := pagination.Page(rows, filter.Pagination.Limit, func(sale models.Sale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: sale.CreatedAt, ID: sale.ID}
	})
	return page, next, nil
}

// replaySale returns the previously committed sale for the key, or nil when
// the key is unused or expired.
func (s *service) replaySale(ctx context.Context, scope, key string) (*models.Sale, error) {
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
	return s.GetSale(ctx, record.SaleID)
}

func (s *service) mustReplaySale(ctx context.Context, scope, key string) (*models.Sale, error) {
	sale, err := s.replaySale(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, errors.New(errors.CodeRetryableConflict, "idempotency record vanished during replay")
	}
	return sale, nil
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

func validateCreateInput(input CreateSaleInput) error {
	if len(input.Items) == 0 {
		return errors.New(errors.CodeInvalidInput, "at least one item is required")
	}
	if !input.PaymentMethod.IsValid() {
		return errors.New(errors.CodeUnknownEnum, "unknown payment method").WithDetails(map[string]any{
			"payment_method": string(input.PaymentMethod),
		})
	}
	if input.DiscountAmount.IsNegative() || input.TaxAmount.IsNegative() {
		return errors.New(errors.CodeInvalidInput, "discount and tax amounts cannot be negative")
	}

	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return errors.New(errors.CodeInvalidInput, "item product id is required")
		}
		if seen[item.ProductID] {
			return errors.New(errors.CodeDuplicateLine, "product appears in more than one line").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
		seen[item.ProductID] = true

		if !item.Quantity.IsPositive() {
			return errors.New(errors.CodeInvalidInput, "item quantity must be positive").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
		if !item.Quantity.Equal(item.Quantity.Truncate(3)) {
			return errors.New(errors.CodeInvalidInput, "item quantity allows at most 3 fractional digits").WithDetails(map[string]any{
				"product_id": item.ProductID.String(),
			})
		}
	}
	return nil
}

func isRetryableCode(err error) bool {
	domainErr := errors.As(err)
	return domainErr != nil && domainErr.Code() == errors.CodeRetryableConflict
}

func saleUnknown(id uuid.UUID) error {
	return errors.New(errors.CodeSaleUnknown, "sale does not exist").WithDetails(map[string]any{
		"sale_id": id.String(),
	})
}
