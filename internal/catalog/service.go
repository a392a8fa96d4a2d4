package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/stock"
	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

// CreateProductInput carries a new catalog entry. InitialStock, when
// positive, is journaled as a purchase so the ledger and journal agree
// from the first row.
type CreateProductInput struct {
	Code              string           `json:"code"`
	Name              string           `json:"name"`
	Price             decimal.Decimal  `json:"price"`
	Category          string           `json:"category"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold,omitempty"`
	InitialStock      decimal.Decimal  `json:"initial_stock"`
}

// UpdateProductInput patches an existing entry. Nil fields are unchanged.
// OnHand is absent on purpose, stock moves only through the ledger.
type UpdateProductInput struct {
	Name              *string          `json:"name,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Category          *string          `json:"category,omitempty"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold,omitempty"`
	Active            *bool            `json:"active,omitempty"`
}

// ListFilter narrows a product listing.
type ListFilter struct {
	Category *string
	Active   *bool
}

// StockView is the read side of the stock endpoint.
type StockView struct {
	ProductID uuid.UUID       `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Threshold decimal.Decimal `json:"low_stock_threshold"`
	LowStock  bool            `json:"low_stock"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the product catalog. Deactivation is the only removal;
// sold products stay referenced by their sale items forever.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput, actorID uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	GetStock(ctx context.Context, id uuid.UUID) (*StockView, error)
	RestockProduct(ctx context.Context, id uuid.UUID, qty decimal.Decimal, actorID uuid.UUID, note string) (*models.Product, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  stock.Ledger
	journal journal.Journal
	logg    *logger.Logger
}

func NewService(repo Repository, tx txRunner, ledger stock.Ledger, jr journal.Journal, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
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
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger, journal: jr, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput, actorID uuid.UUID) (*models.Product, error) {
	if err := validateCreateProduct(input); err != nil {
		return nil, err
	}
	if input.InitialStock.IsPositive() && actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required when initial stock is set")
	}

	product := &models.Product{
		ID:       uuid.New(),
		Code:     strings.TrimSpace(input.Code),
		Name:     strings.TrimSpace(input.Name),
		Price:    input.Price,
		Category: strings.TrimSpace(input.Category),
		OnHand:   input.InitialStock,
		Active:   true,
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	} else {
		product.LowStockThreshold = decimal.NewFromInt(5)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "code") {
				return errors.New(errors.CodeAlreadyExists, "product code already exists").WithDetails(map[string]any{
					"code": product.Code,
				})
			}
			return err
		}
		if input.InitialStock.IsPositive() {
			return s.journal.WithTx(tx).Append(ctx, &models.InventoryMovement{
				ProductID:    product.ID,
				Quantity:     input.InitialStock,
				MovementType: enums.MovementTypePurchase,
				ActorID:      actorID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if input.Price != nil {
		if input.Price.IsNegative() || !input.Price.Equal(input.Price.Truncate(2)) {
			return nil, errors.New(errors.CodeInvalidInput, "price must be non-negative with at most 2 fractional digits")
		}
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "name cannot be blank")
	}
	if input.LowStockThreshold != nil && input.LowStockThreshold.IsNegative() {
		return nil, errors.New(errors.CodeInvalidInput, "low stock threshold cannot be negative")
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err, id)
		}
		if input.Name != nil {
			found.Name = strings.TrimSpace(*input.Name)
		}
		if input.Price != nil {
			found.Price = *input.Price
		}
		if input.Category != nil {
			found.Category = strings.TrimSpace(*input.Category)
		}
		if input.LowStockThreshold != nil {
			found.LowStockThreshold = *input.LowStockThreshold
		}
		if input.Active != nil {
			found.Active = *input.Active
		}
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		product = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, UpdateProductInput{Active: &inactive})
	return err
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, id)
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) GetStock(ctx context.Context, id uuid.UUID) (*StockView, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, id)
	}
	return &StockView{
		ProductID: product.ID,
		OnHand:    product.OnHand,
		Threshold: product.LowStockThreshold,
		LowStock:  product.OnHand.LessThanOrEqual(product.LowStockThreshold),
	}, nil
}

// RestockProduct receives goods: a purchase movement plus a ledger restore
// in one transaction.
func (s *service) RestockProduct(ctx context.Context, id uuid.UUID, qty decimal.Decimal, actorID uuid.UUID, note string) (*models.Product, error) {
	if !qty.IsPositive() {
		return nil, errors.New(errors.CodeInvalidInput, "restock quantity must be positive")
	}
	if actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required")
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := s.ledger.WithTx(tx).Restore(ctx, id, qty); err != nil {
			return err
		}
		movement := &models.InventoryMovement{
			ProductID:    id,
			Quantity:     qty,
			MovementType: enums.MovementTypePurchase,
			ActorID:      actorID,
		}
		if note != "" {
			movement.Note = &note
		}
		if err := s.journal.WithTx(tx).Append(ctx, movement); err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		product = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": id.String(),
		"quantity":   qty.String(),
	}), "product restocked")
	return product, nil
}

func validateCreateProduct(input CreateProductInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return errors.New(errors.CodeInvalidInput, "code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return errors.New(errors.CodeInvalidInput, "name is required")
	}
	if input.Price.IsNegative() || !input.Price.Equal(input.Price.Truncate(2)) {
		return errors.New(errors.CodeInvalidInput, "price must be non-negative with at most 2 fractional digits")
	}
	if input.InitialStock.IsNegative() {
		return errors.New(errors.CodeInvalidInput, "initial stock cannot be negative")
	}
	if input.LowStockThreshold != nil && input.LowStockThreshold.IsNegative() {
		return errors.New(errors.CodeInvalidInput, "low stock threshold cannot be negative")
	}
	return nil
}

func mapNotFound(err error, id uuid.UUID) error {
	if err == gorm.ErrRecordNotFound {
		return errors.New(errors.CodeProductUnknown, "product does not exist").WithDetails(map[string]any{
			"product_id": id.String(),
		})
	}
	return err
}
