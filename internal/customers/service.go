package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

// CreateInput carries a new customer record.
type CreateInput struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// UpdateInput patches a customer. Nil fields are unchanged.
type UpdateInput struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Service manages the optional party on a sale.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Customer, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, activeOnly bool) ([]models.Customer, error)
}

type service struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewService(conn *gorm.DB, logg *logger.Logger) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: conn, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "name is required")
	}

	customer := &models.Customer{
		ID:     uuid.New(),
		Name:   name,
		Phone:  input.Phone,
		Active: true,
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, errors.New(errors.CodeInvalidInput, "email is malformed")
		}
		customer.Email = &email
	}

	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, errors.New(errors.CodeAlreadyExists, "email already registered")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "customer_id", customer.ID.String()), "customer created")
	return customer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error) {
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.New(errors.CodeInvalidInput, "name cannot be blank")
		}
		customer.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, errors.New(errors.CodeInvalidInput, "email is malformed")
		}
		customer.Email = &email
	}
	if input.Phone != nil {
		customer.Phone = input.Phone
	}
	if input.Active != nil {
		customer.Active = *input.Active
	}

	if err := s.db.WithContext(ctx).Save(customer).Error; err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, errors.New(errors.CodeAlreadyExists, "email already registered")
		}
		return nil, err
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeCustomerUnknown, "customer does not exist").WithDetails(map[string]any{
				"customer_id": id.String(),
			})
		}
		return nil, err
	}
	return &customer, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Customer, error) {
	query := s.db.WithContext(ctx).Model(&models.Customer{}).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
