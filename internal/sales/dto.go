package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/pagination"
	"github.com/sabrositas/pos-backend/pkg/types"
)

// LineInput is one requested sale line. UnitPrice overrides the catalog
// price when present; Discount is a fraction in [0, 1].
type LineInput struct {
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
}

// CreateSaleInput carries everything a sale commit needs.
type CreateSaleInput struct {
	Items          []LineInput         `json:"items"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	ExpectedTotal  *decimal.Decimal    `json:"expected_total,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	Metadata       types.JSONMap       `json:"metadata,omitempty"`
}

// ListFilter bounds a sales listing to a time window.
type ListFilter struct {
	Start      time.Time
	End        time.Time
	Pagination pagination.Params
}
