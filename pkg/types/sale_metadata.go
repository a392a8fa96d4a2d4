package types

import "github.com/google/uuid"

// JSONMap is a free-form metadata bag stored as jsonb.
type JSONMap map[string]any

// SaleMetadata is the structured portion of a sale's metadata column. For
// refunds it links back to the originating sale; for regular sales only the
// free-form fields are populated.
type SaleMetadata struct {
	RefundOf        *uuid.UUID        `json:"refund_of,omitempty"`
	OriginalInvoice string            `json:"original_invoice,omitempty"`
	Reasons         map[string]string `json:"reasons,omitempty"`
	Note            string            `json:"note,omitempty"`
	Extra           JSONMap           `json:"extra,omitempty"`
}

// IsRefund reports whether the metadata marks the sale as a refund.
func (m SaleMetadata) IsRefund() bool {
	return m.RefundOf != nil && *m.RefundOf != uuid.Nil
}
