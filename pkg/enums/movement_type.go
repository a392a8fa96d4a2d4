package enums

import "fmt"

// MovementType classifies an inventory movement. The sign applied to the
// movement quantity when reconstructing on-hand stock is derived from the
// type, not stored with the row.
type MovementType string

const (
	MovementTypePurchase           MovementType = "purchase"
	MovementTypeSale               MovementType = "sale"
	MovementTypeReturn             MovementType = "return"
	MovementTypeAdjustmentPositive MovementType = "adjustment_positive"
	MovementTypeAdjustmentNegative MovementType = "adjustment_negative"
	MovementTypeReconciliation     MovementType = "reconciliation"
)

var validMovementTypes = []MovementType{
	MovementTypePurchase,
	MovementTypeSale,
	MovementTypeReturn,
	MovementTypeAdjustmentPositive,
	MovementTypeAdjustmentNegative,
	MovementTypeReconciliation,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}

// IsInbound reports whether the type adds stock when its quantity is positive.
// Reconciliation movements carry a signed quantity and are handled by sign.
func (m MovementType) IsInbound() bool {
	switch m {
	case MovementTypePurchase, MovementTypeReturn, MovementTypeAdjustmentPositive:
		return true
	default:
		return false
	}
}

// IsOutbound reports whether the type removes stock.
func (m MovementType) IsOutbound() bool {
	switch m {
	case MovementTypeSale, MovementTypeAdjustmentNegative:
		return true
	default:
		return false
	}
}

// RequiresSaleReference reports whether movements of this type must point at
// the sale that caused them.
func (m MovementType) RequiresSaleReference() bool {
	return m == MovementTypeSale || m == MovementTypeReturn
}
