package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	for _, value := range []string{"cash", "card", "transfer", "other"} {
		method, err := ParsePaymentMethod(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if !method.IsValid() {
			t.Fatalf("%q should be valid", value)
		}
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatalf("expected error for unknown payment method")
	}
}

func TestParseSaleStatus(t *testing.T) {
	if _, err := ParseSaleStatus("completed"); err != nil {
		t.Fatalf("completed should parse: %v", err)
	}
	if SaleStatus("archived").IsValid() {
		t.Fatalf("archived should not be a valid sale status")
	}
}

func TestMovementTypeSigns(t *testing.T) {
	inbound := []MovementType{MovementTypePurchase, MovementTypeReturn, MovementTypeAdjustmentPositive}
	for _, mt := range inbound {
		if !mt.IsInbound() || mt.IsOutbound() {
			t.Fatalf("%s should be inbound only", mt)
		}
	}
	outbound := []MovementType{MovementTypeSale, MovementTypeAdjustmentNegative}
	for _, mt := range outbound {
		if !mt.IsOutbound() || mt.IsInbound() {
			t.Fatalf("%s should be outbound only", mt)
		}
	}
	if MovementTypeReconciliation.IsInbound() || MovementTypeReconciliation.IsOutbound() {
		t.Fatalf("reconciliation quantity is signed, not directional")
	}
}

func TestMovementTypeReferences(t *testing.T) {
	if !MovementTypeSale.RequiresSaleReference() {
		t.Fatalf("sale movements must reference a sale")
	}
	if !MovementTypeReturn.RequiresSaleReference() {
		t.Fatalf("return movements must reference a sale")
	}
	if MovementTypePurchase.RequiresSaleReference() {
		t.Fatalf("purchases may be standalone")
	}
}

func TestParseUserRole(t *testing.T) {
	if _, err := ParseUserRole("cashier"); err != nil {
		t.Fatalf("cashier should parse: %v", err)
	}
	if _, err := ParseUserRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
