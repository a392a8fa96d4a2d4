package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationPgError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "sales_invoice_number_key"}

	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(err, "sales_invoice_number_key") {
		t.Fatalf("expected match on constraint name")
	}
	if IsUniqueViolation(err, "other_constraint") {
		t.Fatalf("constraint name should restrict the match")
	}
}

func TestIsUniqueViolationTextFallback(t *testing.T) {
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: sales.invoice_number"), "") {
		t.Fatalf("sqlite phrasing should match")
	}
	if !IsUniqueViolation(fmt.Errorf("wrapped: %w", errors.New("duplicate key value violates unique constraint")), "") {
		t.Fatalf("postgres phrasing should match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: sales.invoice_number"), "invoice_number") {
		t.Fatalf("fragment should match the sqlite message")
	}
	if IsUniqueViolation(errors.New("UNIQUE constraint failed: sales.invoice_number"), "idempotency") {
		t.Fatalf("fragment should restrict the match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated errors should not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil should not match")
	}
}

func TestIsRetryableConflict(t *testing.T) {
	if !IsRetryableConflict(&pgconn.PgError{Code: "40P01"}) {
		t.Fatalf("deadlock should be retryable")
	}
	if !IsRetryableConflict(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be retryable")
	}
	if IsRetryableConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation is handled separately")
	}
	if IsRetryableConflict(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable conflicts")
	}
}
