package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sabrositas/pos-backend/api/responses"
	"github.com/sabrositas/pos-backend/api/validators"
	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/reconcile"
	pkgerrors "github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

// ReconcileInventory sweeps every product, or one with ?product_id=,
// comparing the ledger against the journal. ?correct=true writes
// corrections, the default is a dry run.
func ReconcileInventory(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		correct, err := validators.ParseQueryBool(r, "correct", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var productID *uuid.UUID
		if raw := r.URL.Query().Get("product_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "invalid product_id"))
				return
			}
			productID = &id
		}

		report, err := svc.Reconcile(r.Context(), productID, correct, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

type physicalCountRequest struct {
	ObservedQty decimal.Decimal `json:"observed_qty"`
	Note        string          `json:"note,omitempty"`
}

// RecordPhysicalCount reconciles a product against a hand count.
func RecordPhysicalCount(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body physicalCountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PhysicalCount(r.Context(), productID, body.ObservedQty, actorID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// InventorySummary aggregates journal activity across a time window.
func InventorySummary(jr journal.Journal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "journal unavailable"))
			return
		}

		start, end, err := validators.ParseTimeWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := jr.Summary(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
