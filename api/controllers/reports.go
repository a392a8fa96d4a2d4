package controllers

import (
	"net/http"

	"github.com/sabrositas/pos-backend/api/responses"
	"github.com/sabrositas/pos-backend/api/validators"
	"github.com/sabrositas/pos-backend/internal/reports"
	pkgerrors "github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

// DailySalesReport aggregates sales and refunds per calendar day.
func DailySalesReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		start, end, err := validators.ParseTimeWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.DailySales(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
