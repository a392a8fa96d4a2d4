package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/internal/journal"
	"github.com/sabrositas/pos-backend/internal/stock"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
	"github.com/sabrositas/pos-backend/pkg/metrics"
)

// Anomaly is one product whose ledger and journal disagree beyond the
// tolerance. Drift is ledger minus journal.
type Anomaly struct {
	ProductID uuid.UUID       `json:"product_id"`
	Ledger    decimal.Decimal `json:"ledger"`
	Journal   decimal.Decimal `json:"journal"`
	Drift     decimal.Decimal `json:"drift"`
	Corrected bool            `json:"corrected"`
}

// Report summarizes one reconciliation pass.
type Report struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	ProductsChecked int       `json:"products_checked"`
	Anomalies       []Anomaly `json:"anomalies"`
	Corrections     int       `json:"corrections"`
}

// CountResult is the outcome of applying a physical count.
type CountResult struct {
	ProductID uuid.UUID       `json:"product_id"`
	Previous  decimal.Decimal `json:"previous"`
	Observed  decimal.Decimal `json:"observed"`
	Delta     decimal.Decimal `json:"delta"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service compares the stock ledger against the journal integral and
// applies counted corrections.
type Service interface {
	Reconcile(ctx context.Context, productID *uuid.UUID, correct bool, actorID uuid.UUID) (*Report, error)
	PhysicalCount(ctx context.Context, productID uuid.UUID, observed decimal.Decimal, actorID uuid.UUID, note string) (*CountResult, error)
	PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    stock.Ledger
	journal   journal.Journal
	tolerance decimal.Decimal
	met       *metrics.ReconcilerMetrics
	logg      *logger.Logger
}

// NewService builds a reconciler. Metrics may be nil when no registry is
// attached, every recorder method tolerates that.
func NewService(
	repo Repository,
	tx txRunner,
	ledger stock.Ledger,
	jr journal.Journal,
	cfg config.ReconcilerConfig,
	met *metrics.ReconcilerMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconcile repository required")
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
	tolerance, err := decimal.NewFromString(cfg.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("parsing reconciler tolerance %q: %w", cfg.Tolerance, err)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("reconciler tolerance cannot be negative")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		journal:   jr,
		tolerance: tolerance,
		met:       met,
		logg:      logg,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, productID *uuid.UUID, correct bool, actorID uuid.UUID) (*Report, error) {
	if actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required")
	}

	var ids []uuid.UUID
	if productID != nil {
		exists, err := s.repo.ProductExists(ctx, *productID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.New(errors.CodeProductUnknown, "product does not exist").WithDetails(map[string]any{
				"product_id": productID.String(),
			})
		}
		ids = []uuid.UUID{*productID}
	} else {
		var err error
		ids, err = s.repo.ListProductIDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{StartedAt: time.Now().UTC()}
	var sweepErr error
	totalDrift := decimal.Zero

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.CodeTimeout, ctx.Err(), "reconcile sweep interrupted")
		default:
		}

		anomaly, err := s.checkProduct(ctx, id, correct, actorID)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("product %s: %w", id, err))
			continue
		}
		report.ProductsChecked++
		if anomaly == nil {
			continue
		}
		report.Anomalies = append(report.Anomalies, *anomaly)
		totalDrift = totalDrift.Add(anomaly.Drift.Abs())
		if anomaly.Corrected {
			report.Corrections++
		}
	}
	report.FinishedAt = time.Now().UTC()

	s.met.AddProductsChecked(report.ProductsChecked)
	s.met.AddDiscrepancies(len(report.Anomalies))
	s.met.AddCorrections(report.Corrections)
	drift, _ := totalDrift.Float64()
	s.met.SetLastDrift(drift)

	fields := map[string]any{
		"products_checked": report.ProductsChecked,
		"anomalies":        len(report.Anomalies),
		"corrections":      report.Corrections,
		"total_drift":      totalDrift.String(),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "reconciliation pass finished")

	return report, sweepErr
}

// checkProduct compares one product inside its own transaction. The ledger
// is authoritative; when correcting, the journal catches up via a signed
// reconciliation movement while Adjust re-reads the row under guard.
func (s *service) checkProduct(ctx context.Context, productID uuid.UUID, correct bool, actorID uuid.UUID) (*Anomaly, error) {
	var anomaly *Anomaly

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		jr := s.journal.WithTx(tx)

		available, err := ledger.Available(ctx, productID)
		if err != nil {
			return err
		}
		net, err := jr.NetChange(ctx, productID, nil, nil)
		if err != nil {
			return err
		}

		drift := available.Sub(net)
		if drift.Abs().LessThanOrEqual(s.tolerance) {
			return nil
		}

		anomaly = &Anomaly{
			ProductID: productID,
			Ledger:    available,
			Journal:   net,
			Drift:     drift,
		}
		if !correct {
			return nil
		}

		auditNote := fmt.Sprintf("reconciliation: ledger %s, journal %s", available, net)
		movement := &models.InventoryMovement{
			ProductID:    productID,
			Quantity:     drift,
			MovementType: enums.MovementTypeReconciliation,
			ActorID:      actorID,
			Note:         &auditNote,
		}
		if err := jr.Append(ctx, movement); err != nil {
			return err
		}
		// Confirms the row under the update guard; a concurrent sale
		// between the read and here surfaces as a retryable conflict.
		if _, err := ledger.Adjust(ctx, productID, available); err != nil {
			return err
		}
		anomaly.Corrected = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return anomaly, nil
}

func (s *service) PhysicalCount(ctx context.Context, productID uuid.UUID, observed decimal.Decimal, actorID uuid.UUID, note string) (*CountResult, error) {
	if productID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "product id is required")
	}
	if actorID == uuid.Nil {
		return nil, errors.New(errors.CodeInvalidInput, "actor id is required")
	}
	if observed.IsNegative() {
		return nil, errors.New(errors.CodeInvalidInput, "observed quantity cannot be negative")
	}

	var result *CountResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		jr := s.journal.WithTx(tx)

		previous, err := ledger.Available(ctx, productID)
		if err != nil {
			return err
		}
		delta := observed.Sub(previous)
		result = &CountResult{
			ProductID: productID,
			Previous:  previous,
			Observed:  observed,
			Delta:     delta,
		}
		if delta.IsZero() {
			return nil
		}

		movementType := enums.MovementTypeAdjustmentPositive
		if delta.IsNegative() {
			movementType = enums.MovementTypeAdjustmentNegative
		}
		movement := &models.InventoryMovement{
			ProductID:    productID,
			Quantity:     delta.Abs(),
			MovementType: movementType,
			ActorID:      actorID,
		}
		if note != "" {
			movement.Note = &note
		}
		if err := jr.Append(ctx, movement); err != nil {
			return err
		}
		if _, err := ledger.Adjust(ctx, productID, observed); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"delta":      result.Delta.String(),
	}), "physical count applied")
	return result, nil
}

func (s *service) PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredIdempotencyKeys(ctx)
}
