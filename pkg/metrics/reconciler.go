package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcilerMetrics tracks outcomes of stock reconciliation runs.
type ReconcilerMetrics struct {
	productsChecked prometheus.Counter
	discrepancies   prometheus.Counter
	corrections     prometheus.Counter
	lastDrift       prometheus.Gauge
}

// NewReconcilerMetrics registers the reconciler metrics on the provided registerer.
func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	if reg == nil {
		return &ReconcilerMetrics{}
	}
	productsChecked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_products_checked_total",
		Help: "Products whose on-hand stock was compared against the movement journal.",
	})
	discrepancies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_discrepancies_total",
		Help: "Products whose on-hand stock disagreed with the movement journal.",
	})
	corrections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_corrections_total",
		Help: "Correcting movements written by reconciliation runs.",
	})
	lastDrift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reconciler_last_run_drift",
		Help: "Sum of absolute stock drift found by the latest reconciliation run.",
	})
	reg.MustRegister(productsChecked, discrepancies, corrections, lastDrift)
	return &ReconcilerMetrics{
		productsChecked: productsChecked,
		discrepancies:   discrepancies,
		corrections:     corrections,
		lastDrift:       lastDrift,
	}
}

// AddProductsChecked records how many products a run inspected.
func (r *ReconcilerMetrics) AddProductsChecked(n int) {
	if r == nil || r.productsChecked == nil {
		return
	}
	r.productsChecked.Add(float64(n))
}

// AddDiscrepancies records how many products were found drifted.
func (r *ReconcilerMetrics) AddDiscrepancies(n int) {
	if r == nil || r.discrepancies == nil {
		return
	}
	r.discrepancies.Add(float64(n))
}

// AddCorrections records how many correcting movements were written.
func (r *ReconcilerMetrics) AddCorrections(n int) {
	if r == nil || r.corrections == nil {
		return
	}
	r.corrections.Add(float64(n))
}

// SetLastDrift records the absolute drift total of the latest run.
func (r *ReconcilerMetrics) SetLastDrift(total float64) {
	if r == nil || r.lastDrift == nil {
		return
	}
	r.lastDrift.Set(total)
}
