package observability

import (
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	ledgerViews        *prometheus.CounterVec
	entriesAccumulated prometheus.Counter
	taxResolutions     *prometheus.CounterVec
	clearedBackSolves  *prometheus.CounterVec
	billsRecorded      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finadmin_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		ledgerViews: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_ledger_views_total",
				Help: "Ledger views served, by whether a date window was applied.",
			},
			[]string{"windowed"},
		),
		entriesAccumulated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finadmin_ledger_entries_accumulated_total",
				Help: "Ledger entries run through the balance accumulator.",
			},
		),
		taxResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_tax_resolutions_total",
				Help: "Tax form resolutions by edited field.",
			},
			[]string{"field"},
		),
		clearedBackSolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_tax_cleared_backsolves_total",
				Help: "Inverse resolutions whose taxable value came out cleared.",
			},
			[]string{"field"},
		),
		billsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finadmin_bills_total",
				Help: "Bills submitted, by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordLedgerView counts a served ledger view and the entries it accumulated.
func (m *Metrics) RecordLedgerView(windowed bool, entries int) {
	label := "false"
	if windowed {
		label = "true"
	}
	m.ledgerViews.WithLabelValues(label).Inc()
	m.entriesAccumulated.Add(float64(entries))
}

// IncrTaxResolution counts one resolver call for the edited field.
func (m *Metrics) IncrTaxResolution(field string) {
	m.taxResolutions.WithLabelValues(field).Inc()
}

// IncrClearedBackSolve counts an inverse resolution that cleared the base.
func (m *Metrics) IncrClearedBackSolve(field string) {
	m.clearedBackSolves.WithLabelValues(field).Inc()
}

// IncrBill increments the bill counter with an outcome label
// (recorded, rejected, failed).
func (m *Metrics) IncrBill(status string) {
	m.billsRecorded.WithLabelValues(status).Inc()
}

// GetReconcileSnapshot returns cumulative counters for the
// GET /v1/metrics/reconcile endpoint.
func (m *Metrics) GetReconcileSnapshot() *domain.ReconcileMetrics {
	resolutions := make(map[string]int64, len(domain.TaxFields))
	var cleared float64
	for _, f := range domain.TaxFields {
		if v := getCounterValue(m.taxResolutions, string(f)); v > 0 {
			resolutions[string(f)] = int64(v)
		}
		cleared += getCounterValue(m.clearedBackSolves, string(f))
	}

	hits := getCounterValue(m.cacheHits, "ledger")
	misses := getCounterValue(m.cacheMisses, "ledger")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ReconcileMetrics{
		LedgerViews:        int64(getCounterValue(m.ledgerViews, "true") + getCounterValue(m.ledgerViews, "false")),
		EntriesAccumulated: int64(readCounter(m.entriesAccumulated)),
		TaxResolutions:     resolutions,
		ClearedBackSolves:  int64(cleared),
		BillsRecorded:      int64(getCounterValue(m.billsRecorded, "recorded")),
		BillsRejected:      int64(getCounterValue(m.billsRecorded, "rejected")),
		CacheHitRate:       hitRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
