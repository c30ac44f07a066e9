package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder backed by a Prometheus registry.
type PrometheusRecorder struct {
	registry *prom.Registry

	unitsStarted   *prom.CounterVec
	unitsCompleted *prom.CounterVec
	phaseDuration  *prom.HistogramVec
	docsGenerated  *prom.CounterVec
	syncState      *prom.GaugeVec
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{registry: prom.NewRegistry()}

	r.unitsStarted = prom.NewCounterVec(prom.CounterOpts{
		Name: "brandintel_units_started_total",
		Help: "Extraction units that entered the analysis phase.",
	}, []string{"unit_type"})

	r.unitsCompleted = prom.NewCounterVec(prom.CounterOpts{
		Name: "brandintel_units_completed_total",
		Help: "Extraction units that reached a terminal status.",
	}, []string{"unit_type", "result"})

	r.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Name:    "brandintel_phase_duration_seconds",
		Help:    "Duration of one protocol phase.",
		Buckets: prom.ExponentialBuckets(0.1, 2, 12),
	}, []string{"unit_type", "phase"})

	r.docsGenerated = prom.NewCounterVec(prom.CounterOpts{
		Name: "brandintel_documents_generated_total",
		Help: "Document generations by template and result.",
	}, []string{"template_id", "result"})

	r.syncState = prom.NewGaugeVec(prom.GaugeOpts{
		Name: "brandintel_sync_state",
		Help: "Live sync connection state (1 for the active state).",
	}, []string{"state"})

	r.registry.MustRegister(r.unitsStarted, r.unitsCompleted, r.phaseDuration, r.docsGenerated, r.syncState)
	return r
}

func (r *PrometheusRecorder) UnitStarted(unitType string) {
	r.unitsStarted.WithLabelValues(unitType).Inc()
}

func (r *PrometheusRecorder) UnitCompleted(unitType string, success bool, duration time.Duration) {
	r.unitsCompleted.WithLabelValues(unitType, resultLabel(success)).Inc()
}

func (r *PrometheusRecorder) PhaseDuration(unitType, phase string, duration time.Duration) {
	r.phaseDuration.WithLabelValues(unitType, phase).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) DocumentGenerated(templateID string, success bool) {
	r.docsGenerated.WithLabelValues(templateID, resultLabel(success)).Inc()
}

// SyncState marks the given state active and clears the others.
func (r *PrometheusRecorder) SyncState(state string) {
	for _, s := range []string{"connecting", "connected", "disconnected", "reconnecting", "polling"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		r.syncState.WithLabelValues(s).Set(v)
	}
}

// Handler returns an http.Handler exposing the registry, mounted by the
// daemon under /metrics.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
