package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"

	"terptracker/pkg/models"
)

// Metrics counts analyses and which sources fed them. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	sourceHitsTotal  *prometheus.CounterVec
	sourceErrors     *prometheus.CounterVec
	apiFallbackTotal *prometheus.CounterVec
}

// NewMetrics creates the analyzer metrics and registers them.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terptracker_analyses_total",
				Help: "Total number of analyses by kind and outcome",
			},
			[]string{"kind", "outcome"}, // kind: url, strain; outcome: ok, no_data, error
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "terptracker_analysis_duration_seconds",
				Help:    "Time taken to run one analysis",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		sourceHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terptracker_source_hits_total",
				Help: "Total number of analyses each source contributed data to",
			},
			[]string{"source"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terptracker_source_errors_total",
				Help: "Total number of collaborator failures treated as no data",
			},
			[]string{"collaborator"},
		),
		apiFallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terptracker_api_fallback_total",
				Help: "Outcome of the completeness gate and external API chain",
			},
			[]string{"result"}, // result: skipped, hit, miss
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.analysesTotal.Describe(ch)
	m.analysisDuration.Describe(ch)
	m.sourceHitsTotal.Describe(ch)
	m.sourceErrors.Describe(ch)
	m.apiFallbackTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.analysesTotal.Collect(ch)
	m.analysisDuration.Collect(ch)
	m.sourceHitsTotal.Collect(ch)
	m.sourceErrors.Collect(ch)
	m.apiFallbackTotal.Collect(ch)
}

func (m *Metrics) recordAnalysis(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(kind, outcome).Inc()
	m.analysisDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) recordSources(sources []models.Source) {
	if m == nil {
		return
	}
	for _, s := range sources {
		m.sourceHitsTotal.WithLabelValues(string(s)).Inc()
	}
}

func (m *Metrics) recordSourceError(collaborator string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) recordFallback(result string) {
	if m == nil {
		return
	}
	m.apiFallbackTotal.WithLabelValues(result).Inc()
}
