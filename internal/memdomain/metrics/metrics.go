package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the memory domain layer. Construct
// it once per process; promauto registers on the default registerer.
type Metrics struct {
	DomainsRegistered    prometheus.Gauge
	TranslationsTotal    *prometheus.CounterVec
	FetchesStartedTotal  *prometheus.CounterVec
	FetchCompletionsTotal *prometheus.CounterVec
}

// New creates and registers all memory domain metrics.
func New() *Metrics {
	return &Metrics{
		DomainsRegistered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "memdomain_domains_registered",
			Help: "Current number of registered memory domains",
		}),
		TranslationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memdomain_translations_total",
			Help: "Total number of translate invocations by outcome",
		}, []string{"outcome"}),
		FetchesStartedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memdomain_fetches_started_total",
			Help: "Total number of fetch invocations by start outcome",
		}, []string{"outcome"}),
		FetchCompletionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memdomain_fetch_completions_total",
			Help: "Total number of fetch completion notifications by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) SetDomainsRegistered(count int) {
	m.DomainsRegistered.Set(float64(count))
}

func (m *Metrics) IncrementTranslations(outcome string) {
	m.TranslationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementFetchesStarted(outcome string) {
	m.FetchesStartedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementFetchCompletions(status string) {
	m.FetchCompletionsTotal.WithLabelValues(status).Inc()
}
