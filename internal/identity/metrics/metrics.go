package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity registry.
type Metrics struct {
	Registered     prometheus.Counter
	LookupDuration prometheus.Histogram
}

// New creates a Metrics instance with all identity metrics registered.
func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landregistry_identities_registered_total",
			Help: "Total number of identities registered",
		}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "landregistry_identity_lookup_duration_seconds",
			Help:    "Duration of identity lookups (transfer-target resolution path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRegistered records a successful identity registration.
func (m *Metrics) IncrementRegistered() {
	m.Registered.Inc()
}

// ObserveLookup records the duration of an identity lookup.
func (m *Metrics) ObserveLookup(start time.Time) {
	m.LookupDuration.Observe(time.Since(start).Seconds())
}
