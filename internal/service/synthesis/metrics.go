package synthesis

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics of the synthesis engine. The
// transport layer that exposes them for scraping lives outside this module.
type Collector struct {
	registry *prometheus.Registry

	SuggestionsAccepted prometheus.Counter
	ForcedAcceptances   prometheus.Counter
	SlotsSkipped        prometheus.Counter
	CandidateRejections *prometheus.CounterVec
}

// NewCollector creates a metrics collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestions_accepted_total",
		Help:      "Suggestions accepted by the diversity gate and persisted",
	})
	forced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestions_forced_total",
		Help:      "Suggestions accepted unconditionally at the attempt cap",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slots_skipped_total",
		Help:      "Suggestion slots abandoned after a generation failure",
	})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidate_rejections_total",
		Help:      "Candidates rejected by the diversity gate, by reason",
	}, []string{"reason"})

	registry.MustRegister(accepted, forced, skipped, rejections)

	return &Collector{
		registry:            registry,
		SuggestionsAccepted: accepted,
		ForcedAcceptances:   forced,
		SlotsSkipped:        skipped,
		CandidateRejections: rejections,
	}
}

// Registry returns the underlying registry for exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Nil-safe increment helpers: the engine treats metrics as optional.

func (c *Collector) incAccepted() {
	if c != nil {
		c.SuggestionsAccepted.Inc()
	}
}

func (c *Collector) incForced() {
	if c != nil {
		c.ForcedAcceptances.Inc()
	}
}

func (c *Collector) incSkipped() {
	if c != nil {
		c.SlotsSkipped.Inc()
	}
}

func (c *Collector) incRejected(reason string) {
	if c != nil {
		c.CandidateRejections.WithLabelValues(reason).Inc()
	}
}
