package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records entitlement decisions and provider latency.
type GenerationMetrics struct {
	decisions       *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// NewGenerationMetrics registers the generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_decisions_total",
		Help: "Entitlement decisions on generation requests.",
	}, []string{"tier", "outcome"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_provider_seconds",
		Help:    "Latency of upstream generation providers in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"content_type"})
	reg.MustRegister(decisions, providerLatency)
	return &GenerationMetrics{
		decisions:       decisions,
		providerLatency: providerLatency,
	}
}

// IncDecision counts one allow/deny outcome for the given tier.
func (g *GenerationMetrics) IncDecision(tier, outcome string) {
	if g == nil || g.decisions == nil {
		return
	}
	g.decisions.WithLabelValues(normalizeLabel(tier), normalizeLabel(outcome)).Inc()
}

// ObserveProviderLatency records how long the upstream call took.
func (g *GenerationMetrics) ObserveProviderLatency(contentType string, duration time.Duration) {
	if g == nil || g.providerLatency == nil {
		return
	}
	g.providerLatency.WithLabelValues(normalizeLabel(contentType)).Observe(duration.Seconds())
}
