package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AgentMetrics records per-turn observability for the query engine.
type AgentMetrics struct {
	turns            *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	retrievalLatency *prometheus.HistogramVec
}

// NewAgentMetrics registers the agent metrics on the provided registerer.
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	if reg == nil {
		return &AgentMetrics{}
	}
	turns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_turns_total",
		Help: "Handled agent turns by classified action and outcome.",
	}, []string{"action", "outcome"})
	turnDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_turn_duration_seconds",
		Help:    "End-to-end duration of agent turns in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	retrievalLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_retrieval_duration_seconds",
		Help:    "Duration of vector store queries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})
	reg.MustRegister(turns, turnDuration, retrievalLatency)
	return &AgentMetrics{
		turns:            turns,
		turnDuration:     turnDuration,
		retrievalLatency: retrievalLatency,
	}
}

// IncTurn counts a handled turn for the action/outcome pair.
func (m *AgentMetrics) IncTurn(action, outcome string) {
	if m == nil || m.turns == nil {
		return
	}
	m.turns.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveTurnDuration records the end-to-end duration for the action.
func (m *AgentMetrics) ObserveTurnDuration(action string, duration time.Duration) {
	if m == nil || m.turnDuration == nil {
		return
	}
	m.turnDuration.WithLabelValues(normalizeLabel(action)).Observe(duration.Seconds())
}

// ObserveRetrieval records a vector store query duration for the collection.
func (m *AgentMetrics) ObserveRetrieval(collection string, duration time.Duration) {
	if m == nil || m.retrievalLatency == nil {
		return
	}
	m.retrievalLatency.WithLabelValues(normalizeLabel(collection)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
