package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestAgentMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewAgentMetrics(reg)

	metrics.IncTurn("search_products", "ok")
	metrics.ObserveTurnDuration("search_products", 120*time.Millisecond)
	metrics.ObserveRetrieval("products", 30*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "agent_turns_total", "action", "search_products"); err != nil {
		t.Fatalf("fetch turns: %v", err)
	} else if got != 1 {
		t.Fatalf("expected turns=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "agent_retrieval_duration_seconds", "collection", "products"); err != nil {
		t.Fatalf("fetch retrieval: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected retrieval sum > 0, got %f", got)
	}
}

func TestIndexerMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewIndexerMetrics(reg)

	metrics.AddChunks("general_handbook", 42)
	metrics.ObserveRebuild("general_handbook", 3*time.Second)
	metrics.IncFailure("products")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "indexer_chunks_indexed_total", "collection", "general_handbook"); err != nil {
		t.Fatalf("fetch chunks: %v", err)
	} else if got != 42 {
		t.Fatalf("expected chunks=42, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "indexer_failures_total", "collection", "products"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	agent := NewAgentMetrics(nil)
	agent.IncTurn("view_cart", "ok")
	agent.ObserveTurnDuration("view_cart", time.Millisecond)
	agent.ObserveRetrieval("products", time.Millisecond)

	indexer := NewIndexerMetrics(nil)
	indexer.AddChunks("products", 1)
	indexer.ObserveRebuild("products", time.Millisecond)
	indexer.IncFailure("products")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
