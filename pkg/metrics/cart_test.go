package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)
	metrics.IncOperation("add")
	metrics.IncOperation("add")
	metrics.IncRecovery("backup")
	metrics.IncSync("updated")
	metrics.IncSync("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_operations_total", "op", "add"); err != nil {
		t.Fatalf("fetch operations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected add=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_recoveries_total", "outcome", "backup"); err != nil {
		t.Fatalf("fetch recoveries: %v", err)
	} else if got != 1 {
		t.Fatalf("expected backup=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_syncs_total", "kind", "unknown"); err != nil {
		t.Fatalf("fetch syncs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unlabelled sync to normalize to unknown, got %f", got)
	}
}

func TestCartMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *CartMetrics
	metrics.IncOperation("add")
	metrics.IncRecovery("empty")
	metrics.IncSync("cleared")

	empty := NewCartMetrics(nil)
	empty.IncOperation("add")
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
