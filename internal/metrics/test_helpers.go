package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// getMetricValue reads the current value of a single gauge or counter.
func getMetricValue(metric prometheus.Metric) (float64, error) {
	pb := &dto.Metric{}
	if err := metric.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	default:
		return 0, fmt.Errorf("metric is neither a gauge nor a counter")
	}
}

// getVecValue collects the child of vec selected by labels and reads its value.
func getVecValue(vec prometheus.Collector, labels prometheus.Labels) (float64, error) {
	c := make(chan prometheus.Metric, 16)
	vec.Collect(c)
	close(c)

	for m := range c {
		pb := &dto.Metric{}
		if err := m.Write(pb); err != nil {
			return 0, err
		}
		if labelsMatch(pb.GetLabel(), labels) {
			return getMetricValue(m)
		}
	}
	return 0, fmt.Errorf("no series with labels %v", labels)
}

// getHistogramCount returns the observation count of the histogram child selected by labels.
func getHistogramCount(vec *prometheus.HistogramVec, labels prometheus.Labels) (uint64, error) {
	obs, err := vec.GetMetricWith(labels)
	if err != nil {
		return 0, err
	}
	m, ok := obs.(prometheus.Metric)
	if !ok {
		return 0, fmt.Errorf("histogram child is not a metric")
	}
	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0, err
	}
	return pb.GetHistogram().GetSampleCount(), nil
}

func labelsMatch(pairs []*dto.LabelPair, want prometheus.Labels) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
