// Package metrics exports pipeline statistics in the Prometheus text format.
//
// Cleaning runs are batch jobs, so nothing is served: the registry is written
// to a file for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/willbeason/loan-prep/pkg/pipeline"
	"time"
)

const namespace = "loanprep"

// PipelineMetrics records one run. It implements pipeline.Recorder.
type PipelineMetrics struct {
	registry *prometheus.Registry

	stageRowsIn   *prometheus.GaugeVec
	stageRowsOut  *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	runTotal      *prometheus.CounterVec
	runDuration   prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

var _ pipeline.Recorder = (*PipelineMetrics)(nil)

func NewPipelineMetrics(job string) *PipelineMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"job_name": job}

	stageRowsIn := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "rows_in",
			Help:        "Rows entering each cleaning stage in the last run.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	stageRowsOut := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "rows_out",
			Help:        "Rows leaving each cleaning stage in the last run.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	stageDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "stage",
			Name:        "duration_seconds",
			Help:        "Time spent in each cleaning stage in the last run.",
			ConstLabels: constLabels,
		},
		[]string{"stage"},
	)
	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "total",
			Help:        "Cleaning runs by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "duration_seconds",
			Help:        "Duration of the last cleaning run.",
			ConstLabels: constLabels,
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "run",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time the last successful cleaning run finished.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(stageRowsIn, stageRowsOut, stageDuration, runTotal, runDuration, lastSuccess)

	return &PipelineMetrics{
		registry:      registry,
		stageRowsIn:   stageRowsIn,
		stageRowsOut:  stageRowsOut,
		stageDuration: stageDuration,
		runTotal:      runTotal,
		runDuration:   runDuration,
		lastSuccess:   lastSuccess,
	}
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) ObserveStage(stat pipeline.StageStat) {
	m.stageRowsIn.WithLabelValues(stat.Name).Set(float64(stat.RowsIn))
	m.stageRowsOut.WithLabelValues(stat.Name).Set(float64(stat.RowsOut))
	m.stageDuration.WithLabelValues(stat.Name).Set(stat.Duration.Seconds())
}

func (m *PipelineMetrics) ObserveRun(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(status).Inc()
	m.runDuration.Set(duration.Seconds())
	if err == nil {
		m.lastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes every metric to path, replacing it atomically.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return fmt.Errorf("writing metrics to %q: %w", path, err)
	}
	return nil
}
