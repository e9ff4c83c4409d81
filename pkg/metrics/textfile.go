// Package metrics exports the outcome of a comparison run in the Prometheus
// text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sdejongh/dircompare/pkg/models"
)

var terminalStatuses = []models.RunStatus{
	models.StatusCompleted,
	models.StatusFailed,
	models.StatusCancelled,
}

// Recorder holds the gauges of a single run on a private registry
type Recorder struct {
	registry *prometheus.Registry

	files           *prometheus.GaugeVec
	results         *prometheus.GaugeVec
	pointerFailures prometheus.Gauge
	duration        prometheus.Gauge
	status          *prometheus.GaugeVec
	finished        prometheus.Gauge
}

// NewRecorder creates a recorder with all gauges registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		files: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dircompare_files",
			Help: "Files found in each tree by the last comparison",
		}, []string{"tree"}),
		results: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dircompare_result_files",
			Help: "Files in each result category of the last comparison",
		}, []string{"category"}),
		pointerFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dircompare_pointer_failures",
			Help: "Pointers that could not be created by the last comparison",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dircompare_duration_seconds",
			Help: "Duration of the last completed comparison",
		}),
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dircompare_last_run_status",
			Help: "1 for the terminal status of the last comparison, 0 otherwise",
		}, []string{"status"}),
		finished: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dircompare_last_run_timestamp_seconds",
			Help: "Unix time at which the last comparison ended",
		}),
	}
}

// Record captures the outcome of a run. Counts are only set when summary is not nil.
func (r *Recorder) Record(status models.RunStatus, summary *models.Summary, finished time.Time) {
	for _, s := range terminalStatuses {
		value := 0.0
		if s == status {
			value = 1
		}
		r.status.WithLabelValues(string(s)).Set(value)
	}
	r.finished.Set(float64(finished.Unix()))

	if summary == nil {
		return
	}

	r.files.WithLabelValues("old").Set(float64(summary.TotalOldFiles))
	r.files.WithLabelValues("new").Set(float64(summary.TotalNewFiles))

	r.results.WithLabelValues("changed").Set(float64(summary.ChangedCount))
	r.results.WithLabelValues("added").Set(float64(summary.AddedCount))
	r.results.WithLabelValues("deleted").Set(float64(summary.DeletedCount))
	r.results.WithLabelValues("zero_byte").Set(float64(summary.ZeroByteCount))

	r.pointerFailures.Set(float64(len(summary.PointerFailures)))
	r.duration.Set(summary.Duration.Seconds())
}

// WriteFile atomically replaces path with the current metrics
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
