// Package metrics records per-stage scan metrics on a private Prometheus
// registry and can dump them in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/michelemendel/haintsec/internal/scan"
)

// Recorder holds the scan metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageOutcome  *prometheus.GaugeVec
	findings      *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "haintsec_stage_duration_seconds",
				Help: "Wall-clock duration of each scan stage",
			},
			[]string{"stage"},
		),
		stageOutcome: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "haintsec_stage_outcome",
				Help: "Outcome of each scan stage (always 1, see labels)",
			},
			[]string{"stage", "status", "reason"},
		),
		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "haintsec_findings",
				Help: "Number of findings reported by each scan stage",
			},
			[]string{"stage"},
		),
	}

	for _, c := range []prometheus.Collector{r.stageDuration, r.stageOutcome, r.findings} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// Observe records every stage of o.
func (r *Recorder) Observe(o scan.Outcomes) {
	for _, s := range o.Summaries() {
		stage := string(s.Stage)
		r.stageDuration.WithLabelValues(stage).Set(s.Elapsed.Seconds())
		r.stageOutcome.WithLabelValues(stage, string(s.Status), string(s.Reason)).Set(1)
		r.findings.WithLabelValues(stage).Set(float64(s.Findings))
	}
}

// WriteTextfile writes the metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
