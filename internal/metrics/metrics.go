// Package metrics records run counters and writes them as a node exporter
// textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters of one process. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry
	planned  *prometheus.GaugeVec
	items    *prometheus.CounterVec
	sections *prometheus.CounterVec
	duration *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		planned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clonectl_planned_items",
			Help: "Mutating plan items of the last run, by phase.",
		}, []string{"target", "phase"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clonectl_items_total",
			Help: "Executed plan items by phase and outcome.",
		}, []string{"target", "phase", "outcome"}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clonectl_sections_total",
			Help: "Snapshot sections by outcome.",
		}, []string{"target", "outcome"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clonectl_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"target", "command"}),
	}
	r.registry.MustRegister(r.planned, r.items, r.sections, r.duration)
	return r
}

func (r *Recorder) Planned(target, phase string, n int) {
	if r == nil {
		return
	}
	r.planned.WithLabelValues(target, phase).Set(float64(n))
}

func (r *Recorder) Item(target, phase, outcome string) {
	if r == nil {
		return
	}
	r.items.WithLabelValues(target, phase, outcome).Inc()
}

func (r *Recorder) Section(target, outcome string) {
	if r == nil {
		return
	}
	r.sections.WithLabelValues(target, outcome).Inc()
}

func (r *Recorder) Duration(target, command string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(target, command).Set(d.Seconds())
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile writes every metric to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
