// Package metrics exports migration reports as Prometheus metrics.
//
// A Collector holds gauges for the latest Summary and Validate reports.
// Register it with a registry served over HTTP, or write a node_exporter
// textfile after a CLI run:
//
//	c := metrics.New("")
//	c.ObserveSummary(report)
//	_ = c.WriteTextfile("/var/lib/node_exporter/hive.prom")
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/honeynil/hive"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "hive"

// statuses are the label values of the migrations gauge.
var statuses = []string{"pending", "applied", "failed", "skipped", "drifted"}

// Collector holds the migration gauges.
type Collector struct {
	registry *prometheus.Registry

	migrations       *prometheus.GaugeVec
	validationOK     prometheus.Gauge
	validationErrors prometheus.Gauge
	validationWarns  prometheus.Gauge
	lastRun          prometheus.Gauge

	now func() time.Time
}

// New creates a Collector with its own registry. An empty namespace uses
// DefaultNamespace.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		migrations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "migrations",
				Help:      "Number of migrations per module and tracked status",
			},
			[]string{"module", "status"},
		),
		validationOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_success",
			Help:      "1 if the last validation passed, 0 otherwise",
		}),
		validationErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_errors",
			Help:      "Number of errors reported by the last validation",
		}),
		validationWarns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_warnings",
			Help:      "Number of warnings reported by the last validation",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last observed report",
		}),
		now: time.Now,
	}

	c.registry.MustRegister(c.migrations, c.validationOK, c.validationErrors, c.validationWarns, c.lastRun)
	return c
}

// Registry returns the registry holding the collector's gauges.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Register adds the gauges to another registerer, e.g.
// prometheus.DefaultRegisterer.
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.migrations, c.validationOK, c.validationErrors, c.validationWarns, c.lastRun} {
		if err := r.Register(col); err != nil {
			return fmt.Errorf("register hive metrics: %w", err)
		}
	}
	return nil
}

// ObserveSummary replaces the per-module gauges with report. Modules that
// disappeared since the previous report are dropped.
func (c *Collector) ObserveSummary(report *hive.SummaryReport) {
	c.migrations.Reset()
	if report == nil {
		return
	}

	modules := make([]string, 0, len(report.Modules))
	for m := range report.Modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	for _, m := range modules {
		counts := report.Modules[m]
		values := []int{counts.Pending, counts.Applied, counts.Failed, counts.Skipped, counts.Drifted}
		for i, status := range statuses {
			c.migrations.WithLabelValues(m, status).Set(float64(values[i]))
		}
	}
	c.lastRun.Set(float64(c.now().Unix()))
}

// ObserveValidation records the outcome of a validation pass.
func (c *Collector) ObserveValidation(report *hive.ValidationReport) {
	if report == nil {
		return
	}
	if report.Success {
		c.validationOK.Set(1)
	} else {
		c.validationOK.Set(0)
	}
	c.validationErrors.Set(float64(len(report.Errors)))
	c.validationWarns.Set(float64(len(report.Warnings)))
	c.lastRun.Set(float64(c.now().Unix()))
}
