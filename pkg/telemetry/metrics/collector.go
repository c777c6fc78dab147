package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tablint/pkg/config"
	"mercator-hq/tablint/pkg/rules/report"
)

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Collector owns the run metrics of one tablint process. Long-running
// commands (watch, schedule, batch) share one collector across runs.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	run      *RunMetrics

	cardinalityLimiter *CardinalityLimiter

	// textfileMu serialises textfile writes from concurrent batch jobs.
	textfileMu sync.Mutex
}

// NewCollector creates a collector registering into registry. If registry
// is nil a fresh registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		run:                NewRunMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}
}

// Sample is the outcome of one run.
type Sample struct {
	Status         string
	Records        int
	TypeMismatches int
	Duration       time.Duration
	FinishedAt     time.Time

	// Report is nil for failed runs.
	Report *report.Report
}

// RecordRun records a finished run.
func (c *Collector) RecordRun(s Sample) {
	if !c.config.Enabled {
		return
	}

	c.run.runsTotal.WithLabelValues(s.Status).Inc()
	c.run.runDuration.WithLabelValues(s.Status).Observe(s.Duration.Seconds())
	c.run.lastRunTimestamp.WithLabelValues(s.Status).Set(float64(s.FinishedAt.Unix()))

	if s.Status != StatusSuccess {
		return
	}

	c.run.recordsTotal.Add(float64(s.Records))
	c.run.typeMismatchesTotal.Add(float64(s.TypeMismatches))

	if s.Report == nil {
		return
	}
	for _, f := range s.Report.Fields {
		for _, r := range f.Rules {
			c.addViolations("field", f.Field, r.RuleName, len(r.ErrorIDs))
		}
	}
	for _, g := range s.Report.Groups {
		c.addViolations("group", g.Group, "", len(g.ErrorIDs))
	}
}

func (c *Collector) addViolations(scope, name, rule string, n int) {
	labelSet := fmt.Sprintf("%s:%s:%s", scope, name, rule)
	if !c.cardinalityLimiter.Allow(labelSet) {
		return
	}
	c.run.violationsTotal.WithLabelValues(scope, name, rule).Add(float64(n))
	c.run.lastViolations.WithLabelValues(scope, name, rule).Set(float64(n))
}

// WriteTextfile writes the registry to the configured textfile path for the
// node_exporter textfile collector. It is a no-op when metrics are disabled
// or no path is configured.
func (c *Collector) WriteTextfile() error {
	if !c.config.Enabled || c.config.Textfile == "" {
		return nil
	}

	c.textfileMu.Lock()
	defer c.textfileMu.Unlock()

	if err := prometheus.WriteToTextfile(c.config.Textfile, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of unique label combinations, so a
// rule document with thousands of fields cannot blow up the textfile.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be used: it is already known or the
// limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
