package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/slotgraph/internal/graph"
)

// Namespace prefixes every metric name.
const Namespace = "slotgraph"

// Collector counts context and change events.
//
// Thread-safety: Prometheus vectors are safe for concurrent use, so one
// Collector may observe contexts driven from many goroutines.
type Collector struct {
	contextsOpen    prometheus.Gauge
	contextsOpened  prometheus.Counter
	changesRecorded *prometheus.CounterVec
	changesApplied  *prometheus.CounterVec
	changesSkipped  *prometheus.CounterVec
	commitsExported prometheus.Counter
	commitSize      prometheus.Histogram
}

var _ graph.Observer = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		contextsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "contexts_open",
			Help:      "Contexts currently open, including main.",
		}),
		contextsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "contexts_opened_total",
			Help:      "Contexts opened since start.",
		}),
		changesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "changes_recorded_total",
			Help:      "Changes appended to a pending commit.",
		}, []string{"type"}),
		changesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "changes_applied_total",
			Help:      "Changes replayed by Apply.",
		}, []string{"type"}),
		changesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "changes_skipped_total",
			Help:      "Changes skipped by Apply because their node was not mapped.",
		}, []string{"type"}),
		commitsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "commits_exported_total",
			Help:      "Non-empty commits taken from a context.",
		}),
		commitSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "commit_changes",
			Help:      "Changes per exported non-empty commit.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	for _, col := range []prometheus.Collector{
		c.contextsOpen,
		c.contextsOpened,
		c.changesRecorded,
		c.changesApplied,
		c.changesSkipped,
		c.commitsExported,
		c.commitSize,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ContextOpened implements graph.Observer.
func (c *Collector) ContextOpened(int) {
	c.contextsOpen.Inc()
	c.contextsOpened.Inc()
}

// ContextClosed implements graph.Observer.
func (c *Collector) ContextClosed(int) {
	c.contextsOpen.Dec()
}

// ChangeRecorded implements graph.Observer.
func (c *Collector) ChangeRecorded(_ int, t graph.ChangeType) {
	c.changesRecorded.WithLabelValues(t.String()).Inc()
}

// CommitExported implements graph.Observer. Empty commits are not counted.
func (c *Collector) CommitExported(_ int, changes int) {
	if changes == 0 {
		return
	}
	c.commitsExported.Inc()
	c.commitSize.Observe(float64(changes))
}

// ChangeApplied implements graph.Observer.
func (c *Collector) ChangeApplied(_ int, t graph.ChangeType) {
	c.changesApplied.WithLabelValues(t.String()).Inc()
}

// ChangeSkipped implements graph.Observer.
func (c *Collector) ChangeSkipped(_ int, t graph.ChangeType) {
	c.changesSkipped.WithLabelValues(t.String()).Inc()
}
