package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for executed statements.
const (
	OutcomeSuccess    = "success"
	OutcomeConnection = "connection_error"
	OutcomeDatabase   = "database_error"
	OutcomeUnknown    = "unknown_error"
)

type execKey struct {
	op      string
	outcome string
}

// Collector counts connection lifecycle events and executions. All methods
// are safe on a nil *Collector so callers can leave metrics unwired.
type Collector struct {
	driver string

	opens        atomic.Uint64
	openFailures atomic.Uint64
	closes       atomic.Uint64

	mu         sync.Mutex
	executions map[execKey]uint64

	opensDesc        *prometheus.Desc
	openFailuresDesc *prometheus.Desc
	closesDesc       *prometheus.Desc
	executionsDesc   *prometheus.Desc
}

func NewCollector(driver string) *Collector {
	constLabels := prometheus.Labels{"driver": driver}
	return &Collector{
		driver:     driver,
		executions: make(map[execKey]uint64),
		opensDesc: prometheus.NewDesc(
			"sqlconnector_connections_opened_total",
			"Number of database sessions opened successfully",
			nil,
			constLabels,
		),
		openFailuresDesc: prometheus.NewDesc(
			"sqlconnector_connection_open_failures_total",
			"Number of failed attempts to open a database session",
			nil,
			constLabels,
		),
		closesDesc: prometheus.NewDesc(
			"sqlconnector_connections_closed_total",
			"Number of database sessions released",
			nil,
			constLabels,
		),
		executionsDesc: prometheus.NewDesc(
			"sqlconnector_executions_total",
			"Number of executed statements by operation and outcome",
			[]string{"op", "outcome"},
			constLabels,
		),
	}
}

func (c *Collector) RecordOpen(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.openFailures.Add(1)
		return
	}
	c.opens.Add(1)
}

func (c *Collector) RecordClose() {
	if c == nil {
		return
	}
	c.closes.Add(1)
}

func (c *Collector) RecordExecution(op, outcome string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.executions[execKey{op: op, outcome: outcome}]++
	c.mu.Unlock()
}

// Open returns the number of live sessions: opened minus closed.
func (c *Collector) Open() int64 {
	if c == nil {
		return 0
	}
	return int64(c.opens.Load()) - int64(c.closes.Load())
}

func (c *Collector) Executions(op, outcome string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executions[execKey{op: op, outcome: outcome}]
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.opensDesc
	ch <- c.openFailuresDesc
	ch <- c.closesDesc
	ch <- c.executionsDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.opensDesc, prometheus.CounterValue, float64(c.opens.Load()))
	ch <- prometheus.MustNewConstMetric(c.openFailuresDesc, prometheus.CounterValue, float64(c.openFailures.Load()))
	ch <- prometheus.MustNewConstMetric(c.closesDesc, prometheus.CounterValue, float64(c.closes.Load()))

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.executions {
		ch <- prometheus.MustNewConstMetric(c.executionsDesc, prometheus.CounterValue, float64(v), k.op, k.outcome)
	}
}
