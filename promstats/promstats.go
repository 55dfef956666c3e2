// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package promstats exports streamq executor and buffer queue statistics
// as Prometheus metrics.
//
// Metrics are read from Stats snapshots at scrape time; nothing is
// recorded on the hot path.
//
//	reg := prometheus.NewRegistry()
//	c, err := promstats.New(reg)
//	c.AddExecutor("commands", ex)
//	c.AddBufferQueue("player0", bq)
package promstats

import (
	"sync"

	"code.hybscloud.com/streamq"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streamq"

// ExecutorSource is implemented by [streamq.Executor].
type ExecutorSource interface {
	Stats() streamq.ExecutorStats
}

// BufferQueueSource is implemented by [streamq.BufferQueue].
type BufferQueueSource interface {
	Stats() streamq.BufferQueueStats
	State() streamq.BufferQueueState
}

// Collector is a prometheus.Collector over named executors and buffer
// queues.
type Collector struct {
	mu        sync.Mutex
	executors map[string]ExecutorSource
	queues    map[string]BufferQueueSource

	// Executor descriptors
	execCapacity   *prometheus.Desc
	execWorkers    *prometheus.Desc
	execQueued     *prometheus.Desc
	execWaiting    *prometheus.Desc
	execIdle       *prometheus.Desc
	execSubmitted  *prometheus.Desc
	execCompleted  *prometheus.Desc
	execPanicked   *prometheus.Desc
	execRejected   *prometheus.Desc
	execShutdown   *prometheus.Desc

	// Buffer queue descriptors
	bqCount       *prometheus.Desc
	bqIndex       *prometheus.Desc
	bqEnqueued    *prometheus.Desc
	bqRejected    *prometheus.Desc
	bqRetired     *prometheus.Desc
	bqBytes       *prometheus.Desc
	bqStarvations *prometheus.Desc
}

// New creates a Collector and registers it with registry.
func New(registry *prometheus.Registry) (*Collector, error) {
	c := NewCollector()
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCollector creates an unregistered Collector.
func NewCollector() *Collector {
	exec := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "executor", name), help, []string{"executor"}, nil)
	}
	bq := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "bufferqueue", name), help, []string{"queue"}, nil)
	}
	return &Collector{
		executors: make(map[string]ExecutorSource),
		queues:    make(map[string]BufferQueueSource),

		execCapacity:  exec("capacity", "Maximum number of queued tasks"),
		execWorkers:   exec("workers", "Number of worker goroutines"),
		execQueued:    exec("queued_tasks", "Tasks waiting for a worker"),
		execWaiting:   exec("waiting_producers", "Submit calls blocked on a full queue"),
		execIdle:      exec("idle_workers", "Workers blocked on an empty queue"),
		execSubmitted: exec("submitted_total", "Total number of tasks accepted"),
		execCompleted: exec("completed_total", "Total number of handlers that returned normally"),
		execPanicked:  exec("panicked_total", "Total number of handlers that panicked"),
		execRejected:  exec("rejected_total", "Total number of submissions refused after shutdown"),
		execShutdown:  exec("shutdown_requested", "1 once shutdown has been requested"),

		bqCount:       bq("buffers", "Buffers enqueued and not yet fully consumed"),
		bqIndex:       bq("index", "Buffers retired since creation or the last clear"),
		bqEnqueued:    bq("enqueued_total", "Total number of buffers enqueued"),
		bqRejected:    bq("rejected_total", "Total number of enqueue attempts on a full queue"),
		bqRetired:     bq("retired_total", "Total number of buffers fully consumed"),
		bqBytes:       bq("delivered_bytes_total", "Total bytes copied out by pulls"),
		bqStarvations: bq("starvations_total", "Total number of pulls that found the queue empty"),
	}
}

// AddExecutor exports ex under name, replacing any executor with the same name.
func (c *Collector) AddExecutor(name string, ex ExecutorSource) {
	c.mu.Lock()
	c.executors[name] = ex
	c.mu.Unlock()
}

// AddBufferQueue exports q under name, replacing any queue with the same name.
func (c *Collector) AddBufferQueue(name string, q BufferQueueSource) {
	c.mu.Lock()
	c.queues[name] = q
	c.mu.Unlock()
}

// Remove stops exporting the executor and buffer queue named name.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.executors, name)
	delete(c.queues, name)
	c.mu.Unlock()
}

// Describe implements the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.execCapacity, c.execWorkers, c.execQueued, c.execWaiting, c.execIdle,
		c.execSubmitted, c.execCompleted, c.execPanicked, c.execRejected, c.execShutdown,
		c.bqCount, c.bqIndex, c.bqEnqueued, c.bqRejected, c.bqRetired, c.bqBytes, c.bqStarvations,
	} {
		ch <- d
	}
}

// Collect implements the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	executors := make(map[string]ExecutorSource, len(c.executors))
	for k, v := range c.executors {
		executors[k] = v
	}
	queues := make(map[string]BufferQueueSource, len(c.queues))
	for k, v := range c.queues {
		queues[k] = v
	}
	c.mu.Unlock()

	gauge := func(d *prometheus.Desc, v float64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, label)
	}
	counter := func(d *prometheus.Desc, v int64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
	}

	for name, ex := range executors {
		s := ex.Stats()
		gauge(c.execCapacity, float64(s.Capacity), name)
		gauge(c.execWorkers, float64(s.Workers), name)
		gauge(c.execQueued, float64(s.Queued), name)
		gauge(c.execWaiting, float64(s.WaitingProducers), name)
		gauge(c.execIdle, float64(s.IdleWorkers), name)
		counter(c.execSubmitted, s.Submitted, name)
		counter(c.execCompleted, s.Completed, name)
		counter(c.execPanicked, s.Panicked, name)
		counter(c.execRejected, s.Rejected, name)
		shutdown := 0.0
		if s.ShutdownRequested {
			shutdown = 1
		}
		gauge(c.execShutdown, shutdown, name)
	}

	for name, q := range queues {
		st := q.State()
		s := q.Stats()
		gauge(c.bqCount, float64(st.Count), name)
		gauge(c.bqIndex, float64(st.Index), name)
		counter(c.bqEnqueued, s.Enqueued, name)
		counter(c.bqRejected, s.Rejected, name)
		counter(c.bqRetired, s.Retired, name)
		counter(c.bqBytes, s.BytesDelivered, name)
		counter(c.bqStarvations, s.Starvations, name)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
