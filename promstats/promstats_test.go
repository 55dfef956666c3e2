// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promstats

import (
	"strings"
	"testing"

	"code.hybscloud.com/streamq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct{ s streamq.ExecutorStats }

func (f fakeExecutor) Stats() streamq.ExecutorStats { return f.s }

type fakeQueue struct {
	s  streamq.BufferQueueStats
	st streamq.BufferQueueState
}

func (f fakeQueue) Stats() streamq.BufferQueueStats { return f.s }
func (f fakeQueue) State() streamq.BufferQueueState { return f.st }

func TestCollectorRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := New(registry)
	require.NoError(t, err)
	require.NotNil(t, c)

	// A second collector with the same descriptors is a duplicate
	_, err = New(registry)
	assert.Error(t, err)
}

func TestCollectorExecutor(t *testing.T) {
	c := NewCollector()
	c.AddExecutor("commands", fakeExecutor{s: streamq.ExecutorStats{
		Capacity:          15,
		Workers:           2,
		Queued:            3,
		Submitted:         10,
		Completed:         7,
		Panicked:          1,
		Rejected:          2,
		ShutdownRequested: true,
	}})

	assert.Equal(t, 10, testutil.CollectAndCount(c))

	expected := `
# HELP streamq_executor_submitted_total Total number of tasks accepted
# TYPE streamq_executor_submitted_total counter
streamq_executor_submitted_total{executor="commands"} 10
# HELP streamq_executor_queued_tasks Tasks waiting for a worker
# TYPE streamq_executor_queued_tasks gauge
streamq_executor_queued_tasks{executor="commands"} 3
# HELP streamq_executor_shutdown_requested 1 once shutdown has been requested
# TYPE streamq_executor_shutdown_requested gauge
streamq_executor_shutdown_requested{executor="commands"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"streamq_executor_submitted_total",
		"streamq_executor_queued_tasks",
		"streamq_executor_shutdown_requested")
	assert.NoError(t, err)
}

func TestCollectorBufferQueue(t *testing.T) {
	c := NewCollector()
	c.AddBufferQueue("player0", fakeQueue{
		s:  streamq.BufferQueueStats{Enqueued: 5, Retired: 4, BytesDelivered: 4096, Starvations: 2},
		st: streamq.BufferQueueState{Count: 1, Index: 4},
	})

	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP streamq_bufferqueue_delivered_bytes_total Total bytes copied out by pulls
# TYPE streamq_bufferqueue_delivered_bytes_total counter
streamq_bufferqueue_delivered_bytes_total{queue="player0"} 4096
# HELP streamq_bufferqueue_index Buffers retired since creation or the last clear
# TYPE streamq_bufferqueue_index gauge
streamq_bufferqueue_index{queue="player0"} 4
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"streamq_bufferqueue_delivered_bytes_total",
		"streamq_bufferqueue_index")
	assert.NoError(t, err)
}

func TestCollectorLiveComponents(t *testing.T) {
	ex, err := streamq.NewExecutor(4, 1)
	require.NoError(t, err)
	q, err := streamq.NewBufferQueue(2)
	require.NoError(t, err)

	c := NewCollector()
	c.AddExecutor("ex", ex)
	c.AddBufferQueue("bq", q)

	require.NoError(t, q.Enqueue(nil, []byte("abcd")))
	assert.Equal(t, 4, q.Pull(make([]byte, 8)))
	q.Close()
	ex.Shutdown()

	assert.Equal(t, 17, testutil.CollectAndCount(c))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "streamq_bufferqueue_retired_total"))

	c.Remove("ex")
	c.Remove("bq")
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}
