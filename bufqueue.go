// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import (
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/streamq/internal/ring"
)

// EventFlags selects which buffer queue events fire the application
// [Callback].
type EventFlags uint32

const (
	// EventNone disables the application callback.
	EventNone EventFlags = 0
	// EventProcessed fires the callback when a buffer has been fully consumed.
	EventProcessed EventFlags = 1 << 0
)

// ItemKey identifies an event item attached to a notification.
type ItemKey uint32

// ItemKeyNone is the only item key produced; discontinuity and
// end-of-stream items are reserved.
const ItemKeyNone ItemKey = 0

// Item is an event item attached to a [Processed] notification.
type Item struct {
	Key  ItemKey
	Data []byte
}

// Processed describes a retired buffer.
//
// A buffer is retired only once every byte has been delivered, so Used
// always equals Size.
type Processed struct {
	BufferContext any    // Value passed to Enqueue with the buffer
	Data          []byte // The buffer passed to Enqueue
	Size          int    // len(Data)
	Used          int    // Bytes delivered from the buffer
	Items         []Item // Always empty
}

// Callback is the application notification fired after a buffer retires.
//
// It runs on the pulling goroutine with no queue lock held, so it may call
// Enqueue (or any other method except Close) on q.
type Callback func(q *BufferQueue, ctx any, ev Processed)

// BufferQueueState is the (count, index) pair of a [BufferQueue].
type BufferQueueState struct {
	Count int    // Buffers enqueued and not yet fully consumed
	Index uint64 // Buffers retired since creation or the last Clear
}

// BufferQueueStats are the cumulative counters of a [BufferQueue].
type BufferQueueStats struct {
	Enqueued       int64 // Successful Enqueue calls
	Rejected       int64 // Enqueue calls that found the queue full
	Retired        int64 // Buffers fully consumed
	BytesDelivered int64 // Bytes copied out by Pull
	Starvations    int64 // Pulls that found the queue empty
}

// descriptor is one caller-supplied buffer and how much of it is consumed.
// Invariant: 0 <= consumed < len(data) while enqueued.
type descriptor struct {
	ctx      any
	data     []byte
	consumed int
}

// BufferQueue streams caller-supplied byte buffers to a pulling consumer.
//
// The application enqueues whole buffers; the playback side pulls
// arbitrary amounts. Only the front buffer is ever partially consumed, and
// it is retired (and the application told) only when every byte of it has
// been delivered. Buffers retire in FIFO order.
//
// Enqueue and Pull never block: Enqueue fails fast with ErrQueueFull, Pull
// returns a short count or 0. One mutex guards all queue state and is never
// held while calling the Listener or the Callback.
//
// Pulls are bracketed by the queue's [Guard]; Close waits for in-flight
// pulls and their callbacks before releasing the queue.
type BufferQueue struct {
	mu       sync.Mutex
	bufs     ring.Ring[descriptor]
	index    uint64
	callback Callback
	cbCtx    any
	mask     EventFlags
	listener Listener
	closed   bool

	guard *Guard
	log   *slog.Logger

	_           pad
	enqueued    atomix.Int64
	_           padShort
	rejected    atomix.Int64
	_           padShort
	retired     atomix.Int64
	_           padShort
	delivered   atomix.Int64
	_           padShort
	starvations atomix.Int64
	_           padShort
}

// NewBufferQueue creates a queue holding up to capacity buffers.
// Returns ErrInvalidParameter if capacity is not positive.
func NewBufferQueue(capacity int, opts ...Option) (*BufferQueue, error) {
	o := Options{capacity: capacity}
	o.apply(opts)
	return newBufferQueue(&o)
}

func newBufferQueue(o *Options) (*BufferQueue, error) {
	if o.capacity <= 0 {
		return nil, ErrInvalidParameter
	}
	o.apply(nil)

	q := &BufferQueue{
		mask:     EventProcessed,
		listener: o.listener,
		guard:    NewGuard(),
		log:      o.logger.With(slog.String("component", "bufferqueue")),
	}
	q.bufs.Init(o.capacity)
	return q, nil
}

// Enqueue appends data to the queue. bufferCtx is returned unchanged in
// the [Processed] notification for this buffer.
//
// The queue references data until the buffer retires or the queue is
// cleared; the caller must not modify it before then.
//
// Returns ErrInvalidParameter for empty data, ErrQueueFull if the queue is
// full, ErrClosed after Close.
func (q *BufferQueue) Enqueue(bufferCtx any, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidParameter
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if !q.bufs.Push(descriptor{ctx: bufferCtx, data: data}) {
		q.rejected.Add(1)
		return ErrQueueFull
	}
	q.enqueued.Add(1)
	return nil
}

// Pull copies up to len(dst) bytes from the front buffer into dst and
// returns how many were copied.
//
// If fewer bytes are requested than remain in the front buffer, exactly
// len(dst) bytes are delivered and the buffer stays at the front.
// Otherwise the rest of the front buffer is delivered (possibly fewer than
// len(dst)), the buffer retires and the registered Callback fires.
//
// An empty queue returns 0 and reports starvation to the Listener. A
// closed queue returns 0 and reports nothing.
func (q *BufferQueue) Pull(dst []byte) int {
	if !q.guard.Enter() {
		return 0
	}
	defer q.guard.Exit()
	return q.pull(dst)
}

// pull runs inside an admitted guard section.
func (q *BufferQueue) pull(dst []byte) int {
	q.mu.Lock()
	listener := q.listener
	front := q.bufs.Front()
	if front == nil {
		q.mu.Unlock()
		q.starvations.Add(1)
		q.log.Debug("buffer queue starved")
		if listener != nil {
			listener.OnStarved()
		}
		return 0
	}

	remaining := len(front.data) - front.consumed
	if len(dst) < remaining {
		n := copy(dst, front.data[front.consumed:])
		front.consumed += n
		q.mu.Unlock()
		q.notifyData(listener, n)
		return n
	}

	n := copy(dst, front.data[front.consumed:])
	front.consumed = len(front.data)
	old, _ := q.bufs.Pop()
	q.index++
	cb, cbCtx := q.callback, q.cbCtx
	if q.mask&EventProcessed == 0 {
		cb = nil
	}
	q.mu.Unlock()

	q.retired.Add(1)
	q.notifyData(listener, n)
	if cb != nil {
		cb(q, cbCtx, Processed{
			BufferContext: old.ctx,
			Data:          old.data,
			Size:          len(old.data),
			Used:          old.consumed,
		})
	}
	return n
}

func (q *BufferQueue) notifyData(l Listener, n int) {
	if n == 0 {
		return
	}
	q.delivered.Add(int64(n))
	if l != nil {
		l.OnData(n)
	}
}

// RegisterCallback replaces the application callback and its context. It
// applies to buffers retired after it returns. A nil cb removes the
// callback. Returns ErrClosed after Close.
func (q *BufferQueue) RegisterCallback(cb Callback, ctx any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.callback = cb
	q.cbCtx = ctx
	return nil
}

// SetListener replaces the player-side Listener. A nil l detaches it.
func (q *BufferQueue) SetListener(l Listener) {
	q.mu.Lock()
	q.listener = l
	q.mu.Unlock()
}

// SetCallbackEventsMask selects the events that fire the callback.
// Only EventNone and EventProcessed are supported; anything else returns
// ErrUnsupported and leaves the mask unchanged.
func (q *BufferQueue) SetCallbackEventsMask(mask EventFlags) error {
	if mask != EventNone && mask != EventProcessed {
		return ErrUnsupported
	}
	q.mu.Lock()
	q.mask = mask
	q.mu.Unlock()
	return nil
}

// CallbackEventsMask returns the current event mask.
func (q *BufferQueue) CallbackEventsMask() EventFlags {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mask
}

// Clear drops every enqueued buffer, including a partially consumed front,
// and resets the retirement index. The callback is not fired.
func (q *BufferQueue) Clear() {
	q.mu.Lock()
	q.bufs.Reset()
	q.index = 0
	q.mu.Unlock()
}

// State returns the number of enqueued buffers and the retirement index.
func (q *BufferQueue) State() BufferQueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return BufferQueueState{Count: q.bufs.Len(), Index: q.index}
}

// Cap returns the maximum number of enqueued buffers.
func (q *BufferQueue) Cap() int {
	return q.bufs.Cap()
}

// Stats returns the cumulative counters.
func (q *BufferQueue) Stats() BufferQueueStats {
	return BufferQueueStats{
		Enqueued:       q.enqueued.Load(),
		Rejected:       q.rejected.Load(),
		Retired:        q.retired.Load(),
		BytesDelivered: q.delivered.Load(),
		Starvations:    q.starvations.Load(),
	}
}

// Close tears the queue down.
//
// Enqueue and RegisterCallback fail with ErrClosed from the moment Close
// starts. Close then waits for every in-flight Pull, including the Listener
// and Callback it invokes, and releases all buffers. Pulls after Close
// return 0 without touching the queue. Close is idempotent.
//
// Close must not be called from a Listener or Callback of the same queue.
func (q *BufferQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.guard.RequestExitAndWait()

	q.mu.Lock()
	count := q.bufs.Len()
	q.bufs.Reset()
	q.callback, q.cbCtx, q.listener = nil, nil, nil
	q.mu.Unlock()
	q.log.Debug("buffer queue closed", slog.Int("dropped", count))
}

// PullAsync pulls on a worker of s instead of the calling goroutine.
//
// The pull runs through a [Source], so a queued request neither keeps q
// alive nor touches it after Close. done, if non-nil, receives the byte
// count on the worker goroutine.
func (q *BufferQueue) PullAsync(s Submitter, dst []byte, done func(n int)) error {
	if s == nil {
		return ErrInvalidParameter
	}
	return s.Submit(NewTaskPPI(pullTask, q.Source(), pullRequest{dst: dst, done: done}, len(dst)))
}

type pullRequest struct {
	dst  []byte
	done func(n int)
}

func pullTask(c1, c2 any, size int) {
	src := c1.(Source)
	req := c2.(pullRequest)
	n := src.Pull(req.dst[:size])
	if req.done != nil {
		req.done(n)
	}
}
