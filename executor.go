// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import (
	"context"
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/streamq/internal/ring"
)

// Executor is a fixed pool of worker goroutines draining a bounded FIFO of
// deferred [Task]s.
//
// Producers block in Submit while the queue is full; workers block while it
// is empty. One mutex guards the ring and the shutdown flag, with "not full"
// and "not empty" condition variables and a waiter count for each so that a
// signal is only issued when somebody waits. Handlers always run outside the
// lock, so a handler may submit further tasks.
//
// Tasks are dequeued in the order their Submit calls completed. Tasks taken
// by different workers run concurrently with no ordering between them.
//
// Memory: capacity+1 task slots, inline for capacity < 16
type Executor struct {
	mu              sync.Mutex
	notFull         sync.Cond
	notEmpty        sync.Cond
	waitingNotFull  int
	waitingNotEmpty int
	shutdown        bool
	tasks           ring.Ring[Task]

	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
	log      *slog.Logger

	_         pad
	submitted atomix.Int64
	_         padShort
	completed atomix.Int64
	_         padShort
	rejected  atomix.Int64
	_         padShort
	panicked  atomix.Int64
	_         padShort
}

// ExecutorStats is a point-in-time snapshot of an [Executor].
type ExecutorStats struct {
	Capacity          int   // Maximum queued tasks
	Workers           int   // Worker goroutines
	Queued            int   // Tasks waiting for a worker
	WaitingProducers  int   // Submit calls blocked on a full queue
	IdleWorkers       int   // Workers blocked on an empty queue
	Submitted         int64 // Tasks accepted
	Completed         int64 // Handlers that returned normally
	Panicked          int64 // Handlers that panicked
	Rejected          int64 // Submissions refused after shutdown
	ShutdownRequested bool
}

// NewExecutor creates an executor with room for capacity queued tasks and
// starts workers worker goroutines.
//
// Returns ErrInvalidParameter if capacity or workers is not positive.
// WithListener is ignored.
func NewExecutor(capacity, workers int, opts ...Option) (*Executor, error) {
	o := Options{capacity: capacity}
	o.apply(opts)
	o.workers = workers
	return newExecutor(&o)
}

func newExecutor(o *Options) (*Executor, error) {
	if o.capacity <= 0 || o.workers <= 0 {
		return nil, ErrInvalidParameter
	}
	o.apply(nil)

	ex := &Executor{
		workers: o.workers,
		log:     o.logger.With(slog.String("component", "executor")),
	}
	ex.tasks.Init(o.capacity)
	ex.notFull.L = &ex.mu
	ex.notEmpty.L = &ex.mu

	ex.wg.Add(o.workers)
	for id := range o.workers {
		go ex.worker(id)
	}
	ex.log.Debug("executor started",
		slog.Int("capacity", o.capacity),
		slog.Int("workers", o.workers),
		slog.Bool("inline_slots", ex.tasks.Inlined()))
	return ex, nil
}

// Submit enqueues t for execution by a worker.
//
// Blocks while the queue is full. Returns ErrRejected if shutdown was
// requested before or during the wait; the task is then never run.
// Returns ErrInvalidParameter for an invalid Task.
func (ex *Executor) Submit(t Task) error {
	return ex.submit(nil, t, true)
}

// SubmitContext is Submit with a cancellable wait.
//
// If ctx is done before a slot frees up, the task is not enqueued and
// ctx.Err() is returned. Once enqueued, a task is not affected by ctx.
func (ex *Executor) SubmitContext(ctx context.Context, t Task) error {
	if ctx.Done() == nil {
		return ex.submit(nil, t, true)
	}
	stop := context.AfterFunc(ctx, func() {
		ex.mu.Lock()
		ex.notFull.Broadcast()
		ex.mu.Unlock()
	})
	defer stop()
	return ex.submit(ctx, t, true)
}

// TrySubmit enqueues t without blocking.
// Returns ErrQueueFull if the queue is full.
func (ex *Executor) TrySubmit(t Task) error {
	return ex.submit(nil, t, false)
}

// SubmitPP is Submit(NewTaskPP(h, c1, c2)).
func (ex *Executor) SubmitPP(h HandlerPP, c1, c2 any) error {
	return ex.Submit(NewTaskPP(h, c1, c2))
}

// SubmitPPI is Submit(NewTaskPPI(h, c1, c2, p1)).
func (ex *Executor) SubmitPPI(h HandlerPPI, c1, c2 any, p1 int) error {
	return ex.Submit(NewTaskPPI(h, c1, c2, p1))
}

// SubmitPPII is Submit(NewTaskPPII(h, c1, c2, p1, p2)).
func (ex *Executor) SubmitPPII(h HandlerPPII, c1, c2 any, p1, p2 int) error {
	return ex.Submit(NewTaskPPII(h, c1, c2, p1, p2))
}

func (ex *Executor) submit(ctx context.Context, t Task, block bool) error {
	if !t.Valid() {
		return ErrInvalidParameter
	}

	ex.mu.Lock()
	for ex.tasks.Full() && !ex.shutdown {
		if !block {
			ex.mu.Unlock()
			return ErrQueueFull
		}
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				ex.handOffNotFull()
				ex.mu.Unlock()
				return err
			}
		}
		ex.waitingNotFull++
		ex.notFull.Wait()
		ex.waitingNotFull--
	}
	if ex.shutdown {
		ex.rejected.Add(1)
		ex.mu.Unlock()
		return ErrRejected
	}

	ex.tasks.Push(t)
	ex.submitted.Add(1)
	if ex.waitingNotEmpty > 0 {
		ex.notEmpty.Signal()
	}
	ex.mu.Unlock()
	return nil
}

// handOffNotFull passes a "not full" wakeup on to another producer when a
// cancelled waiter abandons a slot it may have been signalled for.
// Caller holds ex.mu.
func (ex *Executor) handOffNotFull() {
	if ex.waitingNotFull > 0 && !ex.tasks.Full() {
		ex.notFull.Signal()
	}
}

func (ex *Executor) worker(id int) {
	defer ex.wg.Done()
	for {
		ex.mu.Lock()
		for ex.tasks.Empty() && !ex.shutdown {
			ex.waitingNotEmpty++
			ex.notEmpty.Wait()
			ex.waitingNotEmpty--
		}
		// Empty here implies shutdown: queued tasks are drained first.
		t, ok := ex.tasks.Pop()
		if !ok {
			ex.mu.Unlock()
			return
		}
		if ex.waitingNotFull > 0 {
			ex.notFull.Signal()
		}
		ex.mu.Unlock()

		ex.run(id, t)
	}
}

func (ex *Executor) run(id int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			ex.panicked.Add(1)
			ex.log.Error("task panicked",
				slog.Int("worker", id),
				slog.String("kind", t.Kind().String()),
				slog.Any("panic", r))
		}
	}()
	t.Run()
	ex.completed.Add(1)
}

// Shutdown stops the executor.
//
// New submissions are rejected, blocked producers return ErrRejected, and
// Shutdown returns once every worker has exited. Tasks already queued are
// executed before the workers exit. Calling Shutdown again is a no-op
// that still waits for the first call to finish.
//
// Shutdown must not be called from a task handler.
func (ex *Executor) Shutdown() {
	ex.stopOnce.Do(func() {
		ex.mu.Lock()
		ex.shutdown = true
		ex.notEmpty.Broadcast()
		ex.notFull.Broadcast()
		ex.mu.Unlock()

		ex.wg.Wait()

		ex.mu.Lock()
		ex.tasks.Reset()
		ex.mu.Unlock()
		ex.log.Debug("executor stopped",
			slog.Int64("completed", ex.completed.Load()),
			slog.Int64("rejected", ex.rejected.Load()))
	})
}

// Cap returns the maximum number of queued tasks.
func (ex *Executor) Cap() int {
	return ex.tasks.Cap()
}

// Workers returns the number of worker goroutines.
func (ex *Executor) Workers() int {
	return ex.workers
}

// Stats returns a snapshot of the executor state and counters.
func (ex *Executor) Stats() ExecutorStats {
	ex.mu.Lock()
	s := ExecutorStats{
		Capacity:          ex.tasks.Cap(),
		Workers:           ex.workers,
		Queued:            ex.tasks.Len(),
		WaitingProducers:  ex.waitingNotFull,
		IdleWorkers:       ex.waitingNotEmpty,
		ShutdownRequested: ex.shutdown,
	}
	ex.mu.Unlock()
	s.Submitted = ex.submitted.Load()
	s.Completed = ex.completed.Load()
	s.Panicked = ex.panicked.Load()
	s.Rejected = ex.rejected.Load()
	return s
}

// Inline is a [Submitter] that runs every task immediately on the calling
// goroutine. Command handlers use it where a request must complete
// synchronously.
type Inline struct{}

// Submit runs t and returns nil, or ErrInvalidParameter for an invalid Task.
func (Inline) Submit(t Task) error {
	if !t.Valid() {
		return ErrInvalidParameter
	}
	t.Run()
	return nil
}

// SubmitContext runs t unless ctx is already done.
func (i Inline) SubmitContext(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.Submit(t)
}

// TrySubmit runs t.
func (i Inline) TrySubmit(t Task) error {
	return i.Submit(t)
}

var _ Submitter = Inline{}
