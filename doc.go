// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package streamq provides the asynchronous execution and streaming buffer
// engine that sits between client-facing media API calls and the goroutines
// that perform the work.
//
// The package has three parts:
//
//   - Executor: a fixed worker pool draining a bounded FIFO of deferred tasks
//   - BufferQueue: a circular queue of caller-supplied buffers, consumed in
//     arbitrary-sized pulls with partial-consumption tracking
//   - Guard: an in-flight callback counter that blocks teardown until
//     callbacks running on foreign goroutines have drained
//
// # Quick Start
//
//	ex, err := streamq.NewExecutor(16, 2)
//	if err != nil {
//	    return err
//	}
//	defer ex.Shutdown()
//
//	bq, err := streamq.NewBufferQueue(8)
//	if err != nil {
//	    return err
//	}
//	defer bq.Close()
//
// Builder API:
//
//	ex, err := streamq.New(16).Workers(4).Logger(log).BuildExecutor()
//	bq, err := streamq.New(8).Listener(player).BuildBufferQueue()
//
// # Deferred Tasks
//
// A [Task] binds one of three handler shapes to two opaque context values
// and zero, one or two integers:
//
//	KindPP   handler(c1, c2)
//	KindPPI  handler(c1, c2, p1)
//	KindPPII handler(c1, c2, p1, p2)
//
// Submit blocks while the queue is full; TrySubmit returns [ErrQueueFull]
// instead; SubmitContext gives up when its context is done:
//
//	err := ex.SubmitPPI(func(c1, c2 any, p1 int) {
//	    c1.(*Player).Seek(p1)
//	}, player, nil, 1500)
//
// Workers run handlers without holding the queue lock, so handlers may
// submit further tasks. Shutdown rejects new work, runs what is already
// queued, and joins every worker:
//
//	ex.Shutdown() // all queued tasks have run
//
// # Streaming Buffers
//
// The application enqueues whole buffers; the playback side pulls any
// amount. A buffer stays at the front until every byte of it has been
// delivered, then it retires and the registered [Callback] fires:
//
//	bq.RegisterCallback(func(q *streamq.BufferQueue, _ any, ev streamq.Processed) {
//	    refill(q, ev.Data) // may call q.Enqueue
//	}, nil)
//
//	bq.Enqueue(nil, chunk)          // 100 bytes
//	n := bq.Pull(make([]byte, 40))  // 40, buffer stays at front
//	n = bq.Pull(make([]byte, 70))   // 60, buffer retires, callback fires
//
// An empty queue is starvation, not an error: Pull returns 0 and calls
// [Listener.OnStarved]. Playback is not paused.
//
// The playback side should hold a [Source] rather than the queue itself.
// A Source does not keep the queue alive and returns 0 after Close:
//
//	src := bq.Source()
//	go player.Run(src) // player calls src.Pull from its own goroutine
//
// To pull on an executor worker instead of the caller:
//
//	bq.PullAsync(ex, dst, func(n int) { player.Deliver(dst[:n]) })
//
// # Callback Safety
//
// A [Guard] is owned by the object it protects. Callbacks arriving on
// foreign goroutines bracket their work with Enter and Exit; teardown calls
// RequestExitAndWait before releasing state:
//
//	if !g.Enter() {
//	    return // object is going away
//	}
//	defer g.Exit()
//
// [Handle] pairs a Guard with a weak pointer so that a pending callback
// neither keeps the object alive nor races its destruction. BufferQueue uses
// a Guard for every Pull and a Handle for every Source.
//
// # Error Handling
//
// Errors are sentinels checked with errors.Is:
//
//	ErrInvalidParameter  nil handler, empty buffer, capacity or workers <= 0
//	ErrQueueFull         no free slot (non-blocking paths only)
//	ErrRejected          task submitted after Shutdown
//	ErrClosed            buffer queue used after Close
//	ErrUnsupported       unsupported callback event mask
//
// [ErrQueueFull] wraps [code.hybscloud.com/iox.ErrWouldBlock] and is
// classified by [IsWouldBlock], [IsSemantic] and [IsNonFailure] as a
// control flow signal:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := bq.Enqueue(nil, chunk)
//	    if !streamq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// Invariant violations (Guard.Exit without Enter) panic.
//
// # Thread Safety
//
// Every method of Executor, BufferQueue and Guard is safe for concurrent
// use. Each object has exactly one lock covering its mutable state, and no
// lock is held while a handler, Listener or Callback runs.
//
// Calls that block: Submit (queue full), SubmitContext (until ctx is done),
// Shutdown (until workers exit), Guard.RequestExitAndWait and
// BufferQueue.Close (until callbacks drain). Enqueue, Pull and TrySubmit
// never block.
//
// # Logging
//
// Components log through log/slog. Pass a logger with [WithLogger] or
// [Builder.Logger]; the default discards everything.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// [code.hybscloud.com/atomix] for statistics counters.
package streamq
