// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import "context"

// Submitter is the producer side of an [Executor].
//
// Command handlers depend on Submitter rather than *Executor so that a
// request can be deferred to a worker or, in tests, run inline.
type Submitter interface {
	// Submit enqueues t, blocking while the queue is full.
	// Returns ErrRejected once shutdown has been requested.
	Submit(t Task) error

	// SubmitContext is Submit with a cancellable wait for a free slot.
	SubmitContext(ctx context.Context, t Task) error

	// TrySubmit enqueues t without blocking.
	// Returns ErrQueueFull if no slot is free.
	TrySubmit(t Task) error
}

// Puller is the data-request entry point exposed to the playback side.
//
// Pull copies up to len(dst) bytes into dst and returns the count.
// Zero means starvation (or a closed queue) and is not an error.
type Puller interface {
	Pull(dst []byte) int
}

// Listener receives the player-side notifications of a buffer queue.
//
// Both methods are called on the pulling goroutine, outside the queue
// lock, and must not block for long.
type Listener interface {
	// OnData reports that n bytes were just delivered by a Pull.
	OnData(n int)

	// OnStarved reports a Pull that found the queue empty. Playback is
	// not paused; the player may keep presenting delivered data.
	OnStarved()
}

// ListenerFuncs adapts plain functions to [Listener]. Nil fields are
// skipped.
type ListenerFuncs struct {
	Data    func(n int)
	Starved func()
}

// OnData calls f.Data if set.
func (f ListenerFuncs) OnData(n int) {
	if f.Data != nil {
		f.Data(n)
	}
}

// OnStarved calls f.Starved if set.
func (f ListenerFuncs) OnStarved() {
	if f.Starved != nil {
		f.Starved()
	}
}

var (
	_ Submitter = (*Executor)(nil)
	_ Puller    = (*BufferQueue)(nil)
	_ Puller    = Source{}
	_ Listener  = ListenerFuncs{}
)

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
