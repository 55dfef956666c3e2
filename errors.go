// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

var (
	// ErrInvalidParameter reports a missing handler, empty buffer, or a
	// non-positive capacity or worker count. Never retried internally.
	ErrInvalidParameter = errors.New("streamq: invalid parameter")

	// ErrQueueFull indicates a non-blocking insert found no free slot.
	//
	// ErrQueueFull wraps [iox.ErrWouldBlock]: it is backpressure, not a
	// failure. The caller decides whether to retry or drop.
	//
	//	backoff := iox.Backoff{}
	//	for {
	//	    err := q.Enqueue(nil, chunk)
	//	    if !streamq.IsWouldBlock(err) {
	//	        return err
	//	    }
	//	    backoff.Wait()
	//	}
	ErrQueueFull = fmt.Errorf("streamq: queue full: %w", iox.ErrWouldBlock)

	// ErrRejected reports that a task was submitted after Shutdown was
	// requested. The task was not enqueued and will never run.
	ErrRejected = errors.New("streamq: executor shut down")

	// ErrClosed reports an operation on a buffer queue after Close.
	ErrClosed = errors.New("streamq: buffer queue closed")

	// ErrUnsupported reports a callback event mask other than
	// EventNone or EventProcessed.
	ErrUnsupported = errors.New("streamq: unsupported feature")
)

// IsWouldBlock reports whether err indicates the operation would block.
// True for [ErrQueueFull] and anything wrapping [iox.ErrWouldBlock].
func IsWouldBlock(err error) bool {
	return errors.Is(err, iox.ErrWouldBlock) || iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Wrapped would-block errors count; everything else delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return IsWouldBlock(err) || iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil and [ErrQueueFull].
// Everything else delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return err == nil || IsWouldBlock(err) || iox.IsNonFailure(err)
}
