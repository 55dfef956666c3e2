// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

// Source is the handle a [BufferQueue] gives to the playback side.
//
// A Source does not keep the queue alive. Pull returns 0 once the queue has
// been closed or collected, so a player may keep calling it from its own
// goroutine while the application tears the queue down. The zero Source
// always returns 0.
type Source struct {
	h Handle[BufferQueue]
}

// Source returns a non-owning pull handle for q.
func (q *BufferQueue) Source() Source {
	return Source{h: NewHandle(q, q.guard)}
}

// Pull behaves like [BufferQueue.Pull] while the queue is alive and open.
func (s Source) Pull(dst []byte) int {
	var n int
	s.h.Do(func(q *BufferQueue) {
		n = q.pull(dst)
	})
	return n
}
