// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import (
	"sync"
	"weak"
)

// Guard makes callback delivery from foreign goroutines safe to race
// against the teardown of the object the callback touches.
//
// Each callback brackets its work with Enter and Exit. Teardown calls
// RequestExitAndWait before releasing anything a callback may use: after
// it returns no callback is running and none can start.
//
//	func (p *player) onEvent(ev event) {
//	    if !p.guard.Enter() {
//	        return // p is being torn down
//	    }
//	    defer p.guard.Exit()
//	    p.handle(ev)
//	}
//
//	func (p *player) Close() {
//	    p.guard.RequestExitAndWait()
//	    p.release()
//	}
//
// The zero Guard is ready to use. A Guard must not be copied after first use.
type Guard struct {
	mu       sync.Mutex
	drained  sync.Cond
	closed   bool
	inFlight int
}

// NewGuard returns a Guard that admits callbacks.
func NewGuard() *Guard {
	return &Guard{}
}

// EnterIfOK is Enter on a possibly nil Guard. A nil Guard admits nothing.
func EnterIfOK(g *Guard) bool {
	if g == nil {
		return false
	}
	return g.Enter()
}

// Enter registers an in-flight callback.
//
// Returns false once RequestExitAndWait has been called; the caller must
// then return without touching the guarded object.
func (g *Guard) Enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.inFlight++
	return true
}

// Exit ends a callback admitted by Enter.
//
// Panics if no callback is in flight: an unmatched Exit means the
// bookkeeping protecting the object is already corrupt.
func (g *Guard) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight <= 0 {
		panic("streamq: Guard.Exit without matching Enter")
	}
	g.inFlight--
	if g.inFlight == 0 {
		g.signal()
	}
}

// RequestExitAndWait refuses all further Enter calls, then blocks until
// every admitted callback has called Exit. The refusal is permanent.
//
// Must not be called from inside a callback admitted by the same Guard.
func (g *Guard) RequestExitAndWait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for g.inFlight > 0 {
		g.wait()
	}
}

// InFlight returns the number of callbacks currently admitted.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Closed reports whether RequestExitAndWait has been called.
func (g *Guard) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// wait and signal bind the condition lazily so the zero Guard works.
// Caller holds g.mu.
func (g *Guard) wait() {
	if g.drained.L == nil {
		g.drained.L = &g.mu
	}
	g.drained.Wait()
}

func (g *Guard) signal() {
	if g.drained.L != nil {
		g.drained.Broadcast()
	}
}

// Handle is a non-owning reference to a T whose callbacks are bracketed by
// a [Guard].
//
// A Handle does not keep its target alive. Code running on a foreign
// goroutine holds the Handle instead of the object itself; the owner keeps
// the only strong reference and calls RequestExitAndWait during teardown.
type Handle[T any] struct {
	ptr   weak.Pointer[T]
	guard *Guard
}

// NewHandle returns a Handle to obj guarded by g.
func NewHandle[T any](obj *T, g *Guard) Handle[T] {
	return Handle[T]{ptr: weak.Make(obj), guard: g}
}

// Do runs fn with the target if the guard admits entry and the target is
// still reachable. Reports whether fn ran.
func (h Handle[T]) Do(fn func(*T)) bool {
	if !EnterIfOK(h.guard) {
		return false
	}
	defer h.guard.Exit()
	obj := h.ptr.Value()
	if obj == nil {
		return false
	}
	fn(obj)
	return true
}
