// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides the fixed-capacity circular slot array shared by the
// streamq executor and buffer queue.
//
// A Ring of capacity n owns n+1 slots. One slot always stays empty, so
// front == rear means empty and rear+1 == front (mod n+1) means full, with
// no separate occupancy counter.
//
// Ring is not safe for concurrent use; callers hold their own lock.
package ring

// Inline is the number of slots stored inside the Ring itself.
// Rings with capacity < Inline never touch the heap for their slots.
const Inline = 16

// Ring is a bounded FIFO of T values addressed by front and rear indices.
//
// A Ring must not be copied after Init.
type Ring[T any] struct {
	slots  []T
	front  int
	rear   int
	inline [Inline]T
}

// Init prepares r to hold up to capacity values.
// Panics if capacity < 1.
func (r *Ring[T]) Init(capacity int) {
	if capacity < 1 {
		panic("ring: capacity must be >= 1")
	}
	size := capacity + 1
	if size <= Inline {
		r.slots = r.inline[:size]
	} else {
		r.slots = make([]T, size)
	}
	r.front, r.rear = 0, 0
}

// Cap returns the usable capacity (one less than the slot count).
func (r *Ring[T]) Cap() int {
	return len(r.slots) - 1
}

// Len returns the number of occupied slots.
func (r *Ring[T]) Len() int {
	n := r.rear - r.front
	if n < 0 {
		n += len(r.slots)
	}
	return n
}

// Empty reports whether no slot is occupied.
func (r *Ring[T]) Empty() bool {
	return r.front == r.rear
}

// Full reports whether Cap slots are occupied.
func (r *Ring[T]) Full() bool {
	return r.next(r.rear) == r.front
}

// Inlined reports whether the slots live in the Ring's inline array.
func (r *Ring[T]) Inlined() bool {
	return len(r.slots) > 0 && &r.slots[0] == &r.inline[0]
}

// Push stores v at rear and advances rear.
// Returns false without modifying r if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	next := r.next(r.rear)
	if next == r.front {
		return false
	}
	r.slots[r.rear] = v
	r.rear = next
	return true
}

// Pop removes and returns the value at front.
// Returns (zero-value, false) if the ring is empty.
// The vacated slot is cleared so referenced objects can be collected.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.front == r.rear {
		return zero, false
	}
	v := r.slots[r.front]
	r.slots[r.front] = zero
	r.front = r.next(r.front)
	return v, true
}

// Front returns a pointer to the value at front, or nil if empty.
// The pointer is valid until the next Pop or Reset.
func (r *Ring[T]) Front() *T {
	if r.front == r.rear {
		return nil
	}
	return &r.slots[r.front]
}

// Reset empties the ring and clears every slot.
func (r *Ring[T]) Reset() {
	clear(r.slots)
	r.front, r.rear = 0, 0
}

func (r *Ring[T]) next(i int) int {
	i++
	if i == len(r.slots) {
		return 0
	}
	return i
}
