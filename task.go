// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

// TaskKind selects the call shape of a [Task].
type TaskKind uint8

const (
	// KindInvalid is the kind of the zero Task. It is never executed.
	KindInvalid TaskKind = iota
	// KindPP calls handler(c1, c2).
	KindPP
	// KindPPI calls handler(c1, c2, p1).
	KindPPI
	// KindPPII calls handler(c1, c2, p1, p2).
	KindPPII
)

// String returns the kind name.
func (k TaskKind) String() string {
	switch k {
	case KindPP:
		return "pp"
	case KindPPI:
		return "ppi"
	case KindPPII:
		return "ppii"
	default:
		return "invalid"
	}
}

// Handler shapes accepted by the executor. The two context values are
// opaque to the executor and passed through unchanged.
type (
	HandlerPP   func(c1, c2 any)
	HandlerPPI  func(c1, c2 any, p1 int)
	HandlerPPII func(c1, c2 any, p1, p2 int)
)

// Task is a deferred call: a handler of one of the [TaskKind] shapes bound
// to two context values and up to two integer parameters.
//
// Task is an immutable value. Exactly one handler field is set, matching
// kind. Build Tasks with [NewTaskPP], [NewTaskPPI] or [NewTaskPPII]; the zero
// Task is invalid and is rejected by submission with [ErrInvalidParameter].
type Task struct {
	kind TaskKind
	pp   HandlerPP
	ppi  HandlerPPI
	ppii HandlerPPII
	c1   any
	c2   any
	p1   int
	p2   int
}

// NewTaskPP binds h to two context values.
func NewTaskPP(h HandlerPP, c1, c2 any) Task {
	return Task{kind: KindPP, pp: h, c1: c1, c2: c2}
}

// NewTaskPPI binds h to two context values and one parameter.
func NewTaskPPI(h HandlerPPI, c1, c2 any, p1 int) Task {
	return Task{kind: KindPPI, ppi: h, c1: c1, c2: c2, p1: p1}
}

// NewTaskPPII binds h to two context values and two parameters.
func NewTaskPPII(h HandlerPPII, c1, c2 any, p1, p2 int) Task {
	return Task{kind: KindPPII, ppii: h, c1: c1, c2: c2, p1: p1, p2: p2}
}

// Kind returns the call shape of t.
func (t Task) Kind() TaskKind {
	return t.kind
}

// Valid reports whether t has a known kind and a non-nil handler.
func (t Task) Valid() bool {
	switch t.kind {
	case KindPP:
		return t.pp != nil
	case KindPPI:
		return t.ppi != nil
	case KindPPII:
		return t.ppii != nil
	default:
		return false
	}
}

// Run invokes the handler on the calling goroutine.
// Run on an invalid Task does nothing.
func (t Task) Run() {
	switch t.kind {
	case KindPP:
		if t.pp != nil {
			t.pp(t.c1, t.c2)
		}
	case KindPPI:
		if t.ppi != nil {
			t.ppi(t.c1, t.c2, t.p1)
		}
	case KindPPII:
		if t.ppii != nil {
			t.ppii(t.c1, t.c2, t.p1, t.p2)
		}
	}
}
