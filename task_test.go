// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq_test

import (
	"testing"

	"code.hybscloud.com/streamq"
)

func TestTaskKinds(t *testing.T) {
	var got []any
	cases := []struct {
		task streamq.Task
		kind streamq.TaskKind
		name string
		want []any
	}{
		{
			task: streamq.NewTaskPP(func(c1, c2 any) { got = []any{c1, c2} }, "x", 1),
			kind: streamq.KindPP,
			name: "pp",
			want: []any{"x", 1},
		},
		{
			task: streamq.NewTaskPPI(func(c1, c2 any, p1 int) { got = []any{c1, c2, p1} }, "x", nil, 9),
			kind: streamq.KindPPI,
			name: "ppi",
			want: []any{"x", nil, 9},
		},
		{
			task: streamq.NewTaskPPII(func(c1, c2 any, p1, p2 int) { got = []any{c1, c2, p1, p2} }, nil, "y", -1, 4),
			kind: streamq.KindPPII,
			name: "ppii",
			want: []any{nil, "y", -1, 4},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = nil
			if tc.task.Kind() != tc.kind {
				t.Fatalf("Kind: got %v, want %v", tc.task.Kind(), tc.kind)
			}
			if tc.kind.String() != tc.name {
				t.Fatalf("String: got %q, want %q", tc.kind.String(), tc.name)
			}
			if !tc.task.Valid() {
				t.Fatalf("Valid: got false, want true")
			}
			tc.task.Run()
			if len(got) != len(tc.want) {
				t.Fatalf("args: got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("arg %d: got %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestTaskInvalid(t *testing.T) {
	invalid := []streamq.Task{
		{},
		streamq.NewTaskPP(nil, 1, 2),
		streamq.NewTaskPPI(nil, 1, 2, 3),
		streamq.NewTaskPPII(nil, 1, 2, 3, 4),
	}
	for i, task := range invalid {
		if task.Valid() {
			t.Fatalf("task %d: Valid: got true, want false", i)
		}
		task.Run() // must not panic
	}

	var zero streamq.Task
	if zero.Kind() != streamq.KindInvalid || zero.Kind().String() != "invalid" {
		t.Fatalf("zero Task kind: got %v", zero.Kind())
	}
}
