// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/streamq"
)

// =============================================================================
// Error Functions Tests
// =============================================================================

var wrappedFull = fmt.Errorf("enqueue chunk 7: %w", streamq.ErrQueueFull)

func TestIsWouldBlock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ErrQueueFull", streamq.ErrQueueFull, true},
		{"wrapped ErrQueueFull", wrappedFull, true},
		{"iox.ErrWouldBlock", iox.ErrWouldBlock, true},
		{"ErrRejected", streamq.ErrRejected, false},
		{"ErrClosed", streamq.ErrClosed, false},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			if got := streamq.IsWouldBlock(tt.err); got != tt.want {
				t.Errorf("IsWouldBlock(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestIsSemantic tests the IsSemantic error classification function.
func TestIsSemantic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ErrQueueFull", streamq.ErrQueueFull, true},
		{"wrapped ErrQueueFull", wrappedFull, true},
		{"ErrInvalidParameter", streamq.ErrInvalidParameter, false},
		{"other error", errors.New("other"), false},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			if got := streamq.IsSemantic(tt.err); got != tt.want {
				t.Errorf("IsSemantic(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestIsNonFailure tests the IsNonFailure error classification function.
func TestIsNonFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"ErrQueueFull", streamq.ErrQueueFull, true},
		{"iox.ErrWouldBlock", iox.ErrWouldBlock, true},
		{"ErrUnsupported", streamq.ErrUnsupported, false},
		{"other error", errors.New("failure"), false},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			if got := streamq.IsNonFailure(tt.err); got != tt.want {
				t.Errorf("IsNonFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
