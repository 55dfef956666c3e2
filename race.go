// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package streamq

// RaceEnabled is true when the race detector is active.
// Stress tests and the streamsim tests shrink their workloads when set.
const RaceEnabled = true
