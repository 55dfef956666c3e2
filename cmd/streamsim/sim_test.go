// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/streamq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(chunks int) *Config {
	if streamq.RaceEnabled {
		chunks /= 4
	}
	return &Config{
		Executor: ExecutorConfig{Capacity: 4, Workers: 2},
		Queue:    QueueConfig{Capacity: 3, ChunkSize: 256},
		Player:   PlayerConfig{PullSize: 100, Burst: 1, RingSize: 1024},
		Run:      RunConfig{Duration: 30 * time.Second, Chunks: chunks},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunSync(t *testing.T) {
	cfg := testConfig(200)
	require.NoError(t, cfg.Validate())

	res, err := Run(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(cfg.Run.Chunks*cfg.Queue.ChunkSize), res.Bytes)
	assert.Zero(t, res.Mismatches)
	assert.Equal(t, int64(cfg.Run.Chunks), res.Retired)
	assert.Positive(t, res.Tasks)
}

func TestRunAsync(t *testing.T) {
	cfg := testConfig(200)
	cfg.Player.Async = true
	cfg.Executor.Workers = 3
	// Smaller than the buffer count so refills also run inline
	cfg.Executor.Capacity = 1

	res, err := Run(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(cfg.Run.Chunks*cfg.Queue.ChunkSize), res.Bytes)
	assert.Zero(t, res.Mismatches)
	assert.Equal(t, int64(cfg.Run.Chunks), res.Retired)
}

func TestRunPacedStopsOnDeadline(t *testing.T) {
	cfg := testConfig(0)
	cfg.Run.Chunks = 0
	cfg.Run.Duration = 100 * time.Millisecond
	cfg.Player.Rate = 200

	start := time.Now()
	res, err := Run(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Positive(t, res.Bytes)
	assert.Zero(t, res.Mismatches)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(0)
	cfg.Run.Chunks = 0
	cfg.Player.Rate = 1000

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	res, err := Run(ctx, cfg, discardLogger())
	require.NoError(t, err)
	assert.Zero(t, res.Mismatches)
}

func TestRootCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{
		"--chunks", "20",
		"--queue-capacity", "2",
		"--chunk-size", "128",
		"--pull-size", "50",
		"--ring-size", "512",
		"--log-format", "json",
	})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(out.String(), "2560 bytes, 20 buffers"), out.String())
	assert.Contains(t, errOut.String(), `"msg":"Simulation finished"`)
}

func TestConfigCommands(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "show"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Executor: capacity=15 workers=2")

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "validate"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Configuration is valid")

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "streamsim version dev")
}
