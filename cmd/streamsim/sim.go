// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
	"code.hybscloud.com/streamq"
	"code.hybscloud.com/streamq/promstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Result summarizes a simulation run.
type Result struct {
	Bytes       int64 // Bytes received by the device in stream order
	Mismatches  int64 // Bytes or retirements out of order
	Retired     int64
	Starvations int64
	Tasks       int64 // Executor tasks completed
	Elapsed     time.Duration
}

// sim wires one application producer, one executor and one buffer queue to
// a simulated playback device.
//
// The application keeps queue.capacity buffers in flight. Each retirement
// callback defers a refill of the retired buffer to the executor. The
// device pulls through a Source into its own byte ring and checks that the
// stream arrives in order.
type sim struct {
	cfg *Config
	log *slog.Logger
	ex  *streamq.Executor
	q   *streamq.BufferQueue

	// Producer state, held across fill and Enqueue so refills running on
	// different workers cannot reorder the stream.
	prodMu     sync.Mutex
	prodSeq    int64
	prodOffset int64

	devMu    sync.Mutex
	device   *ringbuffer.RingBuffer
	frame    []byte
	verified int64 // guarded by devMu

	retired    atomix.Int64
	mismatches atomix.Int64
	bytes      atomix.Int64
}

// Run executes a simulation until ctx is done, cfg.Run.Duration elapses
// or cfg.Run.Chunks chunks have been played.
func Run(ctx context.Context, cfg *Config, log *slog.Logger) (Result, error) {
	start := time.Now()

	ex, err := streamq.New(cfg.Executor.Capacity).
		Workers(cfg.Executor.Workers).
		Logger(log).
		BuildExecutor()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create executor: %w", err)
	}
	q, err := streamq.New(cfg.Queue.Capacity).
		Logger(log).
		Listener(streamq.ListenerFuncs{
			Starved: func() { log.Debug("device starved") },
		}).
		BuildBufferQueue()
	if err != nil {
		ex.Shutdown()
		return Result{}, fmt.Errorf("failed to create buffer queue: %w", err)
	}

	s := &sim{
		cfg:    cfg,
		log:    log,
		ex:     ex,
		q:      q,
		device: ringbuffer.New(cfg.Player.RingSize),
		frame:  make([]byte, cfg.Player.PullSize),
	}
	if err := q.RegisterCallback(s.onProcessed, nil); err != nil {
		q.Close()
		ex.Shutdown()
		return Result{}, err
	}

	for range cfg.Queue.Capacity {
		if !s.produce(make([]byte, cfg.Queue.ChunkSize)) {
			break
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Run.Duration > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, cfg.Run.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return s.play(gctx)
	})
	if cfg.Metrics.Listen != "" {
		if err := s.serveMetrics(gctx, g); err != nil {
			cancel()
			_ = g.Wait()
			q.Close()
			ex.Shutdown()
			return Result{}, err
		}
	}
	runErr := g.Wait()

	q.Close()
	ex.Shutdown()

	st := q.Stats()
	res := Result{
		Bytes:       s.bytes.Load(),
		Mismatches:  s.mismatches.Load(),
		Retired:     st.Retired,
		Starvations: st.Starvations,
		Tasks:       ex.Stats().Completed,
		Elapsed:     time.Since(start),
	}
	return res, runErr
}

// produce fills buf with the next chunk of the stream and enqueues it.
// Reports false once the configured chunk count has been produced or the
// queue is closed.
func (s *sim) produce(buf []byte) bool {
	s.prodMu.Lock()
	defer s.prodMu.Unlock()

	if limit := int64(s.cfg.Run.Chunks); limit > 0 && s.prodSeq >= limit {
		return false
	}
	for i := range buf {
		buf[i] = byte(s.prodOffset + int64(i))
	}

	backoff := iox.Backoff{}
	for {
		err := s.q.Enqueue(s.prodSeq, buf)
		if err == nil {
			break
		}
		if !streamq.IsWouldBlock(err) {
			s.log.Debug("refill dropped", slog.Int64("seq", s.prodSeq), slog.Any("error", err))
			return false
		}
		backoff.Wait()
	}
	s.prodSeq++
	s.prodOffset += int64(len(buf))
	return true
}

// onProcessed runs on the pulling goroutine; the refill runs on a worker.
func (s *sim) onProcessed(_ *streamq.BufferQueue, _ any, ev streamq.Processed) {
	want := s.retired.Add(1) - 1
	if seq, ok := ev.BufferContext.(int64); !ok || seq != want {
		s.mismatches.Add(1)
		s.log.Warn("buffer retired out of order", slog.Any("got", ev.BufferContext), slog.Int64("want", want))
	}
	// May run on a worker in async mode. A worker must not block on its own
	// executor, so a full executor refills inline.
	task := streamq.NewTaskPP(refill, s, ev.Data)
	err := s.ex.TrySubmit(task)
	if errors.Is(err, streamq.ErrQueueFull) {
		err = streamq.Inline{}.Submit(task)
	}
	if err != nil {
		s.log.Debug("refill not scheduled", slog.Any("error", err))
	}
}

func refill(c1, c2 any) {
	c1.(*sim).produce(c2.([]byte))
}

// play is the device loop.
func (s *sim) play(ctx context.Context) error {
	var limiter *rate.Limiter
	if s.cfg.Player.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.Player.Rate), s.cfg.Player.Burst)
	}
	src := s.q.Source()
	dst := make([]byte, s.cfg.Player.PullSize)
	inflight := semaphore.NewWeighted(1)
	sw := spin.Wait{}

	for !s.finished() {
		if ctx.Err() != nil {
			return nil
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		if s.cfg.Player.Async {
			// One request in flight keeps deliveries in stream order.
			if err := inflight.Acquire(ctx, 1); err != nil {
				return nil
			}
			err := s.q.PullAsync(s.ex, dst, func(n int) {
				s.deliver(dst[:n])
				inflight.Release(1)
			})
			if err != nil {
				inflight.Release(1)
				if errors.Is(err, streamq.ErrRejected) {
					return nil
				}
				return fmt.Errorf("pull request failed: %w", err)
			}
		} else {
			n := src.Pull(dst)
			if n == 0 {
				sw.Once()
			} else {
				sw.Reset()
				s.deliver(dst[:n])
			}
		}
		s.consume()
	}
	return nil
}

func (s *sim) finished() bool {
	if s.cfg.Run.Chunks <= 0 {
		return false
	}
	return s.bytes.Load() >= int64(s.cfg.Run.Chunks)*int64(s.cfg.Queue.ChunkSize)
}

// deliver writes pulled bytes into the device ring, consuming the oldest
// frames first if it has no room.
func (s *sim) deliver(p []byte) {
	if len(p) == 0 {
		return
	}
	s.devMu.Lock()
	defer s.devMu.Unlock()
	for s.device.Free() < len(p) {
		if s.consumeLocked() == 0 {
			break
		}
	}
	if _, err := s.device.Write(p); err != nil {
		s.log.Warn("device ring write failed", slog.Int("bytes", len(p)), slog.Any("error", err))
	}
}

// consume plays one frame from the device ring.
func (s *sim) consume() {
	s.devMu.Lock()
	s.consumeLocked()
	s.devMu.Unlock()
}

func (s *sim) consumeLocked() int {
	n, err := s.device.Read(s.frame)
	if err != nil {
		if !errors.Is(err, ringbuffer.ErrIsEmpty) {
			s.log.Warn("device ring read failed", slog.Any("error", err))
		}
		return 0
	}
	for i, b := range s.frame[:n] {
		if b != byte(s.verified+int64(i)) {
			s.mismatches.Add(1)
		}
	}
	s.verified += int64(n)
	s.bytes.Add(int64(n))
	return n
}

// serveMetrics exposes the executor and queue statistics until ctx is done.
func (s *sim) serveMetrics(ctx context.Context, g *errgroup.Group) error {
	registry := prometheus.NewRegistry()
	c, err := promstats.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.AddExecutor("refill", s.ex)
	c.AddBufferQueue("playback", s.q)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
	srv := &http.Server{
		Addr:              s.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		s.log.Info("Serving metrics", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return nil
}
