// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamq

import "log/slog"

const (
	// DefaultCapacity is the typical executor queue capacity. The ring for
	// this capacity fits the inline slot array and needs no heap allocation.
	DefaultCapacity = 15

	// DefaultWorkers is the worker count used by a Builder when Workers is
	// not called.
	DefaultWorkers = 2
)

// Options configures executor and buffer queue creation.
type Options struct {
	// Executor only
	workers int

	// Buffer queue only
	listener Listener

	// Shared
	logger   *slog.Logger
	capacity int
}

// Option mutates Options. Options that do not apply to the component
// being built are ignored.
type Option func(*Options)

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithListener attaches the player-side [Listener] to a buffer queue.
func WithListener(l Listener) Option {
	return func(o *Options) { o.listener = l }
}

func (o *Options) apply(opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
}

// Builder creates executors and buffer queues with fluent configuration.
//
// Example:
//
//	ex, err := streamq.New(16).Workers(4).Logger(log).BuildExecutor()
//
//	bq, err := streamq.New(8).Listener(player).BuildBufferQueue()
//
// Builder validates nothing itself; the Build methods report
// [ErrInvalidParameter] for a non-positive capacity or worker count.
type Builder struct {
	opts Options
}

// New creates a builder with the given capacity.
//
// For an executor, capacity is the number of tasks that may wait for a
// worker. For a buffer queue, it is the number of buffers that may be
// enqueued and not yet fully consumed.
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity, workers: DefaultWorkers}}
}

// Workers sets the executor worker count.
func (b *Builder) Workers(n int) *Builder {
	b.opts.workers = n
	return b
}

// Logger sets the structured logger.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.opts.logger = l
	return b
}

// Listener attaches the player-side notification sink of a buffer queue.
func (b *Builder) Listener(l Listener) *Builder {
	b.opts.listener = l
	return b
}

// BuildExecutor creates and starts an [Executor].
func (b *Builder) BuildExecutor() (*Executor, error) {
	o := b.opts
	return newExecutor(&o)
}

// BuildBufferQueue creates a [BufferQueue].
func (b *Builder) BuildBufferQueue() (*BufferQueue, error) {
	o := b.opts
	return newBufferQueue(&o)
}
