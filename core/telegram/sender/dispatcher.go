// Package sender runs outbound Telegram calls off the update goroutine.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when every queue slot is taken.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tunes the dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one job including every retry.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	out := append(make([]slog.Attr, 0, 2+len(extra)), slog.String("action", j.action))
	if j.endpoint != "" {
		out = append(out, slog.String("endpoint", j.endpoint))
	}
	return append(out, extra...)
}

// Dispatcher is a bounded worker pool for Telegram calls with retry on
// transient failures. Settlement DMs go through it so one slow or blocked
// participant does not hold up the group reply.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewDispatcher starts opts.Workers workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run without blocking. run may be called more than once
// when it fails with a retryable error.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// SentCount is the number of jobs that succeeded.
func (d *Dispatcher) SentCount() uint64 { return d.sent.Load() }

// ErrorCount is the number of jobs that gave up.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// Close stops intake and waits for queued jobs. Safe to call twice.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			d.sent.Add(1)
			logger.Debug(j.ctx, component, "send.ok", j.attrs(
				slog.Int("attempt", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return
		}
		if attempt == attempts || !netutil.ShouldRetry(err) {
			break
		}
		delay := max(d.opts.RetryBackoff*time.Duration(attempt), netutil.RetryAfter(err))
		logger.Debug(j.ctx, component, "send.retry", j.attrs(
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", redact(err)),
		)...)
		if werr := sleep(ctx, delay); werr != nil {
			err = werr
			break
		}
	}

	d.failed.Add(1)
	logger.Error(j.ctx, component, "send.fail", j.attrs(
		slog.String("err", redact(err)),
		slog.String("error_kind", classify(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)...)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
