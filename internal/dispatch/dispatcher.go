// Package dispatch runs best-effort side effects (audit writes, notifications)
// after the owning transaction has committed.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-innovation-api/internal/observability"
)

// Job is a unit of post-commit work.
type Job func(ctx context.Context) error

// Config sizes the worker pool. Zero workers runs jobs inline on the caller.
type Config struct {
	Workers    int
	BufferSize int
	JobTimeout time.Duration
}

type task struct {
	name string
	job  Job
}

// Dispatcher executes jobs without letting their failures reach the caller.
type Dispatcher struct {
	cfg    Config
	queue  chan task
	logger zerolog.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New starts the worker pool.
func New(cfg Config, logger zerolog.Logger) *Dispatcher {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Second
	}
	if cfg.Workers > 0 && cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}

	if cfg.Workers > 0 {
		d.queue = make(chan task, cfg.BufferSize)
		for i := 0; i < cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	}

	return d
}

// Inline returns a dispatcher that runs every job synchronously.
func Inline(logger zerolog.Logger) *Dispatcher {
	return New(Config{}, logger)
}

// Enqueue schedules a job. When the queue is full the job is dropped and logged.
func (d *Dispatcher) Enqueue(name string, job Job) {
	if job == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed || d.queue == nil {
		d.run(task{name: name, job: job})
		return
	}

	select {
	case d.queue <- task{name: name, job: job}:
	default:
		observability.DispatchDropped().WithLabelValues(name).Inc()
		d.logger.Warn().Str("job", name).Msg("dispatch queue full, dropping side effect")
	}
}

// Close stops accepting work and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.queue != nil {
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("job", t.name).Interface("panic", r).Msg("side effect panicked")
		}
	}()

	if err := t.job(ctx); err != nil {
		observability.DispatchFailures().WithLabelValues(t.name).Inc()
		d.logger.Warn().Err(err).Str("job", t.name).Msg("side effect failed")
	}
}
