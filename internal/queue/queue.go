// Package queue runs batches of independent tasks with bounded concurrency.
//
// Calls to rate-limited gateways go through a Queue with one worker, so the
// backpressure is part of how the call site is built. A Queue can also
// space consecutive tasks on a worker by a fixed pause and cap the overall
// start rate.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"invoicedesk/internal/logger"
)

// Task is one unit of work. Its error is recorded for its slot only.
type Task func(ctx context.Context) error

// Queue executes tasks with a fixed number of workers.
type Queue struct {
	workers int
	spacing time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers. Values below one are
// treated as one.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n < 1 {
			n = 1
		}
		q.workers = n
	}
}

// WithSpacing makes each worker pause for d after finishing a task before it
// starts the next one.
func WithSpacing(d time.Duration) Option {
	return func(q *Queue) {
		q.spacing = d
	}
}

// WithRateLimit caps task starts at rps per second across all workers.
func WithRateLimit(rps float64) Option {
	return func(q *Queue) {
		if rps > 0 {
			q.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New returns a sequential queue (one worker) unless options say otherwise.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		workers: 1,
		log:     logger.WithComponent("queue-" + name),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Workers reports the configured concurrency.
func (q *Queue) Workers() int {
	return q.workers
}

// Run executes tasks and returns one error slot per task, in task order. A
// failing or panicking task never stops the remaining ones. With one worker,
// tasks start strictly in slice order. Tasks that have not started when ctx
// is done get ctx.Err() in their slot.
func (q *Queue) Run(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	jobs := make(chan int)
	var g errgroup.Group

	workers := q.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			started := false
			for idx := range jobs {
				if started && q.spacing > 0 {
					if err := sleep(ctx, q.spacing); err != nil {
						errs[idx] = err
						continue
					}
				}
				started = true

				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				if q.limiter != nil {
					if err := q.limiter.Wait(ctx); err != nil {
						errs[idx] = err
						continue
					}
				}
				errs[idx] = runTask(ctx, tasks[idx])
			}
			return nil
		})
	}

	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	q.log.Debug().
		Int("tasks", len(tasks)).
		Int("failed", failed).
		Int("workers", workers).
		Msg("Queue drained")

	return errs
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
