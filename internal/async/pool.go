// Package async runs independent per-item work on a bounded worker pool.
package async

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Tally counts item outcomes. Each worker keeps its own and they are summed after the join.
type Tally struct {
	Succeeded int
	Failed    int
	Skipped   int // not run because the context was done
}

func (t *Tally) add(o Tally) {
	t.Succeeded += o.Succeeded
	t.Failed += o.Failed
	t.Skipped += o.Skipped
}

// Pool holds the sizing of a worker pool; the goroutines live only for one Map call.
type Pool struct {
	logger    *slog.Logger
	workers   int
	queueSize int
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{logger: logger, workers: runtime.NumCPU()}
	for _, o := range opts {
		o(p)
	}
	if p.queueSize <= 0 {
		p.queueSize = 2 * p.workers
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

type job[In any] struct {
	idx  int
	item In
}

// Map applies fn to every item and returns the outputs in input order.
// fn reports success with its bool; a failed item never stops its siblings.
// When ctx is done no further items are submitted or started, in-flight items
// finish, and Map returns ctx.Err() together with the partial results. Outputs
// of skipped items are zero values.
func Map[In, Out any](ctx context.Context, p *Pool, name string, items []In, fn func(ctx context.Context, item In) (Out, bool)) ([]Out, Tally, error) {
	out := make([]Out, len(items))
	tallies := make([]Tally, p.workers)
	queue := make(chan job[In], p.queueSize)

	var g errgroup.Group
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			local := &tallies[w]
			for j := range queue {
				if ctx.Err() != nil {
					local.Skipped++
					continue
				}
				// Each index is written by exactly one worker.
				res, ok := fn(ctx, j.item)
				out[j.idx] = res
				if ok {
					local.Succeeded++
				} else {
					local.Failed++
				}
			}
			return nil
		})
	}

	submitted := 0
	var cancelled error
submit:
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break submit
		case queue <- job[In]{idx: i, item: item}:
			submitted++
		}
	}
	close(queue)
	_ = g.Wait()

	var total Tally
	for _, t := range tallies {
		total.add(t)
	}
	total.Skipped += len(items) - submitted
	if cancelled == nil && total.Skipped > 0 {
		cancelled = ctx.Err()
	}

	if cancelled != nil {
		p.logger.Warn("async.pool.cancelled", "stage", name, "submitted", submitted, "skipped", total.Skipped)
		return out, total, cancelled
	}
	p.logger.Debug("async.pool.done", "stage", name, "workers", p.workers,
		"succeeded", total.Succeeded, "failed", total.Failed)
	return out, total, nil
}
