package taskq

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Run errors.
var (
	// ErrTimeout — a task exceeded its effective budget, or its budget was
	// already exhausted at admission.
	ErrTimeout = errors.New("taskq: task timed out")

	// ErrCancelled — the run's context was cancelled before all tasks settled.
	ErrCancelled = errors.New("taskq: run cancelled")
)

// Task is one unit of asynchronous work. The context carries the task's
// effective budget; a task that ignores cancellation simply runs to its own
// completion, but its result is discarded once the budget expires.
type Task func(ctx context.Context) (any, error)

// Options bound a single Run call.
type Options struct {
	// Concurrency bounds simultaneous tasks. <= 0 means unbounded.
	Concurrency int

	// Timeout bounds one task. Zero means no per-task bound.
	Timeout time.Duration

	// Deadline bounds the whole run. Zero means no shared bound.
	Deadline time.Time
}

// Result is one task's settled outcome, positioned at the task's input index.
type Result struct {
	Value    any
	Err      error
	Duration time.Duration
	TimedOut bool
}

// TaskError is the rejection Run returns when a task fails: it names the
// failed task's input index and wraps its error.
type TaskError struct {
	Index    int
	Err      error
	TimedOut bool
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("taskq: task %d: %v", e.Index, e.Err)
}

// Unwrap returns the task's error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// settled pairs a finished task's index with its result.
type settled struct {
	idx int
	res Result
}

// Run executes tasks with bounded concurrency and returns their results in
// input order, regardless of completion order.
//
// Admission: up to Concurrency tasks run at once; as each settles, the next
// not-yet-started task (in input order) is admitted. Each task's effective
// budget is min(Timeout, remaining Deadline, remaining ctx deadline),
// computed at admission; a budget that is already <= 0 fails the task
// immediately as a timeout, without invocation.
//
// On the first rejection — a task error, a task timeout, or context
// cancellation — admission halts, already-admitted tasks are allowed to
// settle, and Run rejects with that first error. Settled results are not
// surfaced on rejection.
func Run(ctx context.Context, tasks []Task, opts Options) ([]Result, error) {
	n := len(tasks)
	results := make([]Result, n)
	if n == 0 {
		return results, nil
	}

	limit := opts.Concurrency
	if limit <= 0 || limit > n {
		limit = n
	}

	pending := NewQueue[int](0)
	for i := range tasks {
		_ = pending.Enqueue(i)
	}

	done := make(chan settled, n)
	inflight := 0
	var reject error

	// budget computes one task's effective budget at admission time.
	budget := func(now time.Time) (time.Duration, bool) {
		eff := opts.Timeout
		bounded := eff > 0
		if !opts.Deadline.IsZero() {
			if rem := opts.Deadline.Sub(now); !bounded || rem < eff {
				eff = rem
				bounded = true
			}
		}
		if dl, ok := ctx.Deadline(); ok {
			if rem := dl.Sub(now); !bounded || rem < eff {
				eff = rem
				bounded = true
			}
		}
		return eff, bounded
	}

	admit := func(idx int) {
		now := time.Now()
		eff, bounded := budget(now)
		if bounded && eff <= 0 {
			results[idx] = Result{Err: ErrTimeout, TimedOut: true}
			if reject == nil {
				reject = &TaskError{Index: idx, Err: ErrTimeout, TimedOut: true}
			}
			return
		}

		inflight++
		var taskCtx context.Context
		var cancel context.CancelFunc
		if bounded {
			taskCtx, cancel = context.WithTimeout(ctx, eff)
		} else {
			taskCtx, cancel = context.WithCancel(ctx)
		}

		out := make(chan Result, 1)
		task := tasks[idx]
		go func() {
			v, err := task(taskCtx)
			out <- Result{Value: v, Err: err, Duration: time.Since(now)}
		}()
		go func() {
			defer cancel()
			var res Result
			if bounded {
				timer := time.NewTimer(eff)
				defer timer.Stop()
				select {
				case res = <-out:
					// A task that surfaced its budget expiry is a timeout,
					// whichever side of the race settled first.
					if res.Err != nil && errors.Is(res.Err, context.DeadlineExceeded) {
						res.Err = ErrTimeout
						res.TimedOut = true
					}
				case <-timer.C:
					// The task keeps running; cancellation is cooperative.
					res = Result{Err: ErrTimeout, Duration: time.Since(now), TimedOut: true}
				}
			} else {
				res = <-out
			}
			done <- settled{idx: idx, res: res}
		}()
	}

	for {
		for reject == nil && inflight < limit && pending.Len() > 0 {
			idx, _ := pending.Dequeue()
			admit(idx)
		}
		if inflight == 0 {
			break
		}

		// Stop watching ctx once rejected; a nil channel never fires.
		var cancelled <-chan struct{}
		if reject == nil {
			cancelled = ctx.Done()
		}
		select {
		case s := <-done:
			inflight--
			results[s.idx] = s.res
			if s.res.Err != nil && reject == nil {
				if ctx.Err() != nil && isContextError(s.res.Err) {
					// The failure rode in on run-level cancellation.
					reject = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
				} else {
					// A genuine task failure keeps its own error even when
					// the run context expired while it settled.
					reject = &TaskError{Index: s.idx, Err: s.res.Err, TimedOut: s.res.TimedOut}
				}
			}
		case <-cancelled:
			reject = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}

	if reject != nil {
		return nil, reject
	}
	return results, nil
}

// isContextError reports whether err is the context's own cancellation or
// deadline signal rather than a failure the task produced itself.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
