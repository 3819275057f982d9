// Package taskq executes batches of asynchronous tasks with bounded
// concurrency, per-task timeouts, a shared deadline, and cooperative
// cancellation, preserving result order.
//
// # Usage
//
//	results, err := taskq.Run(ctx, tasks, taskq.Options{
//	    Concurrency: 4,
//	    Timeout:     5 * time.Second,        // one task
//	    Deadline:    time.Now().Add(30 * time.Second), // whole batch
//	})
//
// Results are positioned by input index regardless of completion order. On
// the first rejection (task error, task timeout, or cancellation) admission
// halts, in-flight tasks settle, and Run rejects with a [TaskError].
//
// Cancellation is cooperative: a task that ignores its context simply runs
// to its own completion, but its outcome is discarded once its budget
// expires.
//
// A standalone FIFO [Queue] with an optional capacity is exposed
// independently of Run.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package taskq
