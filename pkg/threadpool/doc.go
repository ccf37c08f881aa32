/*
Package threadpool provides a fixed-size pool of persistent workers with a
blocking fork-join parallel-for.

# Overview

A Pool owns a set of worker goroutines created once at construction and
reused across many Map calls, amortizing startup cost. Map partitions an
index range into chunks which workers claim dynamically from a shared
atomic cursor, so threads that finish early pick up more work. This
self-balances workloads whose per-element cost varies widely, which is the
common case for per-particle simulation kernels.

# Core Components

## Pool

Fixed-size worker pool implementation providing:
- Persistent worker goroutines parked between jobs
- Dynamic (cursor-based) chunk distribution
- Synchronous fork-join barrier: Map returns once every index has run
- Per-chunk observer hook for timing instrumentation
- Real-time statistics

## MapFunc

The unit of work: a function applied to a contiguous chunk of indices.
The pool guarantees every index in the range is passed to the function in
exactly one chunk, exactly once; chunk completion order is unspecified.

# Concurrency Contract

At most one Map call may be active per pool. Map must not be called from
inside a running MapFunc on the same pool: all workers are consumed by the
outer call and the inner call blocks forever. Result aggregation is the
caller's responsibility; the pool performs no synchronization beyond the
chunk cursor and the completion barrier.

# Usage Example

	pool, err := threadpool.New(&threadpool.Config{Threads: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	counts := make([]int, 4000)
	pool.Map(func(start, count int, extra interface{}) {
		for i := start; i < start+count; i++ {
			counts[i]++
		}
	}, len(counts), 1000, nil)
*/
package threadpool
