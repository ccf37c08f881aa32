package threadpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PlanetSim/SWIFT/pkg/types"
)

// MapFunc is applied to one chunk of indices. It receives the first index
// of the chunk, the number of indices in the chunk, and the opaque extra
// argument passed to Map. It must be safe to call concurrently on disjoint
// chunks.
type MapFunc func(start, count int, extra interface{})

// Observer is called after each executed chunk with the worker that ran it,
// the chunk bounds, and the begin/end timestamps taken from the pool clock.
// It must be safe to call concurrently from all workers.
type Observer func(worker, start, count int, began, ended time.Time)

// chunksPerThread controls the automatic chunk size: when the caller does
// not force a larger minimum, Map aims for this many chunks per worker so
// that threads finishing early can claim more work.
const chunksPerThread = 2

// Config defines configuration for the thread pool
type Config struct {
	// Threads is the number of persistent worker goroutines
	Threads int

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Observer receives a notification per executed chunk (optional)
	Observer Observer
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Threads: runtime.NumCPU(),
		Clock:   types.NewRealClock(),
	}
}

// Pool is a fixed-size pool of persistent workers exposing a blocking
// parallel-for. Workers are spawned once at New and park between Map
// calls; a Map call distributes chunks of the index range dynamically, so
// uneven per-element cost self-balances across threads.
//
// At most one Map call may be active per pool. In particular, calling Map
// from inside a running MapFunc on the same pool deadlocks: every worker
// is already occupied by the outer call and none remains to service the
// inner one.
type Pool struct {
	config *Config
	jobs   chan *job

	mu        sync.RWMutex // held across the closed-check and enqueue in Map, write-locked in Close
	wg        sync.WaitGroup
	closed    int32 // atomic flag: 1 if closed
	closeOnce sync.Once

	// statistics
	mapCalls  int64
	chunksRun int64
	elements  int64
}

// job is the transient descriptor of one Map call. It is shared by all
// workers for the duration of the call; the cursor is the single point of
// synchronization for chunk claiming. The done channel is the release side
// of the fork-join barrier: workers that run out of chunks park on it
// until the whole round has completed, so no worker is free to service
// another job while a Map call is in flight.
type job struct {
	fn          MapFunc
	extra       interface{}
	numElements int
	chunkSize   int
	cursor      int64
	wg          sync.WaitGroup
	done        chan struct{}
}

// New creates a pool of persistent workers. The workers are started
// immediately and live until Close.
func New(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Threads <= 0 {
		return nil, fmt.Errorf("%w: thread count must be positive, got %d",
			types.ErrInvalidConfig, config.Threads)
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	p := &Pool{
		config: config,
		jobs:   make(chan *job, config.Threads),
	}
	for i := 0; i < config.Threads; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p, nil
}

// Map applies fn to every index in [0, numElements), partitioned into
// chunks of at least minChunk indices (minChunk < 1 is coerced to 1).
// Workers claim chunks from a shared atomic cursor until the range is
// exhausted; every index is visited exactly once, in unspecified chunk
// order. Map returns only after all chunks have completed.
//
// Map does not intercept failures inside fn: a panic there takes the
// worker (and the process) down. Callers that need error reporting should
// record into a shared, thread-safe flag and inspect it after Map returns.
func (p *Pool) Map(fn MapFunc, numElements, minChunk int, extra interface{}) error {
	if fn == nil {
		return fmt.Errorf("%w: map function cannot be nil", types.ErrInvalidConfig)
	}

	// The closed-check and the enqueue happen under the same read lock, so
	// a concurrent Close cannot close the jobs channel between them.
	p.mu.RLock()
	if atomic.LoadInt32(&p.closed) == 1 {
		p.mu.RUnlock()
		return types.ErrPoolClosed
	}
	atomic.AddInt64(&p.mapCalls, 1)
	if numElements <= 0 {
		p.mu.RUnlock()
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}

	chunkSize := numElements / (chunksPerThread * p.config.Threads)
	if chunkSize < minChunk {
		chunkSize = minChunk
	}

	j := &job{
		fn:          fn,
		extra:       extra,
		numElements: numElements,
		chunkSize:   chunkSize,
		done:        make(chan struct{}),
	}
	j.wg.Add(p.config.Threads)
	for i := 0; i < p.config.Threads; i++ {
		p.jobs <- j
	}
	p.mu.RUnlock()

	j.wg.Wait()
	close(j.done)
	return nil
}

// worker is the main loop of one persistent worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.runChunks(id, j)
		j.wg.Done()
		// Stay bound to this job until the whole round has completed. A
		// worker that merely ran out of chunks must not pick up the next
		// job: every worker is occupied for the full duration of a Map
		// call, which is what makes a nested Map deadlock instead of
		// being serviced by an early finisher.
		<-j.done
	}
}

// runChunks claims and executes chunks until the job's range is exhausted.
func (p *Pool) runChunks(id int, j *job) {
	clock := p.config.Clock
	observer := p.config.Observer
	for {
		start := int(atomic.AddInt64(&j.cursor, int64(j.chunkSize))) - j.chunkSize
		if start >= j.numElements {
			return
		}
		count := j.chunkSize
		if start+count > j.numElements {
			count = j.numElements - start
		}

		var began time.Time
		if observer != nil {
			began = clock.Now()
		}
		j.fn(start, count, j.extra)
		if observer != nil {
			observer(id, start, count, began, clock.Now())
		}

		atomic.AddInt64(&p.chunksRun, 1)
		atomic.AddInt64(&p.elements, int64(count))
	}
}

// Close signals all workers to terminate and joins them. The pool must not
// be used afterwards; Map returns ErrPoolClosed. Close is idempotent.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		atomic.StoreInt32(&p.closed, 1)
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
	})
	return nil
}

// Size returns the number of worker goroutines.
func (p *Pool) Size() int {
	return p.config.Threads
}

// IsClosed checks if the pool has been closed
func (p *Pool) IsClosed() bool {
	return atomic.LoadInt32(&p.closed) == 1
}

// Stats defines pool statistics
type Stats struct {
	Threads  int
	MapCalls int64
	Chunks   int64
	Elements int64
}

// Stats gets basic pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		Threads:  p.config.Threads,
		MapCalls: atomic.LoadInt64(&p.mapCalls),
		Chunks:   atomic.LoadInt64(&p.chunksRun),
		Elements: atomic.LoadInt64(&p.elements),
	}
}
