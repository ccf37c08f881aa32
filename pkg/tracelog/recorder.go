// Package tracelog records per-chunk timing events from a thread pool into
// an append log. Each worker owns a private in-memory buffer that is only
// ever touched by that worker while a Map call is running; Flush drains
// the buffers between parallel rounds and writes one fixed-width text
// record per event, so the append log's single-writer growth discipline
// holds.
package tracelog

import (
	"fmt"
	"time"

	"github.com/eapache/queue"

	"github.com/PlanetSim/SWIFT/pkg/appendlog"
	"github.com/PlanetSim/SWIFT/pkg/types"
)

// Event is one executed chunk: which worker ran it, which index range it
// covered, and when it began and ended.
type Event struct {
	Worker int
	Start  int
	Count  int
	Began  time.Time
	Ended  time.Time
}

// RecordSize is the fixed width in bytes of one flushed record, including
// the trailing newline.
const RecordSize = 4 + 1 + 12 + 1 + 12 + 1 + 20 + 1 + 20 + 1

// recordFormat renders an event into exactly RecordSize bytes.
const recordFormat = "%04d %012d %012d %020d %020d\n"

// Recorder buffers chunk events per worker and flushes them to an append
// log. Observe matches the threadpool.Observer signature and may be called
// concurrently by all workers; Flush must only run while no Map call is in
// flight.
type Recorder struct {
	log     *appendlog.Log
	buffers []*queue.Queue
}

// New creates a Recorder for a pool of the given number of workers,
// writing flushed records to log.
func New(log *appendlog.Log, workers int) (*Recorder, error) {
	if log == nil {
		return nil, fmt.Errorf("%w: log cannot be nil", types.ErrInvalidConfig)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d",
			types.ErrInvalidConfig, workers)
	}
	buffers := make([]*queue.Queue, workers)
	for i := range buffers {
		buffers[i] = queue.New()
	}
	return &Recorder{log: log, buffers: buffers}, nil
}

// Observe appends one chunk event to the buffer of the worker that ran it.
// Each worker only ever touches its own buffer, so no locking is needed.
func (r *Recorder) Observe(worker, start, count int, began, ended time.Time) {
	r.buffers[worker].Add(Event{
		Worker: worker,
		Start:  start,
		Count:  count,
		Began:  began,
		Ended:  ended,
	})
}

// Pending returns the number of buffered events not yet flushed.
func (r *Recorder) Pending() int {
	n := 0
	for _, b := range r.buffers {
		n += b.Length()
	}
	return n
}

// Flush drains all worker buffers into the append log, one fixed-width
// record per event, grouped by worker. It returns the number of records
// written. Flush grows the log as needed and must therefore be sequenced
// against concurrent reservations like any other single-writer operation.
func (r *Recorder) Flush() (int, error) {
	pending := r.Pending()
	if pending == 0 {
		return 0, nil
	}
	if err := r.log.Ensure(int64(pending) * RecordSize); err != nil {
		return 0, err
	}

	written := 0
	for _, b := range r.buffers {
		for b.Length() > 0 {
			ev := b.Remove().(Event)
			buf, _ := r.log.Reserve(RecordSize)
			record := fmt.Sprintf(recordFormat,
				ev.Worker, ev.Start, ev.Count,
				ev.Began.UnixNano(), ev.Ended.UnixNano())
			copy(buf, record)
			written++
		}
	}
	return written, nil
}
