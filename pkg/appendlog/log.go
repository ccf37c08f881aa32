package appendlog

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/PlanetSim/SWIFT/internal/mmap"
	"github.com/PlanetSim/SWIFT/pkg/types"
)

// Log is an append-only, file-backed byte buffer shared by many writers.
// Reserve hands out disjoint byte ranges through a single atomic cursor;
// the buffer content itself is never contended because every caller writes
// only into its own reservation.
//
// Ensure, Sync and Close are single-writer operations: they must not run
// concurrently with each other or with in-flight Reserve calls. Growth
// remaps the backing file and would invalidate slices a concurrent
// reserver might still be writing through. The usual discipline is to call
// Ensure before launching a parallel round and Sync/Close after it has
// completed.
type Log struct {
	path     string
	file     *os.File
	region   *mmap.Region
	data     []byte
	cursor   int64 // atomic; next unreserved byte offset
	capacity int64
	pageSize int64
	closed   bool
}

// Open creates (or truncates) the backing file at path, extends it to at
// least initialCapacity bytes rounded up to a whole page, and maps it for
// writing. The cursor starts at zero.
func Open(path string, initialCapacity int64) (*Log, error) {
	if initialCapacity <= 0 {
		return nil, fmt.Errorf("%w: initial capacity must be positive, got %d",
			types.ErrInvalidConfig, initialCapacity)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, types.NewLogError("open", path, err)
	}

	l := &Log{
		path:     path,
		file:     f,
		pageSize: int64(os.Getpagesize()),
	}
	capacity := roundUpPage(initialCapacity, l.pageSize)
	if err := f.Truncate(capacity); err != nil {
		f.Close()
		return nil, types.NewLogError("extend", path, err)
	}
	region, err := mmap.Map(f, capacity)
	if err != nil {
		f.Close()
		return nil, types.NewLogError("map", path, err)
	}
	l.region = region
	l.data = region.Bytes()
	l.capacity = capacity
	return l, nil
}

// Ensure grows the capacity so that at least n more bytes fit beyond the
// current cursor. If no growth is needed it is a no-op. Growth unmaps the
// region, extends the file by whole pages and remaps it.
//
// Ensure must not race any Reserve call; see the type comment.
func (l *Log) Ensure(n int64) error {
	if l.closed {
		return types.ErrLogClosed
	}
	if n < 0 {
		return fmt.Errorf("%w: ensure size must be non-negative, got %d",
			types.ErrInvalidConfig, n)
	}
	required := atomic.LoadInt64(&l.cursor) + n
	if required <= l.capacity {
		return nil
	}

	newCapacity := roundUpPage(required, l.pageSize)
	if err := l.region.Unmap(); err != nil {
		return types.NewLogError("unmap", l.path, err)
	}
	if err := l.file.Truncate(newCapacity); err != nil {
		return types.NewLogError("extend", l.path, err)
	}
	region, err := mmap.Map(l.file, newCapacity)
	if err != nil {
		return types.NewLogError("map", l.path, err)
	}
	l.region = region
	l.data = region.Bytes()
	l.capacity = newCapacity
	return nil
}

// Reserve claims the next size bytes of the log and returns the claimed
// sub-slice together with its offset from the start of the file. The
// caller writes exactly size bytes into the slice; no further coordination
// is needed. Reserve is safe to call from arbitrarily many goroutines
// concurrently; the only shared state it touches is one atomic counter.
//
// Racing ahead of capacity is a programmer error, not a recoverable
// condition: a reservation that would extend past the mapped region
// panics instead of corrupting adjacent memory. Call Ensure first.
func (l *Log) Reserve(size int64) ([]byte, int64) {
	if size <= 0 {
		panic(fmt.Sprintf("appendlog: reserve size must be positive, got %d", size))
	}
	if l.closed {
		panic("appendlog: reserve on closed log")
	}
	offset := atomic.AddInt64(&l.cursor, size) - size
	if offset+size > l.capacity {
		panic(fmt.Sprintf(
			"appendlog: reservation [%d, %d) exceeds capacity %d of %s; call Ensure before reserving",
			offset, offset+size, l.capacity, l.path))
	}
	return l.data[offset : offset+size : offset+size], offset
}

// Sync flushes the mapped region's current contents to the backing file.
// It alters neither cursor nor capacity.
func (l *Log) Sync() error {
	if l.closed {
		return types.ErrLogClosed
	}
	if err := l.region.Sync(); err != nil {
		return types.NewLogError("sync", l.path, err)
	}
	return nil
}

// Close flushes the log, truncates the backing file to exactly the bytes
// reserved so far (discarding the unused tail capacity), unmaps the region
// and releases the file. A failing step does not stop the teardown: the
// remaining steps still run, the descriptor is always released, and the
// first failure is returned. The log must not be used afterwards.
func (l *Log) Close() error {
	if l.closed {
		return types.ErrLogClosed
	}
	l.closed = true

	var firstErr error
	if err := l.region.Sync(); err != nil {
		firstErr = types.NewLogError("sync", l.path, err)
	}
	if err := l.region.Unmap(); err != nil && firstErr == nil {
		firstErr = types.NewLogError("unmap", l.path, err)
	}
	l.data = nil
	if err := l.file.Truncate(atomic.LoadInt64(&l.cursor)); err != nil && firstErr == nil {
		firstErr = types.NewLogError("truncate", l.path, err)
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = types.NewLogError("close", l.path, err)
	}
	return firstErr
}

// Size returns the number of bytes reserved so far.
func (l *Log) Size() int64 {
	return atomic.LoadInt64(&l.cursor)
}

// Capacity returns the committed length of the backing store.
func (l *Log) Capacity() int64 {
	return l.capacity
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// roundUpPage rounds n up to the next multiple of pageSize.
func roundUpPage(n, pageSize int64) int64 {
	return (n + pageSize - 1) &^ (pageSize - 1)
}
