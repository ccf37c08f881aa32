package appendlog

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PlanetSim/SWIFT/internal/testutils"
	"github.com/PlanetSim/SWIFT/pkg/types"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name            string
		initialCapacity int64
		expectError     bool
	}{
		{
			name:            "valid capacity",
			initialCapacity: 1024,
			expectError:     false,
		},
		{
			name:            "tiny capacity rounds up to a page",
			initialCapacity: 140,
			expectError:     false,
		},
		{
			name:            "zero capacity should error",
			initialCapacity: 0,
			expectError:     true,
		},
		{
			name:            "negative capacity should error",
			initialCapacity: -5,
			expectError:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutils.TempFilePath(t, "dump.out")
			log, err := Open(path, tt.initialCapacity)

			if tt.expectError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, types.ErrInvalidConfig)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)

			pageSize := int64(os.Getpagesize())
			assert.Equal(t, int64(0), log.Size())
			assert.GreaterOrEqual(t, log.Capacity(), tt.initialCapacity)
			assert.Zero(t, log.Capacity()%pageSize)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, log.Capacity(), info.Size())

			require.NoError(t, log.Close())
		})
	}
}

func TestLog_ReserveSequential(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	buf, offset := log.Reserve(10)
	assert.Equal(t, int64(0), offset)
	assert.Len(t, buf, 10)

	buf, offset = log.Reserve(32)
	assert.Equal(t, int64(10), offset)
	assert.Len(t, buf, 32)

	assert.Equal(t, int64(42), log.Size())
}

func TestLog_ReserveConcurrentDisjoint(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	const goroutines = 8
	const perGoroutine = 500
	sizes := []int64{3, 7, 11, 16}

	var total int64
	for i := 0; i < goroutines*perGoroutine; i++ {
		total += sizes[i%len(sizes)]
	}
	require.NoError(t, log.Ensure(total))

	type span struct{ offset, size int64 }
	spans := make([][]span, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				size := sizes[(g*perGoroutine+i)%len(sizes)]
				_, offset := log.Reserve(size)
				spans[g] = append(spans[g], span{offset, size})
			}
		}(g)
	}
	wg.Wait()

	var all []span
	for _, s := range spans {
		all = append(all, s...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].offset < all[j].offset })

	// Reservations must exactly tile [0, total) with no overlap or gap.
	var next int64
	for _, s := range all {
		require.Equal(t, next, s.offset)
		next = s.offset + s.size
	}
	assert.Equal(t, total, next)
	assert.Equal(t, total, log.Size())
}

func TestLog_EnsureGrows(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	initial := log.Capacity()

	// Within capacity: no growth.
	require.NoError(t, log.Ensure(initial/2))
	assert.Equal(t, initial, log.Capacity())

	// Beyond capacity: page-rounded growth, file extended to match.
	require.NoError(t, log.Ensure(initial+1))
	assert.Greater(t, log.Capacity(), initial)
	assert.Zero(t, log.Capacity()%int64(os.Getpagesize()))

	info, err := os.Stat(log.Path())
	require.NoError(t, err)
	assert.Equal(t, log.Capacity(), info.Size())
}

func TestLog_EnsureAccountsForCursor(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	capacity := log.Capacity()
	log.Reserve(capacity) // fill the whole mapping

	// Ensure is relative to the cursor, so even a small request must grow.
	require.NoError(t, log.Ensure(1))
	assert.GreaterOrEqual(t, log.Capacity(), capacity+1)

	// The new tail is writable.
	buf, offset := log.Reserve(1)
	assert.Equal(t, capacity, offset)
	buf[0] = 'x'
}

func TestLog_EnsureNegative(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	assert.ErrorIs(t, log.Ensure(-1), types.ErrInvalidConfig)
}

func TestLog_ReserveBeyondCapacityPanics(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	log.Reserve(log.Capacity())
	assert.Panics(t, func() {
		log.Reserve(1)
	})
}

func TestLog_ReserveInvalidSizePanics(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	defer log.Close()

	assert.Panics(t, func() { log.Reserve(0) })
	assert.Panics(t, func() { log.Reserve(-4) })
}

func TestLog_SyncFlushesContent(t *testing.T) {
	path := testutils.TempFilePath(t, "dump.out")
	log, err := Open(path, 1024)
	require.NoError(t, err)
	defer log.Close()

	payload := []byte("hello, dump")
	buf, offset := log.Reserve(int64(len(payload)))
	copy(buf, payload)
	require.NoError(t, log.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, content[offset:offset+int64(len(payload))])
}

func TestLog_CloseTruncatesToCursor(t *testing.T) {
	path := testutils.TempFilePath(t, "dump.out")
	log, err := Open(path, 1024)
	require.NoError(t, err)

	buf, _ := log.Reserve(100)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.Greater(t, log.Capacity(), int64(100))
	require.NoError(t, log.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Size())
}

func TestLog_OperationsAfterClose(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	assert.ErrorIs(t, log.Ensure(10), types.ErrLogClosed)
	assert.ErrorIs(t, log.Sync(), types.ErrLogClosed)
	assert.ErrorIs(t, log.Close(), types.ErrLogClosed)
	assert.Panics(t, func() { log.Reserve(1) })
}

func TestLog_CloseReportsErrorButFinishesTeardown(t *testing.T) {
	log, err := Open(testutils.TempFilePath(t, "dump.out"), 1024)
	require.NoError(t, err)
	log.Reserve(10)

	// Sever the descriptor underneath the log: the mapping survives, but
	// the truncate step must fail.
	require.NoError(t, log.file.Close())

	err = log.Close()
	require.Error(t, err)
	var logErr *types.LogError
	require.ErrorAs(t, err, &logErr)
	assert.Equal(t, "truncate", logErr.Op)

	// The teardown still ran past the failure: the mapping is gone and
	// the log is terminally closed.
	assert.Nil(t, log.data)
	assert.ErrorIs(t, log.Close(), types.ErrLogClosed)
}

func TestLog_OpenTruncatesExistingFile(t *testing.T) {
	path := testutils.TempFilePath(t, "dump.out")
	require.NoError(t, os.WriteFile(path, []byte("leftover from a previous run"), 0o644))

	log, err := Open(path, 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(0), log.Size())
	require.NoError(t, log.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestLog_OpenBadPath(t *testing.T) {
	_, err := Open(testutils.TempFilePath(t, "missing/dir/dump.out"), 1024)
	require.Error(t, err)

	var logErr *types.LogError
	require.ErrorAs(t, err, &logErr)
	assert.Equal(t, "open", logErr.Op)
}

func ExampleLog_Reserve() {
	log, err := Open("/tmp/appendlog_example.out", 1024)
	if err != nil {
		panic(err)
	}
	buf, offset := log.Reserve(6)
	copy(buf, "hello\n")
	fmt.Println(offset)
	log.Close()
	// Output: 0
}
