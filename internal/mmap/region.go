// Package mmap provides a minimal abstraction over a file-backed,
// read-write shared memory mapping. A Region owns the mapped bytes for
// one contiguous prefix of a file; growing a file means unmapping the
// old Region and mapping a new, larger one.
package mmap

import (
	"os"
)

// Region is an owned file-backed memory mapping.
type Region struct {
	data []byte
}

// Bytes returns the mapped byte slice. The slice is invalidated by Unmap.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the length of the mapping in bytes.
func (r *Region) Len() int64 {
	return int64(len(r.data))
}

// Map maps the first length bytes of f for shared read-write access.
// The file must already be at least length bytes long.
func Map(f *os.File, length int64) (*Region, error) {
	return mapFile(f, length)
}
