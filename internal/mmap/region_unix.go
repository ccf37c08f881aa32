//go:build linux || darwin

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, length int64) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Region{data: data}, nil
}

// Sync flushes the mapped region's contents to the backing file.
func (r *Region) Sync() error {
	return unix.Msync(r.data, unix.MS_SYNC)
}

// Unmap releases the mapping. The slice returned by Bytes must not be
// used afterwards.
func (r *Region) Unmap() error {
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
