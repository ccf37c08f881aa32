//go:build !linux && !darwin

package mmap

import (
	"os"

	"github.com/PlanetSim/SWIFT/pkg/types"
)

func mapFile(f *os.File, length int64) (*Region, error) {
	return nil, types.ErrUnsupported
}

// Sync flushes the mapped region's contents to the backing file.
func (r *Region) Sync() error {
	return types.ErrUnsupported
}

// Unmap releases the mapping.
func (r *Region) Unmap() error {
	return types.ErrUnsupported
}
