//go:build unix

package jit

import (
	"fmt"
	"unsafe"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/log"
	"golang.org/x/sys/unix"
)

// OS hooks, replaced in tests.
var (
	mmap     = unix.Mmap
	mprotect = unix.Mprotect
	munmap   = unix.Munmap
)

// mapRegion copies image into a fresh private mapping and flips it from RW to RX.
// The mapping is never writable and executable at the same time.
func mapRegion(image []byte) (*region, error) {
	mem, err := mmap(-1, 0, len(image), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jiterrors.ErrAllocationFailed, err)
	}
	copy(mem, image)
	if err := mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		if uerr := munmap(mem); uerr != nil {
			log.Warn(log.ExecModule, "unmap after failed mprotect", "err", uerr)
		}
		return nil, fmt.Errorf("%w: %w", jiterrors.ErrProtectionChangeFailed, err)
	}
	r := &region{
		mem:   mem,
		size:  len(mem),
		entry: uintptr(unsafe.Pointer(&mem[0])),
	}
	r.refs.Store(1)
	log.Debug(log.ExecModule, "mapped program", "bytes", len(mem), "entry", fmt.Sprintf("0x%x", r.entry))
	return r, nil
}

func unmapRegion(r *region) error {
	mem := r.mem
	r.mem = nil
	if err := munmap(mem); err != nil {
		return fmt.Errorf("%w: %w", jiterrors.ErrUnmapFailed, err)
	}
	return nil
}
