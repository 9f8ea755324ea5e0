//go:build !unix

package jit

import (
	"fmt"
	"runtime"

	"github.com/colorfulnotion/bfjit/jiterrors"
)

func mapRegion(image []byte) (*region, error) {
	return nil, fmt.Errorf("%w: no executable mappings on %s/%s", jiterrors.ErrAllocationFailed, runtime.GOOS, runtime.GOARCH)
}

func unmapRegion(r *region) error {
	return nil
}
