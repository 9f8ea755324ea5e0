//go:build !(linux && amd64 && cgo)

package jit

import (
	"fmt"
	"runtime"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/log"
)

// NativeSupported reports whether Program.Run can execute code on this build.
const NativeSupported = false

func invoke(entry uintptr) error {
	log.Error(log.ExecModule, "native execution is not supported on this platform")
	return fmt.Errorf("%w (GOOS=%s, GOARCH=%s)", jiterrors.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
}
