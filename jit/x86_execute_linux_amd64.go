//go:build linux && amd64 && cgo

package jit

/*
#cgo CFLAGS: -Wall
#include <stdint.h>
#include "x86_execute_linux_amd64.h"
*/
import "C"
import "runtime"

// NativeSupported reports whether Program.Run can execute code on this build.
const NativeSupported = true

// invoke calls the zero-argument routine at entry through the C trampoline, which keeps
// rbx intact for the caller.
func invoke(entry uintptr) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	C.bfjit_invoke(C.uintptr_t(entry))
	return nil
}
