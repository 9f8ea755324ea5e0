package jit

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/log"
	"github.com/colorfulnotion/bfjit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// region is an executable mapping shared by a group of Program handles.
// refs counts live handles plus in-flight runs; the mapping goes away when it reaches zero.
type region struct {
	mem   []byte
	size  int
	entry uintptr
	refs  atomic.Int32
}

// acquire takes a reference unless the region is already gone.
func (r *region) acquire() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *region) release() error {
	if r.refs.Add(-1) != 0 {
		return nil
	}
	log.Debug(log.ExecModule, "unmapping program", "bytes", r.size)
	return unmapRegion(r)
}

// Program is an owning handle over a finalized routine. Every handle, including those
// returned by Clone, must be released; the mapping is removed when the last one is.
// A handle dropped without Release is released by the garbage collector.
type Program struct {
	r        *region
	released atomic.Bool
}

func newProgram(r *region) *Program {
	p := &Program{r: r}
	runtime.SetFinalizer(p, (*Program).finalize)
	return p
}

func (p *Program) finalize() {
	if err := p.Release(); err != nil {
		log.Warn(log.ExecModule, "release from finalizer failed", "err", err)
	}
}

// Run executes the routine on the calling goroutine and returns when it reaches the
// epilogue. Input and output go straight to file descriptors 0 and 1. There is no way to
// interrupt a running program; ctx only carries trace context.
func (p *Program) Run(ctx context.Context) (err error) {
	if p.released.Load() || !p.r.acquire() {
		return jiterrors.ErrProgramReleased
	}
	defer func() {
		err = errors.Join(err, p.r.release())
	}()

	_, span := tracer().Start(ctx, telemetry.SpanRun, trace.WithAttributes(
		attribute.Int(telemetry.AttrImageSize, p.r.size),
	))
	defer span.End()

	log.Debug(log.ExecModule, "running program", "bytes", p.r.size)
	if err := invoke(p.r.entry); err != nil {
		recordSpanError(span, err)
		return err
	}
	runtime.KeepAlive(p)
	return nil
}

// Clone returns a new handle sharing the same mapping.
func (p *Program) Clone() (*Program, error) {
	if p.released.Load() || !p.r.acquire() {
		return nil, jiterrors.ErrProgramReleased
	}
	return newProgram(p.r), nil
}

// Release gives up this handle's ownership. Calling it more than once is a no-op.
func (p *Program) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(p, nil)
	return p.r.release()
}

// Released reports whether Release was called on this handle.
func (p *Program) Released() bool {
	return p.released.Load()
}

// Size returns the length of the mapped image in bytes.
func (p *Program) Size() int {
	return p.r.size
}
