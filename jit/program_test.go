//go:build linux

package jit

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sys/unix"
)

// countUnmaps wraps munmap for the duration of the test.
func countUnmaps(t *testing.T) *int {
	t.Helper()
	var (
		mu sync.Mutex
		n  int
	)
	orig := munmap
	munmap = func(b []byte) error {
		mu.Lock()
		n++
		mu.Unlock()
		return orig(b)
	}
	t.Cleanup(func() { munmap = orig })
	return &n
}

// mappingPerms returns the permission column of the /proc/self/maps entry holding addr.
func mappingPerms(t *testing.T, addr uintptr) string {
	t.Helper()
	f, err := os.Open("/proc/self/maps")
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		var lo, hi uintptr
		if _, err := fmt.Sscanf(fields[0], "%x-%x", &lo, &hi); err != nil {
			continue
		}
		if addr >= lo && addr < hi {
			return fields[1]
		}
	}
	return ""
}

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Compile(context.Background(), mustLex(t, src))
	require.NoError(t, err)
	return p
}

func TestFinalizedRegionIsExecutableNotWritable(t *testing.T) {
	p := compileSource(t, "+[-].")
	defer p.Release()

	perms := mappingPerms(t, p.r.entry)
	require.NotEmpty(t, perms)
	assert.Equal(t, "r-x", perms[:3])

	img, err := CompileImage(mustLex(t, "+[-]."))
	require.NoError(t, err)
	assert.Equal(t, len(img), p.Size())
	assert.Equal(t, img, p.r.mem)
}

func TestReleaseUnmapsOnce(t *testing.T) {
	unmaps := countUnmaps(t)
	p := compileSource(t, "++")

	clones := make([]*Program, 3)
	for i := range clones {
		c, err := p.Clone()
		require.NoError(t, err)
		clones[i] = c
	}
	require.NoError(t, p.Release())
	require.NoError(t, p.Release(), "second release is a no-op")
	assert.True(t, p.Released())
	assert.Zero(t, *unmaps)

	_, err := p.Clone()
	assert.ErrorIs(t, err, jiterrors.ErrProgramReleased)
	assert.ErrorIs(t, p.Run(context.Background()), jiterrors.ErrProgramReleased)

	for _, c := range clones[:2] {
		require.NoError(t, c.Release())
	}
	assert.Zero(t, *unmaps)
	require.NoError(t, clones[2].Release())
	assert.Equal(t, 1, *unmaps)
	assert.Nil(t, p.r.mem)
}

func TestConcurrentRelease(t *testing.T) {
	unmaps := countUnmaps(t)
	p := compileSource(t, "+")
	handles := []*Program{p}
	for i := 0; i < 15; i++ {
		c, err := p.Clone()
		require.NoError(t, err)
		handles = append(handles, c)
	}
	var wg sync.WaitGroup
	for _, h := range handles {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(h *Program) {
				defer wg.Done()
				assert.NoError(t, h.Release())
			}(h)
		}
	}
	wg.Wait()
	assert.Equal(t, 1, *unmaps)
}

func TestAllocationFailure(t *testing.T) {
	orig := mmap
	mmap = func(int, int64, int, int, int) ([]byte, error) { return nil, unix.ENOMEM }
	t.Cleanup(func() { mmap = orig })

	c := NewCompiler()
	require.NoError(t, c.Emit(Increment))
	_, err := c.Finalize(context.Background())
	assert.ErrorIs(t, err, jiterrors.ErrAllocationFailed)
	assert.ErrorIs(t, err, unix.ENOMEM)
	assert.Equal(t, "M1", jiterrors.GetErrorCode(err))
	assert.ErrorIs(t, c.Emit(Increment), jiterrors.ErrCompilationFinished)
}

func TestProtectionChangeFailure(t *testing.T) {
	unmaps := countUnmaps(t)
	orig := mprotect
	mprotect = func([]byte, int) error { return unix.EACCES }
	t.Cleanup(func() { mprotect = orig })

	_, err := Compile(context.Background(), mustLex(t, "+."))
	assert.ErrorIs(t, err, jiterrors.ErrProtectionChangeFailed)
	assert.ErrorIs(t, err, unix.EACCES)
	assert.Equal(t, 1, *unmaps, "the writable mapping must not leak")
}

func TestUnmapFailureIsReported(t *testing.T) {
	orig := munmap
	munmap = func(b []byte) error {
		_ = orig(b)
		return unix.EINVAL
	}
	t.Cleanup(func() { munmap = orig })

	p := compileSource(t, "+")
	err := p.Release()
	assert.ErrorIs(t, err, jiterrors.ErrUnmapFailed)
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestFinalizeAfterFinalize(t *testing.T) {
	c := NewCompiler()
	p, err := c.Finalize(context.Background())
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, len(prologue)+len(epilogue), p.Size())

	_, err = c.Finalize(context.Background())
	assert.ErrorIs(t, err, jiterrors.ErrCompilationFinished)
	assert.ErrorIs(t, c.Emit(Increment), jiterrors.ErrCompilationFinished)
	img, err := c.Image()
	require.NoError(t, err, "the finalized image stays readable")
	assert.Len(t, img, p.Size())
}

func TestFinalizeSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p := compileSource(t, "+[-]")
	require.NoError(t, p.Release())

	_, err := Compile(context.Background(), mustLex(t, "[["))
	require.Error(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, telemetry.SpanFinalize, ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.Int(telemetry.AttrInstructions, 4))
	assert.Contains(t, ended[0].Attributes(), attribute.Int(telemetry.AttrImageSize, p.Size()))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "UnresolvedLoops", ended[1].Status().Description)
}
