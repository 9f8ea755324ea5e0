//go:build linux && amd64 && cgo

package jit

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// runWithStdio runs p with fd 0 reading stdin and fd 1 captured, and returns what it wrote.
func runWithStdio(t *testing.T, p *Program, stdin []byte) []byte {
	t.Helper()
	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	defer inR.Close()
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outR.Close()

	_, err = inW.Write(stdin)
	require.NoError(t, err)
	require.NoError(t, inW.Close())

	savedIn, err := unix.Dup(0)
	require.NoError(t, err)
	savedOut, err := unix.Dup(1)
	require.NoError(t, err)
	require.NoError(t, unix.Dup2(int(inR.Fd()), 0))
	require.NoError(t, unix.Dup2(int(outW.Fd()), 1))

	runErr := p.Run(context.Background())

	require.NoError(t, unix.Dup2(savedIn, 0))
	require.NoError(t, unix.Dup2(savedOut, 1))
	unix.Close(savedIn)
	unix.Close(savedOut)
	require.NoError(t, outW.Close())

	require.NoError(t, runErr)
	out, err := io.ReadAll(outR)
	require.NoError(t, err)
	return out
}

func runSource(t *testing.T, src string, stdin []byte) []byte {
	t.Helper()
	p := compileSource(t, src)
	defer p.Release()
	return runWithStdio(t, p, stdin)
}

func TestRunOutput(t *testing.T) {
	assert.True(t, NativeSupported)
	out := runSource(t, strings.Repeat("+", 65)+".", nil)
	assert.Equal(t, []byte("A"), out)
}

func TestRunEcho(t *testing.T) {
	assert.Equal(t, []byte{0x41}, runSource(t, ",.", []byte{0x41}))
}

func TestRunInputAtEOFKeepsCell(t *testing.T) {
	assert.Equal(t, []byte{7, 7}, runSource(t, "+++++++.,.", nil))
}

func TestRunClearLoopThenOutput(t *testing.T) {
	out := runSource(t, "+[[-]]"+strings.Repeat("+", 65)+".", nil)
	assert.Equal(t, []byte("A"), out)
}

func TestRunSkipsLoopOnZeroCell(t *testing.T) {
	assert.Equal(t, []byte{0}, runSource(t, "[+.].", nil))
}

func TestRunCellsWrap(t *testing.T) {
	assert.Equal(t, []byte{0xff, 0x00}, runSource(t, "-.+.", nil))
}

func TestRunNestedLoops(t *testing.T) {
	assert.Equal(t, []byte{12}, runSource(t, "++[>+++[>++<-]<-]>>.", nil))
}

func TestRunTapeStartsZeroed(t *testing.T) {
	// Walk right across the first cells and print each one.
	out := runSource(t, strings.Repeat(".>", 64), nil)
	assert.Equal(t, make([]byte, 64), out)
}

func TestRunHelloWorld(t *testing.T) {
	const hello = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."
	assert.Equal(t, "Hello World!\n", string(runSource(t, hello, nil)))
}

func TestRunIsRepeatable(t *testing.T) {
	p := compileSource(t, ",[.,]")
	defer p.Release()
	assert.Equal(t, []byte("abc"), runWithStdio(t, p, []byte("abc\x00")))
	assert.Equal(t, []byte("xyz"), runWithStdio(t, p, []byte("xyz\x00")))
}

func TestRunThroughClone(t *testing.T) {
	unmaps := countUnmaps(t)
	p := compileSource(t, strings.Repeat("+", 66)+".")
	c, err := p.Clone()
	require.NoError(t, err)
	require.NoError(t, p.Release())
	assert.ErrorIs(t, p.Run(context.Background()), jiterrors.ErrProgramReleased)

	assert.Equal(t, []byte("B"), runWithStdio(t, c, nil))
	require.NoError(t, c.Release())
	assert.Equal(t, 1, *unmaps)
}
