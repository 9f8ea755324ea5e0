package jit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	img, err := CompileImage(mustLex(t, "[-]"))
	require.NoError(t, err)
	out := Disassemble(img)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9+4+2)
	assert.True(t, strings.HasPrefix(lines[0], "0x0000: 55 "), lines[0])
	assert.Contains(t, lines[7], "stosb")
	assert.Contains(t, lines[len(lines)-1], "ret")
	assert.Contains(t, out, "jmp ")
}

func TestDisassembleBadBytes(t *testing.T) {
	out := Disassemble([]byte{0xc3, 0x0f})
	assert.Contains(t, out, "0x0000: c3")
	assert.Contains(t, out, "0x0001: db 0x0f")
}

func TestTruncatedOpcodeIsNotAnInstruction(t *testing.T) {
	insts := DisassembleInstructions([]byte{0xc3, 0x0f})
	require.Len(t, insts, 1)
	assert.Equal(t, "RET", insts[0].Op.String())

	out := Disassemble([]byte{0x48})
	assert.Equal(t, "0x0000: db 0x48\n", out)
	assert.Empty(t, DisassembleInstructions([]byte{0x48}))
}
