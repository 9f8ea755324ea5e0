package jit

import (
	"testing"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionSymbols(t *testing.T) {
	for i := Instruction(0); i < numInstructions; i++ {
		got, ok := FromSymbol(i.Symbol())
		require.True(t, ok, i.String())
		assert.Equal(t, i, got)
	}
	_, ok := FromSymbol('a')
	assert.False(t, ok)
	assert.False(t, Instruction(8).Valid())
	assert.Equal(t, "Instruction(8)", Instruction(8).String())
	assert.Zero(t, Instruction(8).Symbol())
}

func TestLex(t *testing.T) {
	instrs, err := Lex([]byte("+-<>\r\n.,[]\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []Instruction{
		Increment, Decrement, MoveLeft, MoveRight, Output, Input, LoopStart, LoopEnd,
	}, instrs)
	assert.Equal(t, "+-<>.,[]", Source(instrs))
}

func TestLexUnexpectedSymbol(t *testing.T) {
	_, err := Lex([]byte("++\n+ x"), false)
	require.ErrorIs(t, err, jiterrors.ErrUnexpectedSymbol)
	var serr *jiterrors.SymbolError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Line)
	assert.Equal(t, 2, serr.Column)
	assert.Equal(t, byte(' '), serr.Symbol)
}

func TestLexComments(t *testing.T) {
	instrs, err := Lex([]byte("add two: ++ # done\n[-] clear"), true)
	require.NoError(t, err)
	assert.Equal(t, "++[-]", Source(instrs))
}

func TestLexCRLFColumns(t *testing.T) {
	_, err := Lex([]byte("++\r\n+\r\n-x"), false)
	var serr *jiterrors.SymbolError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 3, serr.Line)
	assert.Equal(t, 2, serr.Column)
}
