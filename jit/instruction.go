package jit

import "fmt"

// Instruction is one of the eight primitive operations of the source language.
type Instruction uint8

const (
	MoveRight Instruction = iota
	MoveLeft
	Increment
	Decrement
	Output
	Input
	LoopStart
	LoopEnd

	numInstructions
)

var instructionNames = [numInstructions]string{
	MoveRight: "move_right",
	MoveLeft:  "move_left",
	Increment: "incr",
	Decrement: "decr",
	Output:    "output",
	Input:     "input",
	LoopStart: "loop_start",
	LoopEnd:   "loop_end",
}

var instructionSymbols = [numInstructions]byte{
	MoveRight: '>',
	MoveLeft:  '<',
	Increment: '+',
	Decrement: '-',
	Output:    '.',
	Input:     ',',
	LoopStart: '[',
	LoopEnd:   ']',
}

// Valid reports whether i is one of the eight defined instructions.
func (i Instruction) Valid() bool {
	return i < numInstructions
}

func (i Instruction) String() string {
	if !i.Valid() {
		return fmt.Sprintf("Instruction(%d)", uint8(i))
	}
	return instructionNames[i]
}

// Symbol returns the source character for i, or 0 for an invalid value.
func (i Instruction) Symbol() byte {
	if !i.Valid() {
		return 0
	}
	return instructionSymbols[i]
}

// FromSymbol maps a source character to its instruction.
func FromSymbol(c byte) (Instruction, bool) {
	switch c {
	case '>':
		return MoveRight, true
	case '<':
		return MoveLeft, true
	case '+':
		return Increment, true
	case '-':
		return Decrement, true
	case '.':
		return Output, true
	case ',':
		return Input, true
	case '[':
		return LoopStart, true
	case ']':
		return LoopEnd, true
	}
	return 0, false
}
