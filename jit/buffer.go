package jit

import (
	"encoding/binary"
	"fmt"
)

// Position is a byte offset into a CodeBuffer.
type Position int

// CodeBuffer accumulates emitted machine code in program order. It only grows; the one
// in-place mutation allowed is patching a rel32 field that is already inside the buffer.
// After Seal, appends and patches are programming errors and panic.
type CodeBuffer struct {
	code   []byte
	sealed bool
}

// NewCodeBuffer returns a buffer that starts with the routine prologue.
func NewCodeBuffer() *CodeBuffer {
	b := &CodeBuffer{code: make([]byte, 0, 4096)}
	b.Append(prologue)
	return b
}

// Append copies p to the end of the buffer and returns the position just past it.
func (b *CodeBuffer) Append(p []byte) Position {
	b.mustNotBeSealed("append")
	b.code = append(b.code, p...)
	return b.Len()
}

// Len returns the position one past the last byte.
func (b *CodeBuffer) Len() Position {
	return Position(len(b.code))
}

// PatchRel32 writes v as a little-endian int32 into the four bytes ending at end.
func (b *CodeBuffer) PatchRel32(end Position, v int32) error {
	b.mustNotBeSealed("patch")
	start := end - rel32Size
	if start < 0 || end > b.Len() {
		return fmt.Errorf("rel32 field [%d, %d) outside buffer of %d bytes", start, end, b.Len())
	}
	binary.LittleEndian.PutUint32(b.code[start:end], uint32(v))
	return nil
}

// Rel32At reads the rel32 field ending at end.
func (b *CodeBuffer) Rel32At(end Position) int32 {
	return int32(binary.LittleEndian.Uint32(b.code[end-rel32Size : end]))
}

// Bytes returns a copy of the buffer contents.
func (b *CodeBuffer) Bytes() []byte {
	return append([]byte(nil), b.code...)
}

// Seal marks the buffer immutable.
func (b *CodeBuffer) Seal() {
	b.sealed = true
}

// Sealed reports whether Seal was called.
func (b *CodeBuffer) Sealed() bool {
	return b.sealed
}

func (b *CodeBuffer) mustNotBeSealed(op string) {
	if b.sealed {
		panic(fmt.Sprintf("jit: %s on sealed code buffer (%d bytes)", op, len(b.code)))
	}
}
