package jit

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble renders code as one "offset: bytes  instruction" line per x86-64 instruction.
// Bytes that do not decode are printed as db.
func Disassemble(code []byte) string {
	var sb strings.Builder
	offset := 0
	for offset < len(code) {
		inst, err := decode(code[offset:])
		if err != nil {
			sb.WriteString(fmt.Sprintf("0x%04x: db 0x%02x\n", offset, code[offset]))
			offset++
			continue
		}
		length := inst.Len

		var hexBytes []string
		for i := 0; i < length; i++ {
			hexBytes = append(hexBytes, fmt.Sprintf("%02x", code[offset+i]))
		}
		sb.WriteString(fmt.Sprintf(
			"0x%04x: %-24s %s\n",
			offset,
			strings.Join(hexBytes, " "),
			x86asm.IntelSyntax(inst, uint64(offset), nil),
		))
		offset += length
	}
	return sb.String()
}

// decode wraps x86asm.Decode. A truncated opcode decodes as a bare prefix with no Op and
// no error; that is reported as an error too.
func decode(code []byte) (x86asm.Inst, error) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return inst, err
	}
	if inst.Op == 0 {
		return inst, x86asm.ErrUnrecognized
	}
	return inst, nil
}

// DisassembleInstructions decodes code into instructions, skipping bytes that do not decode.
func DisassembleInstructions(code []byte) []x86asm.Inst {
	var insts []x86asm.Inst
	offset := 0
	for offset < len(code) {
		inst, err := decode(code[offset:])
		if err != nil {
			offset++
			continue
		}
		insts = append(insts, inst)
		offset += inst.Len
	}
	return insts
}
