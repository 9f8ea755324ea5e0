package jit

// TapeSize is the number of one-byte cells reserved in the generated routine's frame.
const TapeSize = 30000

// rel32Size is the width of every displacement field.
const rel32Size = 4

// Template is the fixed machine code for one instruction. Disp holds the offsets into Code
// where a little-endian rel32 displacement field starts; those bytes are zero until patched.
type Template struct {
	Name string
	Code []byte
	Disp []int
}

// Len returns the template length in bytes.
func (t Template) Len() int {
	return len(t.Code)
}

/*
Register and frame layout of the generated routine:

	rbp           frame base; the tape is [rbp-TapeSize, rbp)
	rbx           current tape offset, 0 on entry
	[rbp+rbx-0x7530]  current cell

rax/rdi/rsi/rdx/rcx/r11 are clobbered by the read/write system calls.
*/
var prologue = []byte{
	0x55,                                     // push rbp
	0x48, 0x89, 0xe5,                         // mov rbp, rsp
	0x48, 0x81, 0xec, 0x30, 0x75, 0x00, 0x00, // sub rsp, 0x7530
	0x48, 0x89, 0xe7,                         // mov rdi, rsp
	0x48, 0xc7, 0xc1, 0x30, 0x75, 0x00, 0x00, // mov rcx, 0x7530
	0x31, 0xc0,                               // xor eax, eax
	0xfc,                                     // cld
	0xf3, 0xaa,                               // rep stosb
	0x48, 0x31, 0xdb,                         // xor rbx, rbx
}

var epilogue = []byte{
	0xc9, // leave
	0xc3, // ret
}

var templates = [numInstructions]Template{
	MoveRight: {
		Name: "move_right",
		Code: []byte{
			0xff, 0xc3, // inc ebx
		},
	},
	MoveLeft: {
		Name: "move_left",
		Code: []byte{
			0xff, 0xcb, // dec ebx
		},
	},
	Increment: {
		Name: "incr",
		Code: []byte{
			0xfe, 0x84, 0x1d, 0xd0, 0x8a, 0xff, 0xff, // inc byte ptr [rbp+rbx*1-0x7530]
		},
	},
	Decrement: {
		Name: "decr",
		Code: []byte{
			0xfe, 0x8c, 0x1d, 0xd0, 0x8a, 0xff, 0xff, // dec byte ptr [rbp+rbx*1-0x7530]
		},
	},
	Output: {
		Name: "output",
		Code: []byte{
			0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00, // mov rax, 1 (write)
			0x48, 0xc7, 0xc7, 0x01, 0x00, 0x00, 0x00, // mov rdi, 1 (stdout)
			0x48, 0x8d, 0xb4, 0x1d, 0xd0, 0x8a, 0xff, 0xff, // lea rsi, [rbp+rbx*1-0x7530]
			0x48, 0xc7, 0xc2, 0x01, 0x00, 0x00, 0x00, // mov rdx, 1
			0x0f, 0x05, // syscall
		},
	},
	Input: {
		Name: "input",
		Code: []byte{
			0x48, 0xc7, 0xc0, 0x00, 0x00, 0x00, 0x00, // mov rax, 0 (read)
			0x48, 0xc7, 0xc7, 0x00, 0x00, 0x00, 0x00, // mov rdi, 0 (stdin)
			0x48, 0x8d, 0xb4, 0x1d, 0xd0, 0x8a, 0xff, 0xff, // lea rsi, [rbp+rbx*1-0x7530]
			0x48, 0xc7, 0xc2, 0x01, 0x00, 0x00, 0x00, // mov rdx, 1
			0x0f, 0x05, // syscall
		},
	},
	LoopStart: {
		Name: "loop_start",
		Code: []byte{
			0x80, 0xbc, 0x1d, 0xd0, 0x8a, 0xff, 0xff, 0x00, // cmp byte ptr [rbp+rbx*1-0x7530], 0
			0x0f, 0x84, 0x00, 0x00, 0x00, 0x00, // je rel32
		},
		Disp: []int{10},
	},
	LoopEnd: {
		Name: "loop_end",
		Code: []byte{
			0xe9, 0x00, 0x00, 0x00, 0x00, // jmp rel32
		},
		Disp: []int{1},
	},
}

// TemplateFor returns the template of instr. The returned Code must not be modified.
// It panics for values outside the eight instructions.
func TemplateFor(instr Instruction) Template {
	if !instr.Valid() {
		panic("jit: no template for " + instr.String())
	}
	return templates[instr]
}

// Prologue returns a copy of the routine entry sequence.
func Prologue() []byte {
	return append([]byte(nil), prologue...)
}

// Epilogue returns a copy of the routine exit sequence.
func Epilogue() []byte {
	return append([]byte(nil), epilogue...)
}
