package jit

import (
	"context"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/log"
	"github.com/colorfulnotion/bfjit/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/colorfulnotion/bfjit/jit"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

type compilerState uint8

const (
	stateCompiling compilerState = iota
	stateFinalized
	stateFailed
)

// Compiler turns an instruction stream into machine code in a single pass.
// A Compiler is owned by one goroutine; it is not safe for concurrent use.
type Compiler struct {
	buf   *CodeBuffer
	loops LoopResolver
	count int
	state compilerState
}

func NewCompiler() *Compiler {
	return &Compiler{buf: NewCodeBuffer()}
}

// Emit appends the machine code for instr. A loop_end resolves both displacements of its
// loop immediately. An unmatched loop_end is fatal: the compiler discards its state and
// every later call fails with ErrCompilationFinished.
func (c *Compiler) Emit(instr Instruction) error {
	if c.state != stateCompiling {
		return jiterrors.ErrCompilationFinished
	}
	if !instr.Valid() {
		return &jiterrors.PositionError{Index: c.count, Err: jiterrors.ErrInvalidInstruction}
	}
	index := c.count
	c.count++
	end := c.buf.Append(templates[instr].Code)
	switch instr {
	case LoopStart:
		c.loops.Open(end, index)
	case LoopEnd:
		if err := c.closeLoop(end, index); err != nil {
			c.abort()
			return err
		}
	}
	return nil
}

// EmitAll emits instrs in order and stops at the first error.
func (c *Compiler) EmitAll(instrs ...Instruction) error {
	for _, instr := range instrs {
		if err := c.Emit(instr); err != nil {
			return err
		}
	}
	return nil
}

// closeLoop patches the loop that the loop_end ending at end closes.
//
//	forward  = end - start            je target: first byte after the loop_end
//	backward = -(forward + len([))    jmp target: first byte of the loop_start
func (c *Compiler) closeLoop(end Position, index int) error {
	start, openedAt, err := c.loops.Close()
	if err != nil {
		return &jiterrors.PositionError{Index: index, Err: err}
	}
	forward := int32(end - start)
	backward := -(forward + int32(templates[LoopStart].Len()))
	if err := c.buf.PatchRel32(dispEnd(LoopStart, start), forward); err != nil {
		return err
	}
	if err := c.buf.PatchRel32(dispEnd(LoopEnd, end), backward); err != nil {
		return err
	}
	log.Trace(log.JitModule, "loop patched", "open", openedAt, "close", index, "forward", forward, "backward", backward)
	return nil
}

// dispEnd returns where the displacement field of the instr template ending at end stops.
func dispEnd(instr Instruction, end Position) Position {
	t := templates[instr]
	return end - Position(t.Len()) + Position(t.Disp[0]+rel32Size)
}

func (c *Compiler) abort() {
	c.state = stateFailed
	c.buf = nil
	c.loops = LoopResolver{}
}

// Depth returns the number of loops that are open.
func (c *Compiler) Depth() int {
	return c.loops.Depth()
}

// Count returns the number of instructions emitted so far.
func (c *Compiler) Count() int {
	return c.count
}

// Len returns the current buffer length including the prologue, or 0 after a failure.
func (c *Compiler) Len() Position {
	if c.buf == nil {
		return 0
	}
	return c.buf.Len()
}

// Code returns a copy of the prologue and the emitted body so far.
func (c *Compiler) Code() []byte {
	if c.buf == nil {
		return nil
	}
	return c.buf.Bytes()
}

// Image returns the complete routine: prologue, body and epilogue. It does not change the
// compiler state.
func (c *Compiler) Image() ([]byte, error) {
	if c.buf == nil {
		return nil, jiterrors.ErrCompilationFinished
	}
	if pending := c.loops.Pending(); len(pending) > 0 {
		return nil, &jiterrors.PositionError{Index: pending[0], Err: jiterrors.ErrUnresolvedLoops}
	}
	img := make([]byte, 0, int(c.buf.Len())+len(epilogue))
	img = append(img, c.buf.code...)
	img = append(img, epilogue...)
	return img, nil
}

// Finalize maps the image into executable memory and returns the owning handle.
// The compiler accepts no further input afterwards, whether Finalize succeeded or not.
// ctx only carries trace context.
func (c *Compiler) Finalize(ctx context.Context) (*Program, error) {
	if c.state != stateCompiling {
		return nil, jiterrors.ErrCompilationFinished
	}
	_, span := tracer().Start(ctx, telemetry.SpanFinalize, trace.WithAttributes(
		attribute.Int(telemetry.AttrInstructions, c.count),
	))
	defer span.End()

	img, err := c.Image()
	if err != nil {
		c.abort()
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrImageSize, len(img)))

	r, err := mapRegion(img)
	if err != nil {
		c.abort()
		recordSpanError(span, err)
		return nil, err
	}
	c.buf.Seal()
	c.state = stateFinalized
	log.Debug(log.ExecModule, "program finalized", "instructions", c.count, "bytes", len(img))
	return newProgram(r), nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, jiterrors.GetErrorName(err))
}

// Compile emits instrs into a fresh compiler and finalizes it.
func Compile(ctx context.Context, instrs []Instruction) (*Program, error) {
	c := NewCompiler()
	if err := c.EmitAll(instrs...); err != nil {
		return nil, err
	}
	return c.Finalize(ctx)
}

// CompileImage emits instrs into a fresh compiler and returns the unmapped image.
func CompileImage(instrs []Instruction) ([]byte, error) {
	c := NewCompiler()
	if err := c.EmitAll(instrs...); err != nil {
		return nil, err
	}
	return c.Image()
}
