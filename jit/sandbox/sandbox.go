//go:build unicorn
// +build unicorn

package sandbox

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/colorfulnotion/bfjit/log"
	"github.com/colorfulnotion/bfjit/telemetry"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pageSize = 0x1000

	// The routine returns into retAddr; emulation stops when rip gets there.
	retAddr   = uint64(0x10000)
	codeBase  = uint64(0x400000)
	stackSize = uint64(0x100000)
	stackTop  = uint64(0x7ff00000)

	sysRead  = 0
	sysWrite = 1

	errnoEIO    = 5
	errnoBADF   = 9
	errnoENOSYS = 38
)

type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	// MaxInstructions bounds a single Run; 0 means no bound.
	MaxInstructions uint64
}

// Emulator is one unicorn instance with a stack, a return page and a code area that is
// replaced on every Run. It is not safe for concurrent use.
type Emulator struct {
	mu  uc.Unicorn
	cfg Config

	codeLen  uint64
	syscalls int
	hookErr  error
}

func New(cfg Config) (*Emulator, error) {
	if cfg.Stdin == nil {
		cfg.Stdin = eofReader{}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_64)
	if err != nil {
		return nil, fmt.Errorf("create unicorn: %w", err)
	}
	e := &Emulator{mu: mu, cfg: cfg}

	stackBase := stackTop - stackSize
	if err := mu.MemMap(stackBase, stackSize); err != nil {
		mu.Close()
		return nil, fmt.Errorf("map stack: %w", err)
	}
	if err := mu.MemProtect(stackBase, stackSize, uc.PROT_READ|uc.PROT_WRITE); err != nil {
		mu.Close()
		return nil, fmt.Errorf("protect stack: %w", err)
	}
	if err := mu.MemMap(retAddr, pageSize); err != nil {
		mu.Close()
		return nil, fmt.Errorf("map return page: %w", err)
	}
	if err := mu.MemProtect(retAddr, pageSize, uc.PROT_ALL); err != nil {
		mu.Close()
		return nil, fmt.Errorf("protect return page: %w", err)
	}

	if _, err := mu.HookAdd(uc.HOOK_INSN, e.onSyscall, 1, 0, uc.X86_INS_SYSCALL); err != nil {
		mu.Close()
		return nil, fmt.Errorf("add syscall hook: %w", err)
	}
	if _, err := mu.HookAdd(uc.HOOK_MEM_INVALID, func(mu uc.Unicorn, access int, addr uint64, size int, value int64) bool {
		rip, _ := mu.RegRead(uc.X86_REG_RIP)
		log.Warn(log.SandboxModule, "invalid memory access", "addr", fmt.Sprintf("0x%x", addr), "size", size, "rip", fmt.Sprintf("0x%x", rip))
		return false
	}, 1, 0); err != nil {
		mu.Close()
		return nil, fmt.Errorf("add memory hook: %w", err)
	}
	return e, nil
}

func (e *Emulator) Close() error {
	if e.mu == nil {
		return nil
	}
	err := e.mu.Close()
	e.mu = nil
	return err
}

// Syscalls returns the number of system calls served by the last Run.
func (e *Emulator) Syscalls() int {
	return e.syscalls
}

// Run loads image and executes it from its first byte until the routine returns.
func (e *Emulator) Run(image []byte) error {
	return e.RunContext(context.Background(), image)
}

// RunContext is Run with trace context.
func (e *Emulator) RunContext(ctx context.Context, image []byte) (err error) {
	_, span := otel.Tracer("github.com/colorfulnotion/bfjit/jit/sandbox").Start(ctx, telemetry.SpanSandboxRun,
		trace.WithAttributes(attribute.Int(telemetry.AttrImageSize, len(image))))
	defer func() {
		span.SetAttributes(attribute.Int(telemetry.AttrSyscalls, e.syscalls))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, jiterrors.GetErrorName(err))
		}
		span.End()
	}()

	if err := e.load(image); err != nil {
		return err
	}
	e.syscalls = 0
	e.hookErr = nil

	opts := &uc.UcOptions{Count: e.cfg.MaxInstructions}
	if err := e.mu.StartWithOptions(codeBase, retAddr, opts); err != nil {
		rip, _ := e.mu.RegRead(uc.X86_REG_RIP)
		return fmt.Errorf("emulation failed at 0x%x: %w", rip, err)
	}
	if e.hookErr != nil {
		return e.hookErr
	}
	rip, err := e.mu.RegRead(uc.X86_REG_RIP)
	if err != nil {
		return fmt.Errorf("read rip: %w", err)
	}
	if rip != retAddr {
		log.Debug(log.SandboxModule, "step limit reached", "rip", fmt.Sprintf("0x%x", rip), "limit", e.cfg.MaxInstructions)
		return fmt.Errorf("%w: %d instructions", jiterrors.ErrStepLimit, e.cfg.MaxInstructions)
	}
	log.Debug(log.SandboxModule, "program returned", "syscalls", e.syscalls)
	return nil
}

// load replaces the code area with image and resets the stack so that the routine
// returns to retAddr.
func (e *Emulator) load(image []byte) error {
	if e.mu == nil {
		return errors.New("emulator closed")
	}
	if e.codeLen > 0 {
		if err := e.mu.MemUnmap(codeBase, e.codeLen); err != nil {
			return fmt.Errorf("unmap code: %w", err)
		}
		e.codeLen = 0
	}
	codeLen := (uint64(len(image)) + pageSize - 1) &^ (pageSize - 1)
	if codeLen == 0 {
		codeLen = pageSize
	}
	if err := e.mu.MemMap(codeBase, codeLen); err != nil {
		return fmt.Errorf("map code: %w", err)
	}
	e.codeLen = codeLen
	if err := e.mu.MemWrite(codeBase, image); err != nil {
		return fmt.Errorf("write code: %w", err)
	}
	if err := e.mu.MemProtect(codeBase, codeLen, uc.PROT_READ|uc.PROT_EXEC); err != nil {
		return fmt.Errorf("protect code: %w", err)
	}

	var ret [8]byte
	binary.LittleEndian.PutUint64(ret[:], retAddr)
	rsp := stackTop - 8
	if err := e.mu.MemWrite(rsp, ret[:]); err != nil {
		return fmt.Errorf("write return address: %w", err)
	}
	if err := e.mu.RegWrite(uc.X86_REG_RSP, rsp); err != nil {
		return fmt.Errorf("set RSP: %w", err)
	}
	if err := e.mu.RegWrite(uc.X86_REG_RBP, 0); err != nil {
		return fmt.Errorf("set RBP: %w", err)
	}
	return nil
}

func (e *Emulator) onSyscall(mu uc.Unicorn) {
	e.syscalls++
	rax, _ := mu.RegRead(uc.X86_REG_RAX)
	rdi, _ := mu.RegRead(uc.X86_REG_RDI)
	rsi, _ := mu.RegRead(uc.X86_REG_RSI)
	rdx, _ := mu.RegRead(uc.X86_REG_RDX)
	log.Trace(log.SandboxModule, "syscall", "nr", rax, "fd", rdi, "buf", fmt.Sprintf("0x%x", rsi), "len", rdx)

	var ret int64
	switch {
	case rax == sysWrite && rdi == 1:
		ret = e.write(mu, rsi, rdx)
	case rax == sysRead && rdi == 0:
		ret = e.read(mu, rsi, rdx)
	case rax == sysWrite || rax == sysRead:
		ret = -errnoBADF
	default:
		ret = -errnoENOSYS
	}
	mu.RegWrite(uc.X86_REG_RAX, uint64(ret))
}

func (e *Emulator) write(mu uc.Unicorn, buf, n uint64) int64 {
	data, err := mu.MemRead(buf, n)
	if err != nil {
		e.fail(mu, fmt.Errorf("write syscall: read guest buffer: %w", err))
		return -errnoEIO
	}
	w, err := e.cfg.Stdout.Write(data)
	if err != nil {
		e.fail(mu, fmt.Errorf("write syscall: %w", err))
		return -errnoEIO
	}
	return int64(w)
}

func (e *Emulator) read(mu uc.Unicorn, buf, n uint64) int64 {
	data := make([]byte, n)
	r, err := e.cfg.Stdin.Read(data)
	if r > 0 {
		if werr := mu.MemWrite(buf, data[:r]); werr != nil {
			e.fail(mu, fmt.Errorf("read syscall: write guest buffer: %w", werr))
			return -errnoEIO
		}
		return int64(r)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		e.fail(mu, fmt.Errorf("read syscall: %w", err))
		return -errnoEIO
	}
	return 0
}

// fail records the first host-side error and stops the emulation.
func (e *Emulator) fail(mu uc.Unicorn, err error) {
	if e.hookErr == nil {
		e.hookErr = err
	}
	mu.Stop()
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
