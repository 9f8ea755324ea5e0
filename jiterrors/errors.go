package jiterrors

import (
	"errors"
	"fmt"
	"strings"
)

// Loop (L) Errors
var (
	ErrUnmatchedLoopEnd = errors.New("L1|UnmatchedLoopEnd: Loop end without a matching loop start.")
	ErrUnresolvedLoops  = errors.New("L2|UnresolvedLoops: Loop start without a matching loop end.")
)

// Memory (M) Errors
var (
	ErrAllocationFailed       = errors.New("M1|AllocationFailed: Could not map memory for the program.")
	ErrProtectionChangeFailed = errors.New("M2|ProtectionChangeFailed: Could not change memory protection.")
	ErrUnmapFailed            = errors.New("M3|UnmapFailed: Could not unmap program memory.")
)

// Compiler (C) Errors
var (
	ErrInvalidInstruction  = errors.New("C1|InvalidInstruction: Instruction is not one of the eight known kinds.")
	ErrCompilationFinished = errors.New("C2|CompilationFinished: Compiler no longer accepts input.")
)

// Source (S) Errors
var (
	ErrUnexpectedSymbol = errors.New("S1|UnexpectedSymbol: Source contains a symbol that is not an instruction.")
)

// Execution (X) Errors
var (
	ErrProgramReleased     = errors.New("X1|ProgramReleased: Program handle was already released.")
	ErrUnsupportedPlatform = errors.New("X2|UnsupportedPlatform: Native execution requires linux/amd64 with cgo.")
	ErrStepLimit           = errors.New("X3|StepLimit: Instruction budget exhausted before the program returned.")
)

// PositionError ties an error kind to the index of the instruction that caused it.
type PositionError struct {
	Index int
	Err   error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("%s (instruction %d)", e.Err.Error(), e.Index)
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// SymbolError reports an unexpected source byte. Line and Column are 1-based.
type SymbolError struct {
	Line   int
	Column int
	Symbol byte
	Err    error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s (%q at %d:%d)", e.Err.Error(), e.Symbol, e.Line, e.Column)
}

func (e *SymbolError) Unwrap() error {
	return e.Err
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameDesc := parts[1]
	// Split on ':' to separate the error name from its description.
	nameParts := strings.SplitN(nameDesc, ":", 2)
	if len(nameParts) < 1 {
		return errStr
	}
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
// Wrapped errors keep the code of the kind they wrap, as long as the kind comes first.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	parts := strings.SplitN(errStr, ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
