package jit

import "github.com/colorfulnotion/bfjit/jiterrors"

type openLoop struct {
	end   Position // buffer length right after the loop_start template
	index int      // instruction index of the loop_start
}

// LoopResolver remembers every open loop_start until its loop_end arrives.
// Depth always equals the current loop nesting.
type LoopResolver struct {
	stack []openLoop
}

// Open records a loop_start whose template ends at end.
func (r *LoopResolver) Open(end Position, index int) {
	r.stack = append(r.stack, openLoop{end: end, index: index})
}

// Close pops the innermost open loop and returns where its template ends and its
// instruction index. It fails with ErrUnmatchedLoopEnd when no loop is open.
func (r *LoopResolver) Close() (Position, int, error) {
	if len(r.stack) == 0 {
		return 0, 0, jiterrors.ErrUnmatchedLoopEnd
	}
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return top.end, top.index, nil
}

// Depth returns the number of open loops.
func (r *LoopResolver) Depth() int {
	return len(r.stack)
}

// Pending returns the instruction indices of all open loops, outermost first.
func (r *LoopResolver) Pending() []int {
	out := make([]int, len(r.stack))
	for i, l := range r.stack {
		out[i] = l.index
	}
	return out
}
