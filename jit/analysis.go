package jit

import (
	"fmt"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/xlab/treeprint"
)

// Loop is one matched loop_start/loop_end pair, by instruction index.
type Loop struct {
	Start    int
	End      int
	Depth    int // 1 for an outermost loop
	Children []*Loop
}

// BodyLen returns the number of instructions between the brackets.
func (l *Loop) BodyLen() int {
	return l.End - l.Start - 1
}

// FindLoops matches the brackets of instrs and returns the outermost loops in order.
// It reports the same error kinds as the compiler.
func FindLoops(instrs []Instruction) ([]*Loop, error) {
	var (
		top   []*Loop
		stack []*Loop
	)
	for i, instr := range instrs {
		switch instr {
		case LoopStart:
			l := &Loop{Start: i, Depth: len(stack) + 1}
			if len(stack) == 0 {
				top = append(top, l)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, l)
			}
			stack = append(stack, l)
		case LoopEnd:
			if len(stack) == 0 {
				return nil, &jiterrors.PositionError{Index: i, Err: jiterrors.ErrUnmatchedLoopEnd}
			}
			stack[len(stack)-1].End = i
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return nil, &jiterrors.PositionError{Index: stack[0].Start, Err: jiterrors.ErrUnresolvedLoops}
	}
	return top, nil
}

// MaxDepth returns the deepest nesting level among loops.
func MaxDepth(loops []*Loop) int {
	depth := 0
	for _, l := range loops {
		d := l.Depth
		if c := MaxDepth(l.Children); c > d {
			d = c
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// CountLoops returns the number of loops at every level.
func CountLoops(loops []*Loop) int {
	n := len(loops)
	for _, l := range loops {
		n += CountLoops(l.Children)
	}
	return n
}

// LoopTree renders the loop nesting of instrs.
func LoopTree(instrs []Instruction, loops []*Loop) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("program: %d instructions, %d loops", len(instrs), CountLoops(loops)))
	for _, l := range loops {
		addLoop(tree, instrs, l)
	}
	return tree
}

func addLoop(parent treeprint.Tree, instrs []Instruction, l *Loop) {
	label := fmt.Sprintf("[%d..%d] depth %d, body %d", l.Start, l.End, l.Depth, l.BodyLen())
	if l.BodyLen() <= 16 {
		label += " " + Source(instrs[l.Start:l.End+1])
	}
	branch := parent.AddBranch(label)
	for _, c := range l.Children {
		addLoop(branch, instrs, c)
	}
}
