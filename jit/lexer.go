package jit

import "github.com/colorfulnotion/bfjit/jiterrors"

// Lex maps source text to instructions one symbol at a time. Line breaks separate lines
// and are otherwise ignored. Any other byte that is not an instruction symbol is an error,
// unless allowComments is set, in which case it is skipped.
func Lex(src []byte, allowComments bool) ([]Instruction, error) {
	out := make([]Instruction, 0, len(src))
	line, col := 1, 0
	for _, c := range src {
		switch c {
		case '\n':
			line++
			col = 0
			continue
		case '\r':
			continue
		}
		col++
		if instr, ok := FromSymbol(c); ok {
			out = append(out, instr)
			continue
		}
		if allowComments {
			continue
		}
		return nil, &jiterrors.SymbolError{Line: line, Column: col, Symbol: c, Err: jiterrors.ErrUnexpectedSymbol}
	}
	return out, nil
}

// Source renders instrs back to their symbols.
func Source(instrs []Instruction) string {
	b := make([]byte, len(instrs))
	for i, instr := range instrs {
		b[i] = instr.Symbol()
	}
	return string(b)
}
