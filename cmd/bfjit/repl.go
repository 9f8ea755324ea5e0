package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/bfjit/jit"
	"github.com/colorfulnotion/bfjit/log"
	"github.com/spf13/cobra"
)

const (
	promptMain = "bf> "
	promptMore = "... "
)

// replSession feeds lines into one incremental compiler. A program is complete once at
// least one instruction was emitted and every loop is closed.
type replSession struct {
	c             *jit.Compiler
	allowComments bool
	last          []byte // image of the last completed program
}

func newReplSession(allowComments bool) *replSession {
	return &replSession{c: jit.NewCompiler(), allowComments: allowComments}
}

func (s *replSession) reset() {
	s.c = jit.NewCompiler()
}

// feed emits the instructions of line. A lexing error rejects the whole line; a compile
// error discards the pending program.
func (s *replSession) feed(line string) (bool, error) {
	instrs, err := jit.Lex([]byte(line), s.allowComments)
	if err != nil {
		return false, err
	}
	for _, instr := range instrs {
		if err := s.c.Emit(instr); err != nil {
			s.reset()
			return false, err
		}
	}
	return s.c.Count() > 0 && s.c.Depth() == 0, nil
}

func (s *replSession) prompt() string {
	if s.c.Depth() > 0 {
		return promptMore
	}
	return promptMain
}

// finalize maps the pending program and starts a new one.
func (s *replSession) finalize(ctx context.Context) (*jit.Program, error) {
	if img, err := s.c.Image(); err == nil {
		s.last = img
	}
	p, err := s.c.Finalize(ctx)
	s.reset()
	return p, err
}

// disasm lists the pending code, or the last program when nothing is pending.
func (s *replSession) disasm() string {
	if s.c.Count() > 0 {
		return jit.Disassemble(s.c.Code())
	}
	if s.last != nil {
		return jit.Disassemble(s.last)
	}
	return ""
}

func newReplCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session; each balanced input is compiled and run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
}

func runRepl(ctx context.Context, o *options, out io.Writer) error {
	// Initialize readline, supporting arrow keys and command history
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		HistoryFile:     o.history,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	if !jit.NativeSupported {
		fmt.Fprintln(out, "native execution is not available on this build; programs will only be compiled")
	}
	fmt.Fprintln(out, "commands: :quit, :reset, :disasm")

	s := newReplSession(o.comments)
	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return nil
		case ":reset":
			s.reset()
			continue
		case ":disasm":
			fmt.Fprint(out, s.disasm())
			continue
		}

		ready, err := s.feed(line)
		if err != nil {
			fmt.Fprintf(out, "Could not compile program: %v\n", err)
			continue
		}
		if !ready {
			continue
		}
		p, err := s.finalize(ctx)
		if err != nil {
			fmt.Fprintf(out, "Could not compile program: %v\n", err)
			continue
		}
		if err := p.Run(ctx); err != nil {
			fmt.Fprintf(out, "run failed: %v\n", err)
		}
		if err := p.Release(); err != nil {
			log.Warn(log.ReplModule, "release failed", "err", err)
		}
		fmt.Fprintln(out)
	}
}
