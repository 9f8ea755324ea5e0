package main

import (
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/bfjit/jit"
	"github.com/spf13/cobra"
)

// readSource returns the program given by -e, the file named by args[0], or stdin when
// there is no argument or it is "-".
func readSource(cmd *cobra.Command, args []string, expr string) (string, []byte, error) {
	if expr != "" {
		return "-e", []byte(expr), nil
	}
	if len(args) == 0 || args[0] == "-" {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", nil, fmt.Errorf("read stdin: %w", err)
		}
		return "stdin", src, nil
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, err
	}
	return args[0], src, nil
}

func loadInstructions(cmd *cobra.Command, o *options, args []string, expr string) ([]jit.Instruction, error) {
	_, src, err := readSource(cmd, args, expr)
	if err != nil {
		return nil, err
	}
	instrs, err := jit.Lex(src, o.comments)
	if err != nil {
		return nil, compileFailure(err)
	}
	return instrs, nil
}

func compileFailure(err error) error {
	return fmt.Errorf("Could not compile program: %w", err)
}
