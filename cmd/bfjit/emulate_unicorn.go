//go:build unicorn
// +build unicorn

package main

import (
	"os"

	"github.com/colorfulnotion/bfjit/jit"
	"github.com/colorfulnotion/bfjit/jit/sandbox"
	"github.com/spf13/cobra"
)

func init() {
	extraCommands = append(extraCommands, newEmulateCmd)
}

func newEmulateCmd(o *options) *cobra.Command {
	var (
		expr     string
		maxSteps uint64
	)
	cmd := &cobra.Command{
		Use:   "emulate [file|-]",
		Short: "Run a program inside the unicorn x86-64 emulator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instrs, err := loadInstructions(cmd, o, args, expr)
			if err != nil {
				return err
			}
			img, err := jit.CompileImage(instrs)
			if err != nil {
				return compileFailure(err)
			}
			emu, err := sandbox.New(sandbox.Config{
				Stdin:           os.Stdin,
				Stdout:          cmd.OutOrStdout(),
				MaxInstructions: maxSteps,
			})
			if err != nil {
				return err
			}
			defer emu.Close()
			return emu.RunContext(cmd.Context(), img)
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Program text instead of a file")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Stop after this many x86 instructions (0 = no limit)")
	return cmd
}
