package main

import (
	"fmt"

	"github.com/colorfulnotion/bfjit/jit"
	"github.com/spf13/cobra"
)

func newDisasmCmd(o *options) *cobra.Command {
	var (
		expr string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "disasm [file|-]",
		Short: "Print the generated machine code",
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
			if raw {
				_, err = cmd.OutOrStdout().Write(img)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "; %d instructions, %d bytes\n", len(instrs), len(img))
			fmt.Fprint(cmd.OutOrStdout(), jit.Disassemble(img))
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Program text instead of a file")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write the raw image bytes")
	return cmd
}

func newLoopsCmd(o *options) *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "loops [file|-]",
		Short: "Print the loop nesting tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instrs, err := loadInstructions(cmd, o, args, expr)
			if err != nil {
				return err
			}
			loops, err := jit.FindLoops(instrs)
			if err != nil {
				return compileFailure(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), jit.LoopTree(instrs, loops).String())
			fmt.Fprintf(cmd.OutOrStdout(), "max depth %d\n", jit.MaxDepth(loops))
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Program text instead of a file")
	return cmd
}
