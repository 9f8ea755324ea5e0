package main

import (
	"github.com/colorfulnotion/bfjit/jit"
	"github.com/colorfulnotion/bfjit/log"
	"github.com/spf13/cobra"
)

func newRunCmd(o *options) *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Compile a program and run it natively",
		Long: `Compiles the program to x86-64, maps it executable and calls it.
The program reads file descriptor 0 and writes file descriptor 1 directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instrs, err := loadInstructions(cmd, o, args, expr)
			if err != nil {
				return err
			}
			prog, err := jit.Compile(cmd.Context(), instrs)
			if err != nil {
				return compileFailure(err)
			}
			defer func() {
				if err := prog.Release(); err != nil {
					log.Warn(log.ExecModule, "release failed", "err", err)
				}
			}()
			log.Debug(log.ExecModule, "starting program", "instructions", len(instrs), "bytes", prog.Size())
			return prog.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&expr, "expr", "e", "", "Program text to run instead of a file")
	return cmd
}
