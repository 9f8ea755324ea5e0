// bfjit compiles brainfuck programs to x86-64 machine code and runs them.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colorfulnotion/bfjit/log"
	"github.com/colorfulnotion/bfjit/telemetry"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const serviceName = "bfjit"

type options struct {
	logLevel     string
	debugModules string
	otlpEndpoint string
	history      string
	comments     bool

	telemetry *telemetry.TelemetryClient
}

// extraCommands holds subcommands that only exist under some build tags.
var extraCommands []func(*options) *cobra.Command

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bfjit",
		Short:         "Brainfuck to x86-64 JIT compiler",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.InitLogger(o.logLevel)
			log.EnableModules(o.debugModules)

			o.telemetry = telemetry.NewTelemetryClient(o.otlpEndpoint, serviceName)
			if err := o.telemetry.Connect(cmd.Context()); err != nil {
				return err
			}
			if o.telemetry.Enabled() {
				log.Info(log.ExecModule, "exporting traces", "endpoint", o.otlpEndpoint)
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.logLevel, "log-level", env.Str("BFJIT_LOG_LEVEL", "warn"), "Log level (trace, debug, info, warn, error, crit)")
	flags.StringVar(&o.debugModules, "debug", env.Str("BFJIT_DEBUG"), "Comma separated modules to debug (jit, exec, sandbox, repl, bench or all)")
	flags.StringVar(&o.otlpEndpoint, "otlp-endpoint", env.Str("BFJIT_OTLP_ENDPOINT"), "OTLP/HTTP trace collector host:port; empty disables tracing")
	flags.BoolVar(&o.comments, "comments", env.Bool("BFJIT_COMMENTS"), "Skip characters that are not instructions instead of rejecting them")
	flags.StringVar(&o.history, "history", env.Str("BFJIT_HISTORY", filepath.Join(env.HomeDir(), ".bfjit_history")), "REPL history file")

	rootCmd.AddCommand(newRunCmd(o))
	rootCmd.AddCommand(newReplCmd(o))
	rootCmd.AddCommand(newDisasmCmd(o))
	rootCmd.AddCommand(newLoopsCmd(o))
	rootCmd.AddCommand(newBenchCmd(o))
	for _, c := range extraCommands {
		rootCmd.AddCommand(c(o))
	}
	return rootCmd
}

func main() {
	o := &options{}
	err := newRootCmd(o).ExecuteContext(context.Background())
	if o.telemetry != nil {
		if cerr := o.telemetry.Close(context.Background()); cerr != nil {
			log.Warn(log.ExecModule, "telemetry shutdown failed", "err", cerr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
