package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/colorfulnotion/bfjit/log"
	"github.com/colorfulnotion/bfjit/performance"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newBenchCmd(o *options) *cobra.Command {
	var (
		runs      int
		chartPath string
		jsonPath  string
	)
	cmd := &cobra.Command{
		Use:   "bench file...",
		Short: "Measure compile time and generated code size",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats []*performance.CompileStats
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				s, err := performance.BenchmarkSource(cmd.Context(), filepath.Base(path), src, o.comments, runs)
				if err != nil {
					return fmt.Errorf("%s: %w", path, compileFailure(err))
				}
				log.Debug(log.BenchModule, "benchmarked", "program", s.Name, "emit", s.EmitTime, "finalize", s.FinalizeTime)
				stats = append(stats, s)
			}
			report := performance.NewReport(stats)
			printStats(cmd, report)

			if jsonPath != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				if err := os.WriteFile(jsonPath, data, 0644); err != nil {
					return fmt.Errorf("failed to write JSON: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved JSON results: %s\n", jsonPath)
			}
			if chartPath != "" {
				f, err := os.Create(chartPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := performance.RenderCharts(f, stats, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved chart: %s\n", chartPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 5, "Compilations per program")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML chart page to this path")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Write the JSON report to this path")
	return cmd
}

func printStats(cmd *cobra.Command, report *performance.Report) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"program", "instr", "loops", "depth", "bytes", "x86", "emit", "finalize"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range report.Programs {
		table.Append([]string{
			s.Name,
			strconv.Itoa(s.Instructions),
			strconv.Itoa(s.Loops),
			strconv.Itoa(s.MaxDepth),
			strconv.Itoa(s.ImageSize),
			strconv.Itoa(s.X86InstructionCount),
			s.EmitTime.String(),
			s.FinalizeTime.String(),
		})
	}
	agg := report.Aggregate
	table.SetFooter([]string{
		"total",
		strconv.Itoa(agg.TotalInstructions),
		strconv.Itoa(agg.TotalLoops),
		"",
		strconv.Itoa(agg.TotalImageSize),
		strconv.Itoa(agg.TotalX86Instructions),
		"",
		agg.TotalCompileTime.String(),
	})
	table.Render()
}
