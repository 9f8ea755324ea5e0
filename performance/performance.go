package performance

import (
	"context"
	"time"

	"github.com/colorfulnotion/bfjit/jit"
)

// CompileStats contains performance statistics for a single compilation
type CompileStats struct {
	Name string `json:"name"`

	// Source statistics
	Instructions int `json:"instructions"`
	Loops        int `json:"loops"`
	MaxDepth     int `json:"max_depth"`

	// Timing, averaged over Runs compilations
	Runs         int           `json:"runs"`
	EmitTime     time.Duration `json:"emit_time"`
	FinalizeTime time.Duration `json:"finalize_time"`
	MinTotalTime time.Duration `json:"min_total_time"`
	MaxTotalTime time.Duration `json:"max_total_time"`

	// X86 statistics
	ImageSize           int `json:"image_size"`
	X86InstructionCount int `json:"x86_instruction_count"`

	// Ratios
	BytesPerInstruction float64 `json:"bytes_per_instruction"`
	X86PerInstruction   float64 `json:"x86_per_instruction"`
}

// TotalTime is the average time from the first Emit to a mapped program.
func (s *CompileStats) TotalTime() time.Duration {
	return s.EmitTime + s.FinalizeTime
}

// AggregateStats contains aggregated statistics across all programs
type AggregateStats struct {
	TotalPrograms int `json:"total_programs"`

	TotalCompileTime   time.Duration `json:"total_compile_time"`
	AverageCompileTime time.Duration `json:"average_compile_time"`
	MinCompileTime     time.Duration `json:"min_compile_time"`
	MaxCompileTime     time.Duration `json:"max_compile_time"`

	TotalInstructions    int `json:"total_instructions"`
	TotalLoops           int `json:"total_loops"`
	TotalImageSize       int `json:"total_image_size"`
	TotalX86Instructions int `json:"total_x86_instructions"`

	AverageBytesPerInstruction float64 `json:"average_bytes_per_instruction"`
	AverageX86PerInstruction   float64 `json:"average_x86_per_instruction"`
}

// Report is the output of one bench invocation.
type Report struct {
	Programs    []*CompileStats `json:"programs"`
	Aggregate   *AggregateStats `json:"aggregate"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Benchmark compiles instrs runs times and measures the emit and finalize phases.
// Every finalized program is released before the next run.
func Benchmark(ctx context.Context, name string, instrs []jit.Instruction, runs int) (*CompileStats, error) {
	if runs < 1 {
		runs = 1
	}
	loops, err := jit.FindLoops(instrs)
	if err != nil {
		return nil, err
	}
	stats := &CompileStats{
		Name:         name,
		Instructions: len(instrs),
		Loops:        jit.CountLoops(loops),
		MaxDepth:     jit.MaxDepth(loops),
		Runs:         runs,
	}

	var emitTotal, finalizeTotal time.Duration
	for i := 0; i < runs; i++ {
		c := jit.NewCompiler()
		start := time.Now()
		if err := c.EmitAll(instrs...); err != nil {
			return nil, err
		}
		emitted := time.Now()
		p, err := c.Finalize(ctx)
		if err != nil {
			return nil, err
		}
		done := time.Now()
		emitTotal += emitted.Sub(start)
		finalizeTotal += done.Sub(emitted)
		total := done.Sub(start)
		if i == 0 || total < stats.MinTotalTime {
			stats.MinTotalTime = total
		}
		if total > stats.MaxTotalTime {
			stats.MaxTotalTime = total
		}

		if i == 0 {
			img, err := c.Image()
			if err != nil {
				p.Release()
				return nil, err
			}
			stats.ImageSize = len(img)
			stats.X86InstructionCount = len(jit.DisassembleInstructions(img))
		}
		if err := p.Release(); err != nil {
			return nil, err
		}
	}
	stats.EmitTime = emitTotal / time.Duration(runs)
	stats.FinalizeTime = finalizeTotal / time.Duration(runs)

	if stats.Instructions > 0 {
		stats.BytesPerInstruction = float64(stats.ImageSize) / float64(stats.Instructions)
		stats.X86PerInstruction = float64(stats.X86InstructionCount) / float64(stats.Instructions)
	}
	return stats, nil
}

// BenchmarkSource lexes src and benchmarks the result.
func BenchmarkSource(ctx context.Context, name string, src []byte, allowComments bool, runs int) (*CompileStats, error) {
	instrs, err := jit.Lex(src, allowComments)
	if err != nil {
		return nil, err
	}
	return Benchmark(ctx, name, instrs, runs)
}

// CalculateAggregate computes aggregate statistics from a slice of CompileStats
func CalculateAggregate(stats []*CompileStats) *AggregateStats {
	if len(stats) == 0 {
		return &AggregateStats{}
	}

	agg := &AggregateStats{
		TotalPrograms:  len(stats),
		MinCompileTime: stats[0].TotalTime(),
		MaxCompileTime: stats[0].TotalTime(),
	}

	var totalBytesRatio, totalX86Ratio float64
	for _, s := range stats {
		t := s.TotalTime()
		agg.TotalCompileTime += t
		if t < agg.MinCompileTime {
			agg.MinCompileTime = t
		}
		if t > agg.MaxCompileTime {
			agg.MaxCompileTime = t
		}

		agg.TotalInstructions += s.Instructions
		agg.TotalLoops += s.Loops
		agg.TotalImageSize += s.ImageSize
		agg.TotalX86Instructions += s.X86InstructionCount

		totalBytesRatio += s.BytesPerInstruction
		totalX86Ratio += s.X86PerInstruction
	}

	agg.AverageCompileTime = agg.TotalCompileTime / time.Duration(len(stats))
	agg.AverageBytesPerInstruction = totalBytesRatio / float64(len(stats))
	agg.AverageX86PerInstruction = totalX86Ratio / float64(len(stats))
	return agg
}

// NewReport bundles stats with their aggregate.
func NewReport(stats []*CompileStats) *Report {
	return &Report{
		Programs:    stats,
		Aggregate:   CalculateAggregate(stats),
		GeneratedAt: time.Now().UTC(),
	}
}
