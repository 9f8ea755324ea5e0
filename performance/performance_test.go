//go:build unix

package performance

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/colorfulnotion/bfjit/jiterrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkClearLoop(t *testing.T) {
	stats, err := BenchmarkSource(context.Background(), "clear", []byte("[-]"), false, 3)
	require.NoError(t, err)

	assert.Equal(t, "clear", stats.Name)
	assert.Equal(t, 3, stats.Instructions)
	assert.Equal(t, 1, stats.Loops)
	assert.Equal(t, 1, stats.MaxDepth)
	assert.Equal(t, 3, stats.Runs)
	// prologue 29, loop_start 14, decr 7, loop_end 5, epilogue 2
	assert.Equal(t, 57, stats.ImageSize)
	assert.Equal(t, 9+2+1+1+2, stats.X86InstructionCount)
	assert.InDelta(t, 19.0, stats.BytesPerInstruction, 1e-9)
	assert.LessOrEqual(t, stats.MinTotalTime, stats.MaxTotalTime)
}

func TestBenchmarkRejectsBadPrograms(t *testing.T) {
	_, err := BenchmarkSource(context.Background(), "open", []byte("[["), false, 1)
	assert.ErrorIs(t, err, jiterrors.ErrUnresolvedLoops)

	_, err = BenchmarkSource(context.Background(), "junk", []byte("+x"), false, 1)
	assert.ErrorIs(t, err, jiterrors.ErrUnexpectedSymbol)
}

func TestCalculateAggregate(t *testing.T) {
	assert.Equal(t, &AggregateStats{}, CalculateAggregate(nil))

	stats := []*CompileStats{
		{Name: "a", Instructions: 10, Loops: 1, ImageSize: 100, X86InstructionCount: 20,
			EmitTime: 2 * time.Microsecond, FinalizeTime: 8 * time.Microsecond, BytesPerInstruction: 10, X86PerInstruction: 2},
		{Name: "b", Instructions: 30, Loops: 3, ImageSize: 300, X86InstructionCount: 60,
			EmitTime: 10 * time.Microsecond, FinalizeTime: 20 * time.Microsecond, BytesPerInstruction: 20, X86PerInstruction: 4},
	}
	agg := CalculateAggregate(stats)
	assert.Equal(t, 2, agg.TotalPrograms)
	assert.Equal(t, 40*time.Microsecond, agg.TotalCompileTime)
	assert.Equal(t, 20*time.Microsecond, agg.AverageCompileTime)
	assert.Equal(t, 10*time.Microsecond, agg.MinCompileTime)
	assert.Equal(t, 30*time.Microsecond, agg.MaxCompileTime)
	assert.Equal(t, 40, agg.TotalInstructions)
	assert.Equal(t, 4, agg.TotalLoops)
	assert.Equal(t, 400, agg.TotalImageSize)
	assert.Equal(t, 80, agg.TotalX86Instructions)
	assert.InDelta(t, 15.0, agg.AverageBytesPerInstruction, 1e-9)
	assert.InDelta(t, 3.0, agg.AverageX86PerInstruction, 1e-9)
}

func TestReportJSON(t *testing.T) {
	stats, err := BenchmarkSource(context.Background(), "inc", []byte("+++"), false, 1)
	require.NoError(t, err)
	data, err := json.Marshal(NewReport([]*CompileStats{stats}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"inc"`)
	assert.Contains(t, string(data), `"total_programs":1`)
}

func TestRenderCharts(t *testing.T) {
	stats, err := BenchmarkSource(context.Background(), "nested", []byte("++[>+++[>++<-]<-]"), false, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderCharts(&buf, []*CompileStats{stats}, nil))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Compile Speed: Time vs Instructions")
	assert.Contains(t, html, "Generated Code Size")
	assert.Contains(t, html, "nested")
}
