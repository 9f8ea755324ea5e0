package performance

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartConfig holds configuration for chart generation
type ChartConfig struct {
	PageTitle string
	Width     string
	Height    string
}

// DefaultChartConfig returns default chart configuration
func DefaultChartConfig() *ChartConfig {
	return &ChartConfig{
		PageTitle: "bfjit compile performance",
		Width:     "1200px",
		Height:    "600px",
	}
}

// RenderCharts writes an HTML page with the compile speed and code size charts.
func RenderCharts(w io.Writer, stats []*CompileStats, config *ChartConfig) error {
	if config == nil {
		config = DefaultChartConfig()
	}
	page := components.NewPage()
	page.PageTitle = config.PageTitle
	page.AddCharts(
		compileSpeedChart(stats, config),
		codeSizeChart(stats, config),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}

func initOpts(config *ChartConfig) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: config.PageTitle,
		Width:     config.Width,
		Height:    config.Height,
	})
}

// compileSpeedChart plots average compile time against instruction count
func compileSpeedChart(stats []*CompileStats, config *ChartConfig) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		initOpts(config),
		charts.WithTitleOpts(opts.Title{
			Title:    "Compile Speed: Time vs Instructions",
			Subtitle: "emit + finalize, averaged per program",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "instructions", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "compile time (µs)", Type: "value"}),
	)

	data := make([]opts.ScatterData, 0, len(stats))
	for _, s := range stats {
		data = append(data, opts.ScatterData{
			Name:       s.Name,
			Value:      []interface{}{s.Instructions, float64(s.TotalTime()) / float64(time.Microsecond)},
			SymbolSize: 10,
		})
	}
	scatter.AddSeries("programs", data)
	return scatter
}

// codeSizeChart shows image bytes and decoded x86 instructions per program
func codeSizeChart(stats []*CompileStats, config *ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(config),
		charts.WithTitleOpts(opts.Title{Title: "Generated Code Size"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	names := make([]string, 0, len(stats))
	sizes := make([]opts.BarData, 0, len(stats))
	counts := make([]opts.BarData, 0, len(stats))
	for _, s := range stats {
		names = append(names, s.Name)
		sizes = append(sizes, opts.BarData{Value: s.ImageSize})
		counts = append(counts, opts.BarData{Value: s.X86InstructionCount})
	}
	bar.SetXAxis(names).
		AddSeries("image bytes", sizes).
		AddSeries("x86 instructions", counts)
	return bar
}
