package benchmarks

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteChart renders results as an HTML bar chart of cycles and retired
// instructions per benchmark.
func WriteChart(w io.Writer, results []BenchmarkResult) error {
	names := make([]string, 0, len(results))
	cycles := make([]opts.BarData, 0, len(results))
	instructions := make([]opts.BarData, 0, len(results))

	for _, r := range results {
		names = append(names, r.Name)
		cycles = append(cycles, opts.BarData{
			Name:  fmt.Sprintf("%s (CPI %.3f)", r.Name, r.CPI),
			Value: r.SimulatedCycles,
		})
		instructions = append(instructions, opts.BarData{Value: r.InstructionsRetired})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "y86sim benchmarks",
			Subtitle: "cycles and instructions retired",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("cycles", cycles).
		AddSeries("instructions", instructions)

	return bar.Render(w)
}
