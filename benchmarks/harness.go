// Package benchmarks provides sample Y86-64 workloads and a harness that runs
// them and reports execution statistics.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/config"
	"github.com/sarchlab/y86sim/core"
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/loader"
)

// BenchmarkResult holds the results of a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark exercises
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// BranchesTaken is the number of taken conditional jumps
	BranchesTaken uint64 `json:"branches_taken"`

	// BranchesNotTaken is the number of fall-through conditional jumps
	BranchesNotTaken uint64 `json:"branches_not_taken"`

	// StopReason is why the machine stopped
	StopReason string `json:"stop_reason"`

	// Result is the final value of %rax
	Result uint64 `json:"result"`

	// Passed is true if the machine halted with the expected result
	Passed bool `json:"passed"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark exercises
	Description string

	// Setup prepares machine state after the program is loaded
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the machine code, loaded at address 0
	Program []byte

	// Expected is the expected final value of %rax
	Expected uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine describes the simulated machine
	Machine *config.MachineConfig

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool

	// Logger receives machine log entries (default: discarded)
	Logger logrus.FieldLogger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	machine := config.DefaultMachineConfig()
	machine.StackPointer = 0x10000
	machine.MaxCycles = 1_000_000

	return HarnessConfig{
		Machine: machine,
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Machine == nil {
		config.Machine = DefaultConfig().Machine
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(ctx, bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s: %s after %d cycles\n",
				result.Name, result.StopReason, result.SimulatedCycles)
		}
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) (BenchmarkResult, error) {
	var opts []core.CoreOption
	if h.config.Logger != nil {
		opts = append(opts, core.WithLogger(h.config.Logger.WithField("benchmark", bench.Name)))
	}

	c, err := core.NewCore(h.config.Machine, opts...)
	if err != nil {
		return BenchmarkResult{}, err
	}

	prog := &loader.Program{
		Segments: []loader.Segment{{VirtAddr: 0, Data: bench.Program}},
	}
	if err := c.Load(prog); err != nil {
		return BenchmarkResult{}, err
	}

	if bench.Setup != nil {
		bench.Setup(c.RegFile(), c.Memory())
	}

	start := time.Now()
	run := c.Run(ctx)
	wallTime := time.Since(start)

	stats := c.Pipeline.Stats()
	rax := c.RegFile().ReadReg(insts.RegRAX)

	return BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		BranchesTaken:       stats.BranchesTaken,
		BranchesNotTaken:    stats.BranchesNotTaken,
		StopReason:          run.Reason.String(),
		Result:              rax,
		Passed:              run.Reason == core.Halted && rax == bench.Expected,
		WallTime:            wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== y86sim Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Stop Reason: %s\n", r.StopReason)
		_, _ = fmt.Fprintf(h.config.Output, "  Result:      %d\n", int64(r.Result))
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		if r.BranchesTaken > 0 || r.BranchesNotTaken > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Branches Taken:       %d\n", r.BranchesTaken)
			_, _ = fmt.Fprintf(h.config.Output, "  Branches Not Taken:   %d\n", r.BranchesNotTaken)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,branches_taken,branches_not_taken,stop_reason,result,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%s,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.BranchesTaken,
			r.BranchesNotTaken,
			r.StopReason,
			int64(r.Result),
			r.Passed,
		)
	}
}

// BenchmarkReport is the complete JSON output format.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Machine is the machine configuration used
	Machine *config.MachineConfig `json:"machine"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks that produced the expected result
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the aggregate cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if r.Passed {
			summary.Passed++
		}
	}
	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Machine:   h.config.Machine,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
