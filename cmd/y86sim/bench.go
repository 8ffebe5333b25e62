package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/benchmarks"
)

func newBenchCmd(global *globalOptions) *cobra.Command {
	var csvOutput, jsonOutput, coreOnly bool
	var chartPath string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in benchmark programs",
		Long: `bench runs the built-in workloads on fresh machines and reports cycles,
instructions retired and CPI for each. A benchmark passes when the machine
halts with the expected value in %rax.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvOutput && jsonOutput {
				return fmt.Errorf("--csv and --json are mutually exclusive")
			}

			machine, err := global.machineConfig()
			if err != nil {
				return err
			}
			defaults := benchmarks.DefaultConfig().Machine
			if machine.StackPointer == 0 {
				machine.StackPointer = defaults.StackPointer
			}
			if machine.MaxCycles == 0 {
				machine.MaxCycles = defaults.MaxCycles
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Machine: machine,
				Output:  cmd.OutOrStdout(),
				Logger:  global.newLogger(machine, cmd.ErrOrStderr()),
			})
			if coreOnly {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results, err := harness.RunAll(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case csvOutput:
				harness.PrintCSV(results)
			case jsonOutput:
				if err := harness.PrintJSON(results); err != nil {
					return err
				}
			default:
				harness.PrintResults(results)
			}

			if chartPath != "" {
				if err := writeChartFile(chartPath, results); err != nil {
					return err
				}
			}

			for _, r := range results {
				if !r.Passed {
					return &exitError{code: 1}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&csvOutput, "csv", false, "Output results in CSV format")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	cmd.Flags().BoolVar(&coreOnly, "core", false, "Run only the quick core set")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Also write an HTML bar chart of the results to this file")

	return cmd
}

func writeChartFile(path string, results []benchmarks.BenchmarkResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := benchmarks.WriteChart(f, results); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return f.Close()
}
