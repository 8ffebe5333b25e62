package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/core"
)

type programOptions struct {
	raw   bool
	entry uint64
}

func (o *programOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.raw, "raw", false, "Treat the file as a raw image instead of an object listing")
	cmd.Flags().Uint64Var(&o.entry, "entry", 0, "Load address and entry point of a raw image")
}

func newRunCmd(global *globalOptions) *cobra.Command {
	progOpts := &programOptions{}
	var showMem bool

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program until it stops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0], progOpts.raw, progOpts.entry)
			if err != nil {
				return err
			}

			c, err := global.newMachine(cmd, prog)
			if err != nil {
				return err
			}

			result := c.Run(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Program: %s\n", args[0])
			printReport(out, c, result, showMem)

			if result.Reason != core.Halted {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	progOpts.register(cmd)
	cmd.Flags().BoolVar(&showMem, "mem", false, "Print non-zero memory quads")

	return cmd
}

// printReport writes the final machine state.
func printReport(out io.Writer, c *core.Core, result core.Result, showMem bool) {
	stats := c.Stats()

	fmt.Fprintf(out, "Stop reason: %s", result.Reason)
	if status := result.Reason.Status(); status.Terminal() {
		fmt.Fprintf(out, " (%s)", status)
	}
	fmt.Fprintln(out)
	if result.Err != nil {
		fmt.Fprintf(out, "Error: %v\n", result.Err)
	}
	fmt.Fprintf(out, "PC: 0x%x\n", c.Pipeline.PC())
	fmt.Fprintf(out, "Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(out, "Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(out, "CC: %s\n", c.Pipeline.CC())
	fmt.Fprint(out, core.FormatRegisters(c.RegFile().Snapshot()))

	if showMem {
		fmt.Fprintln(out, "Memory:")
		for _, q := range c.Memory().NonZeroQuads() {
			fmt.Fprintf(out, "  0x%04x: 0x%016x\n", q.Addr, q.Value)
		}
	}
}
