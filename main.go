// Package main provides the entry point for y86sim.
// y86sim is a sequential Y86-64 processor simulator.
//
// For the full CLI, use: go run ./cmd/y86sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("y86sim - Y86-64 Sequential Processor Simulator")
	fmt.Println("")
	fmt.Println("Usage: y86sim <command> [options] <program.yo>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run       Run a program until it stops")
	fmt.Println("  disasm    Disassemble a program")
	fmt.Println("  debug     Step through a program interactively")
	fmt.Println("  bench     Run the built-in benchmark programs")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/y86sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/y86sim' instead.")
	}
}
