package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/loader"
)

func newDisasmCmd() *cobra.Command {
	progOpts := &programOptions{}

	cmd := &cobra.Command{
		Use:   "disasm <program>",
		Short: "Disassemble a program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0], progOpts.raw, progOpts.entry)
			if err != nil {
				return err
			}
			disassemble(cmd.OutOrStdout(), prog)
			return nil
		},
	}

	progOpts.register(cmd)

	return cmd
}

// disassemble prints every segment as a yas-style listing. Bytes that do not
// decode are printed one at a time as .byte directives.
func disassemble(out io.Writer, prog *loader.Program) {
	decoder := insts.NewDecoder()

	for _, seg := range prog.Segments {
		for off := uint64(0); off < uint64(len(seg.Data)); {
			addr := seg.VirtAddr + off
			code := seg.Data[off:]

			inst, err := decoder.Decode(code)
			if err != nil {
				fmt.Fprintf(out, "0x%03x: %-20s | .byte 0x%02x\n", addr, hex.EncodeToString(code[:1]), code[0])
				off++
				continue
			}

			fmt.Fprintf(out, "0x%03x: %-20s | %s\n", addr, hex.EncodeToString(code[:inst.Length]), inst)
			off += inst.Length
		}
	}
}
