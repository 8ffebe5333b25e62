package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sarchlab/y86sim/core"
	"github.com/sarchlab/y86sim/insts"
)

func newDebugCmd(global *globalOptions) *cobra.Command {
	progOpts := &programOptions{}
	var historyFile string

	cmd := &cobra.Command{
		Use:   "debug <program>",
		Short: "Step through a program interactively",
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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "(y86) ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
			})
			if err != nil {
				return fmt.Errorf("failed to start readline: %w", err)
			}
			defer func() { _ = rl.Close() }()

			d := &debugger{ctx: cmd.Context(), core: c, out: rl.Stdout()}
			d.where()

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if d.exec(line) {
					return nil
				}
			}
		},
	}

	progOpts.register(cmd)
	cmd.Flags().StringVar(&historyFile, "history", "", "Path to a command history file")

	return cmd
}

const debugHelp = `Commands:
  step [n]        run n instructions (default 1)
  run             run until the machine stops
  regs            print registers
  cc              print condition codes
  mem <addr> [n]  print n quads starting at addr (default 1)
  stages          print the committed stage registers
  reset           reload the program
  help            print this help
  quit            leave the debugger
`

// debugger interprets debugger commands against a core.
type debugger struct {
	ctx  context.Context
	core *core.Core
	out  io.Writer
}

// exec runs one command line and returns true when the session should end.
func (d *debugger) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "step", "s":
		n := uint64(1)
		if len(args) > 0 {
			v, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil || v == 0 {
				fmt.Fprintf(d.out, "bad count %q\n", args[0])
				return false
			}
			n = v
		}
		d.step(n)
	case "run", "r", "c":
		d.core.Run(d.ctx)
		d.where()
	case "regs":
		fmt.Fprint(d.out, core.FormatRegisters(d.core.RegFile().Snapshot()))
	case "cc":
		cc := d.core.Pipeline.CC()
		fmt.Fprintf(d.out, "%s (0x%03x)\n", cc, cc.Pack())
	case "mem", "x":
		d.mem(args)
	case "stages":
		fmt.Fprint(d.out, core.FormatSnapshot(d.core.Snapshot()))
	case "reset":
		d.core.Reset()
		d.where()
	case "help", "h", "?":
		fmt.Fprint(d.out, debugHelp)
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(d.out, "unknown command %q, try help\n", cmd)
	}
	return false
}

func (d *debugger) step(n uint64) {
	for i := uint64(0); i < n; i++ {
		if err := d.core.Tick(); err != nil {
			break
		}
	}
	d.where()
}

// where prints the next instruction or the stop reason.
func (d *debugger) where() {
	if d.core.Halted() {
		result := d.core.Result()
		fmt.Fprintf(d.out, "stopped: %s after %d cycles\n", result.Reason, result.Cycles)
		if result.Err != nil {
			fmt.Fprintf(d.out, "  %v\n", result.Err)
		}
		return
	}

	pc := d.core.Pipeline.PC()
	memory := d.core.Memory()
	var code []byte
	if pc < memory.Size() {
		code, _ = memory.PeekBytes(pc, int(min(10, memory.Size()-pc)))
	}

	inst, err := insts.NewDecoder().Decode(code)
	if err != nil {
		fmt.Fprintf(d.out, "0x%x: (bad)\n", pc)
		return
	}
	fmt.Fprintf(d.out, "0x%x: %s\n", pc, inst)
}

func (d *debugger) mem(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "usage: mem <addr> [n]")
		return
	}

	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		fmt.Fprintf(d.out, "bad address %q\n", args[0])
		return
	}
	n := uint64(1)
	if len(args) > 1 {
		if n, err = strconv.ParseUint(args[1], 0, 64); err != nil {
			fmt.Fprintf(d.out, "bad count %q\n", args[1])
			return
		}
	}

	addr &^= 7
	for i := uint64(0); i < n; i++ {
		a := addr + i*8
		v, err := d.core.Memory().PeekLong(a)
		if err != nil {
			fmt.Fprintf(d.out, "0x%04x: %v\n", a, err)
			return
		}
		fmt.Fprintf(d.out, "0x%04x: 0x%016x\n", a, v)
	}
}
