// Package core provides the simulated machine: a register file, memory and
// the sequential pipeline, driven cycle by cycle until a stop condition.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/config"
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/loader"
	"github.com/sarchlab/y86sim/pipeline"
)

// Driver errors.
var (
	// ErrCycleLimit is returned once the configured cycle limit is reached.
	ErrCycleLimit = errors.New("cycle limit reached")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("stopped")
)

// StopReason tells why the machine stopped.
type StopReason int

// Stop reasons.
const (
	Running StopReason = iota
	Halted
	InvalidInstruction
	InvalidAddress
	OutOfMemory
	CycleLimit
	Canceled
	InternalError
)

var stopReasonNames = map[StopReason]string{
	Running:            "running",
	Halted:             "halted",
	InvalidInstruction: "invalid instruction",
	InvalidAddress:     "invalid address",
	OutOfMemory:        "out of memory",
	CycleLimit:         "cycle limit",
	Canceled:           "canceled",
	InternalError:      "internal error",
}

func (r StopReason) String() string {
	if name, ok := stopReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Status returns the machine status code matching the reason. Driver-only
// reasons map to AOK.
func (r StopReason) Status() insts.Status {
	switch r {
	case Halted:
		return insts.StatHLT
	case InvalidInstruction:
		return insts.StatINS
	case InvalidAddress:
		return insts.StatADR
	case OutOfMemory:
		return insts.StatOOM
	default:
		return insts.StatAOK
	}
}

// classify maps a Tick error to its stop reason.
func classify(err error) StopReason {
	switch {
	case errors.Is(err, pipeline.ErrHalted):
		return Halted
	case errors.Is(err, pipeline.ErrInvalidInstruction):
		return InvalidInstruction
	case errors.Is(err, emu.ErrInvalidAddress):
		return InvalidAddress
	case errors.Is(err, emu.ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, ErrCycleLimit):
		return CycleLimit
	case errors.Is(err, ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return Canceled
	default:
		return InternalError
	}
}

// Result is the outcome of Run.
type Result struct {
	// Reason is why the machine stopped.
	Reason StopReason
	// Cycles is the total number of cycles run since the last reset.
	Cycles uint64
	// Err is the stop error. It is nil when the machine halted.
	Err error
}

// Stats holds execution statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// BranchesTaken is the number of taken conditional jumps.
	BranchesTaken uint64
	// BranchesNotTaken is the number of fall-through conditional jumps.
	BranchesNotTaken uint64
	// ByClass counts retired instructions per class.
	ByClass map[insts.Class]uint64
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithLogger sets the logger used by the core and its pipeline.
func WithLogger(logger logrus.FieldLogger) CoreOption {
	return func(c *Core) {
		c.logger = logger
	}
}

// Core is the simulated machine.
type Core struct {
	// Pipeline is the underlying five-phase pipeline.
	Pipeline *pipeline.Pipeline

	config  *config.MachineConfig
	regFile *emu.RegFile
	memory  *emu.Memory
	program *loader.Program
	logger  logrus.FieldLogger

	reason  StopReason
	stopErr error
}

// NewCore builds a machine from cfg.
func NewCore(cfg *config.MachineConfig, opts ...CoreOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}

	c := &Core{
		config:  cfg.Clone(),
		regFile: emu.NewRegFile(cfg.Registers),
		memory: emu.NewMemory(
			emu.WithSize(cfg.MemorySize),
			emu.WithMaxPages(cfg.MaxPages),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}

	c.Pipeline = pipeline.NewPipeline(c.regFile, c.memory, pipeline.WithLogger(c.logger))
	c.Reset()

	return c, nil
}

// Config returns a copy of the machine configuration.
func (c *Core) Config() *config.MachineConfig {
	return c.config.Clone()
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Load resets the machine, copies the program into memory and points the
// PC at its entry. %rsp is set from the program, or from the configured
// stack pointer when the program has none.
func (c *Core) Load(prog *loader.Program) error {
	c.program = prog
	c.Reset()
	return c.stopErr
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.Pipeline.SetPC(pc)
}

// Tick runs one cycle. Once the machine has stopped, Tick returns the same
// stop error without running anything.
func (c *Core) Tick() error {
	if c.reason != Running {
		return c.stopErr
	}

	if limit := c.config.MaxCycles; limit != 0 && c.Pipeline.Stats().Cycles >= limit {
		c.stop(fmt.Errorf("%w: %d cycles", ErrCycleLimit, limit))
		return c.stopErr
	}

	if err := c.Pipeline.Cycle(); err != nil {
		c.stop(err)
		return c.stopErr
	}
	return nil
}

// Run ticks until the machine stops or ctx is done.
func (c *Core) Run(ctx context.Context) Result {
	for c.reason == Running {
		if err := ctx.Err(); err != nil {
			c.stop(err)
			break
		}
		_ = c.Tick()
	}
	return c.Result()
}

// RunCycles runs at most n cycles. It returns true if the machine is still
// running.
func (c *Core) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && c.reason == Running; i++ {
		_ = c.Tick()
	}
	return c.reason == Running
}

// Halted returns true once the machine has stopped for any reason.
func (c *Core) Halted() bool {
	return c.reason != Running
}

// StopReason returns why the machine stopped, or Running.
func (c *Core) StopReason() StopReason {
	return c.reason
}

// Result returns the current outcome.
func (c *Core) Result() Result {
	r := Result{Reason: c.reason, Cycles: c.Pipeline.Stats().Cycles}
	if c.reason != Halted {
		r.Err = c.stopErr
	}
	return r
}

// Stop stops a running machine. It has no effect on a stopped one.
func (c *Core) Stop() {
	if c.reason == Running {
		c.stop(ErrStopped)
	}
}

func (c *Core) stop(err error) {
	c.reason = classify(err)
	c.stopErr = err

	entry := c.logger.WithFields(logrus.Fields{
		"reason": c.reason.String(),
		"pc":     fmt.Sprintf("0x%x", c.Pipeline.PC()),
		"cycles": c.Pipeline.Stats().Cycles,
	})
	if c.reason == Halted {
		entry.Info("machine halted")
	} else {
		entry.WithError(err).Info("machine stopped")
	}
}

// Reset clears registers, memory and pipeline state, then reloads the
// program if one was loaded.
func (c *Core) Reset() {
	c.regFile.Reset()
	c.memory.Reset()
	c.Pipeline.Reset()
	c.Pipeline.SetCC(c.config.InitialCC.CC())

	c.reason = Running
	c.stopErr = nil

	sp := c.config.StackPointer

	if c.program != nil {
		if err := c.program.LoadIntoMemory(c.memory); err != nil {
			c.stop(err)
			return
		}
		c.Pipeline.SetPC(c.program.EntryPoint)
		if c.program.InitialSP != 0 {
			sp = c.program.InitialSP
		}
	}

	if sp != 0 {
		c.regFile.WriteReg(insts.RegRSP, sp)
	}
}

// Stats returns execution statistics.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	return Stats{
		Cycles:           s.Cycles,
		Instructions:     s.Instructions,
		BranchesTaken:    s.BranchesTaken,
		BranchesNotTaken: s.BranchesNotTaken,
		ByClass:          s.ByClass,
	}
}

// Snapshot returns the committed pipeline state.
func (c *Core) Snapshot() pipeline.Snapshot {
	return c.Pipeline.Snapshot()
}
