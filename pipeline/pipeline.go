// Package pipeline implements the five-phase sequential Y86-64 processor:
// fetch, decode, execute, memory and write-back. Phases communicate only
// through staged register banks. A bank is committed right after the phase
// that produces it, so one instruction flows through all five phases per
// cycle.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// Errors returned by Cycle.
var (
	// ErrHalted is returned when a halt instruction retires.
	ErrHalted = errors.New("halted")
	// ErrInvalidInstruction is returned for an invalid opcode or register.
	ErrInvalidInstruction = errors.New("invalid instruction")
	// ErrInternal wraps a staged-register discipline violation.
	ErrInternal = errors.New("internal error")
)

// Statistics holds execution statistics.
type Statistics struct {
	// Cycles is the number of cycles run, including the faulting one.
	Cycles uint64
	// Instructions is the number of instructions retired with AOK.
	Instructions uint64
	// ByClass counts retired instructions per class.
	ByClass map[insts.Class]uint64
	// BranchesTaken is the number of retired JXX whose condition held.
	BranchesTaken uint64
	// BranchesNotTaken is the number of retired JXX whose condition failed.
	BranchesNotTaken uint64
	// MovesSkipped is the number of cmovXX whose condition failed.
	MovesSkipped uint64
}

// CPI returns the cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

func (s Statistics) clone() Statistics {
	c := s
	c.ByClass = make(map[insts.Class]uint64, len(s.ByClass))
	for k, v := range s.ByClass {
		c.ByClass[k] = v
	}
	return c
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger receiving per-instruction debug entries.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline is the sequential processor.
type Pipeline struct {
	regFile *emu.RegFile
	memory  *emu.Memory

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	fetchRegs     *Bank[FetchRegs, *FetchRegs]
	decodeRegs    *Bank[DecodeRegs, *DecodeRegs]
	executeRegs   *Bank[ExecuteRegs, *ExecuteRegs]
	memoryRegs    *Bank[MemoryRegs, *MemoryRegs]
	writebackRegs *Bank[WritebackRegs, *WritebackRegs]
	programRegs   *Bank[ProgramRegs, *ProgramRegs]

	logger logrus.FieldLogger
	stats  Statistics
}

// NewPipeline creates a pipeline over the given register file and memory.
// The PC starts at 0 and the condition codes at insts.DefaultCC.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile: regFile,
		memory:  memory,

		fetchStage:     NewFetchStage(memory),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory),
		writebackStage: NewWritebackStage(regFile),

		fetchRegs:     NewBank[FetchRegs]("F"),
		decodeRegs:    NewBank[DecodeRegs]("D"),
		executeRegs:   NewBank[ExecuteRegs]("E"),
		memoryRegs:    NewBank[MemoryRegs]("M"),
		writebackRegs: NewBank[WritebackRegs]("W"),
		programRegs:   NewBank[ProgramRegs]("P"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.logger = l
	}

	p.Reset()

	return p
}

// SetPC sets the committed program counter.
func (p *Pipeline) SetPC(pc uint64) {
	p.programRegs.Committed().PC.seed(pc)
}

// PC returns the committed program counter.
func (p *Pipeline) PC() uint64 {
	return peek(&p.programRegs.Committed().PC)
}

// SetCC sets the committed condition codes.
func (p *Pipeline) SetCC(cc insts.CC) {
	p.programRegs.Committed().CC.seed(cc)
}

// CC returns the committed condition codes.
func (p *Pipeline) CC() insts.CC {
	return peek(&p.programRegs.Committed().CC)
}

// Reset clears every stage register, the statistics, and sets PC to 0 and
// the condition codes to insts.DefaultCC. The register file and memory are
// left untouched.
func (p *Pipeline) Reset() {
	p.fetchRegs.Reset()
	p.decodeRegs.Reset()
	p.executeRegs.Reset()
	p.memoryRegs.Reset()
	p.writebackRegs.Reset()
	p.programRegs.Reset()

	p.SetPC(0)
	p.SetCC(insts.DefaultCC)

	p.stats = Statistics{ByClass: make(map[insts.Class]uint64)}
}

// Cycle runs one instruction through all five phases. It returns nil if the
// instruction retired with AOK. Otherwise the PC is left unchanged and the
// error wraps ErrHalted, ErrInvalidInstruction, emu.ErrInvalidAddress or
// emu.ErrOutOfMemory. A staged register discipline violation is returned
// wrapped in ErrInternal.
func (p *Pipeline) Cycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			te, ok := r.(*TimingError)
			if !ok {
				panic(r)
			}
			p.discardStaged()
			err = fmt.Errorf("%w: %w", ErrInternal, te)
		}
	}()

	program := p.programRegs.Committed()
	pc := program.PC.Get()
	cc := program.CC.Get()

	p.fetchStage.Fetch(pc, p.fetchRegs.Staged())
	p.fetchRegs.Commit()

	p.decodeStage.Decode(p.fetchRegs.Committed(), p.decodeRegs.Staged())
	p.decodeRegs.Commit()

	p.executeStage.Execute(
		p.decodeRegs.Committed(),
		cc,
		p.executeRegs.Staged(),
		&p.programRegs.Staged().CC,
	)
	p.executeRegs.Commit()

	p.memoryStage.Access(p.executeRegs.Committed(), p.memoryRegs.Staged())
	p.memoryRegs.Commit()

	wbErr := p.writebackStage.Writeback(
		pc,
		p.memoryRegs.Committed(),
		p.writebackRegs.Staged(),
	)
	p.writebackRegs.Commit()

	p.programRegs.Staged().PC.Set(p.writebackRegs.Committed().PC.Get())
	p.programRegs.Commit()

	p.record(pc)

	return wbErr
}

func (p *Pipeline) discardStaged() {
	p.fetchRegs.Discard()
	p.decodeRegs.Discard()
	p.executeRegs.Discard()
	p.memoryRegs.Discard()
	p.writebackRegs.Discard()
	p.programRegs.Discard()
}

// record updates statistics and logs the retired instruction.
func (p *Pipeline) record(pc uint64) {
	p.stats.Cycles++

	mem := p.memoryRegs.Committed()
	stat := p.writebackRegs.Committed().Stat.Get()
	class := mem.Class.Get()

	if stat == insts.StatAOK {
		p.stats.Instructions++
		p.stats.ByClass[class]++

		cnd := mem.Cnd.Get()
		switch class {
		case insts.ClassJXX:
			if cnd {
				p.stats.BranchesTaken++
			} else {
				p.stats.BranchesNotTaken++
			}
		case insts.ClassRRMVXX:
			if !cnd {
				p.stats.MovesSkipped++
			}
		}
	}

	p.logger.WithFields(logrus.Fields{
		"pc":   fmt.Sprintf("0x%x", pc),
		"inst": p.instructionText(pc),
		"stat": stat.String(),
	}).Debug("retire")
}

func (p *Pipeline) instructionText(pc uint64) string {
	f := p.fetchRegs.Committed().values()
	if f.Stat != insts.StatAOK && f.Stat != insts.StatHLT {
		return "(bad)"
	}
	return insts.Instruction{
		Class:  f.Class,
		Fn:     f.Fn,
		RA:     f.RA,
		RB:     f.RB,
		ValC:   f.ValC,
		Length: f.ValP - pc,
	}.String()
}

// Stats returns a copy of the execution statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats.clone()
}

// Snapshot is a read-only copy of the committed stage registers and the
// architectural PC and condition codes.
type Snapshot struct {
	PC        uint64
	CC        insts.CC
	Fetch     FetchValues
	Decode    DecodeValues
	Execute   ExecuteValues
	Memory    MemoryValues
	Writeback WritebackValues
}

// Snapshot returns a copy of the committed state.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		PC:        p.PC(),
		CC:        p.CC(),
		Fetch:     p.fetchRegs.Committed().values(),
		Decode:    p.decodeRegs.Committed().values(),
		Execute:   p.executeRegs.Committed().values(),
		Memory:    p.memoryRegs.Committed().values(),
		Writeback: p.writebackRegs.Committed().values(),
	}
}
