package pipeline

import (
	"errors"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// FetchStage reads and splits the instruction at the committed PC.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch decodes the instruction at pc into out.
func (s *FetchStage) Fetch(pc uint64, out *FetchRegs) {
	b0, err := s.memory.Read8(pc)
	if err != nil {
		s.fault(out, memoryStatus(err), 0, 0, pc)
		return
	}

	class := insts.Class(b0 >> 4)
	fn := b0 & 0xF

	if !insts.ValidFunction(class, fn) {
		s.fault(out, insts.StatINS, class, fn, pc)
		return
	}

	fields := insts.FieldsOf(class, fn)
	rA, rB := insts.RegNone, insts.RegNone

	if fields.RA || fields.RB {
		b1, err := s.memory.Read8(pc + 1)
		if err != nil {
			s.fault(out, memoryStatus(err), class, fn, pc)
			return
		}
		if fields.RA {
			rA = b1 >> 4
		}
		if fields.RB {
			rB = b1 & 0xF
		}
	}

	var valC uint64
	if fields.ValCOffset != 0 {
		valC, err = s.memory.ReadLongUnaligned(pc + fields.ValCOffset)
		if err != nil {
			s.fault(out, memoryStatus(err), class, fn, pc)
			return
		}
	}

	stat := insts.StatAOK
	if class == insts.ClassHALT {
		stat = insts.StatHLT
	}

	out.Stat.Set(stat)
	out.Class.Set(class)
	out.Fn.Set(fn)
	out.RA.Set(rA)
	out.RB.Set(rB)
	out.ValC.Set(valC)
	out.ValP.Set(pc + fields.Length)
}

func (s *FetchStage) fault(
	out *FetchRegs,
	stat insts.Status,
	class insts.Class,
	fn uint8,
	pc uint64,
) {
	out.Stat.Set(stat)
	out.Class.Set(class)
	out.Fn.Set(fn)
	out.RA.Set(insts.RegNone)
	out.RB.Set(insts.RegNone)
	out.ValC.Set(0)
	out.ValP.Set(pc)
}

// memoryStatus classifies a memory error.
func memoryStatus(err error) insts.Status {
	if errors.Is(err, emu.ErrOutOfMemory) {
		return insts.StatOOM
	}
	return insts.StatADR
}
