package pipeline

import (
	"fmt"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// WritebackStage commits register results and selects the next PC.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new write-back stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback reads the committed memory registers, updates the register file
// and writes out. pc is the address of the instruction being retired. The
// returned error classifies a terminal status.
func (s *WritebackStage) Writeback(pc uint64, in *MemoryRegs, out *WritebackRegs) error {
	stat := in.Stat.Get()
	class := in.Class.Get()
	fn := in.Fn.Get()
	cnd := in.Cnd.Get()
	valE := in.ValE.Get()
	valM := in.ValM.Get()
	valA := in.ValA.Get()
	valC := in.ValC.Get()
	dstE := in.DstE.Get()
	dstM := in.DstM.Get()
	valP := in.ValP.Get()

	if stat == insts.StatAOK {
		if dstE != insts.RegNone && cnd {
			if err := s.regFile.Set(dstE, valE); err != nil {
				stat = insts.StatINS
			}
		}
	}
	if stat == insts.StatAOK && dstM != insts.RegNone {
		if err := s.regFile.Set(dstM, valM); err != nil {
			stat = insts.StatINS
		}
	}

	out.Stat.Set(stat)

	if err := statusError(stat, pc); err != nil {
		out.PC.Set(pc)
		return err
	}

	out.PC.Set(nextPC(class, fn, cnd, valA, valC, valM, valP))
	return nil
}

func nextPC(class insts.Class, fn uint8, cnd bool, valA, valC, valM, valP uint64) uint64 {
	switch class {
	case insts.ClassCALL:
		if fn == insts.FnRegister {
			return valA
		}
		return valC
	case insts.ClassJXX:
		if cnd {
			return valC
		}
		return valP
	case insts.ClassRET:
		return valM
	}
	return valP
}

// statusError maps a terminal status to its error, or nil for AOK.
func statusError(stat insts.Status, pc uint64) error {
	switch stat {
	case insts.StatAOK:
		return nil
	case insts.StatADR:
		return fmt.Errorf("at pc 0x%x: %w", pc, emu.ErrInvalidAddress)
	case insts.StatOOM:
		return fmt.Errorf("at pc 0x%x: %w", pc, emu.ErrOutOfMemory)
	case insts.StatINS:
		return fmt.Errorf("at pc 0x%x: %w", pc, ErrInvalidInstruction)
	case insts.StatHLT:
		return fmt.Errorf("at pc 0x%x: %w", pc, ErrHalted)
	default:
		return fmt.Errorf("at pc 0x%x: %w: unknown status %d", pc, ErrInternal, stat)
	}
}
