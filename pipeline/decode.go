package pipeline

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// DecodeStage resolves register roles and reads source operands.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile}
}

// Decode reads the committed fetch registers and writes out.
func (s *DecodeStage) Decode(in *FetchRegs, out *DecodeRegs) {
	stat := in.Stat.Get()
	class := in.Class.Get()
	fn := in.Fn.Get()

	out.Class.Set(class)
	out.Fn.Set(fn)
	out.ValC.Set(in.ValC.Get())
	out.ValP.Set(in.ValP.Get())

	srcA, srcB, dstE, dstM := insts.RegNone, insts.RegNone, insts.RegNone, insts.RegNone
	var valA, valB uint64

	if stat == insts.StatAOK {
		rA, rB := in.RA.Get(), in.RB.Get()
		srcA = selectSrcA(class, fn, rA)
		srcB = selectSrcB(class, rB)
		dstE = selectDstE(class, rB)
		dstM = selectDstM(class, rA)

		var errA, errB error
		valA, errA = s.read(srcA)
		valB, errB = s.read(srcB)
		if errA != nil || errB != nil {
			stat = insts.StatINS
		}
	}

	if stat != insts.StatAOK {
		srcA, srcB, dstE, dstM = insts.RegNone, insts.RegNone, insts.RegNone, insts.RegNone
		valA, valB = 0, 0
	}

	out.Stat.Set(stat)
	out.SrcA.Set(srcA)
	out.SrcB.Set(srcB)
	out.DstE.Set(dstE)
	out.DstM.Set(dstM)
	out.ValA.Set(valA)
	out.ValB.Set(valB)
}

func (s *DecodeStage) read(r insts.Reg) (uint64, error) {
	if r == insts.RegNone {
		return 0, nil
	}
	return s.regFile.Get(r)
}

func selectSrcA(class insts.Class, fn uint8, rA insts.Reg) insts.Reg {
	switch class {
	case insts.ClassRRMVXX, insts.ClassRMMOVQ, insts.ClassOPQ, insts.ClassPUSHQ:
		return rA
	case insts.ClassCALL:
		if fn == insts.FnRegister {
			return rA
		}
	case insts.ClassRET, insts.ClassPOPQ:
		return insts.RegRSP
	}
	return insts.RegNone
}

func selectSrcB(class insts.Class, rB insts.Reg) insts.Reg {
	switch class {
	case insts.ClassRMMOVQ, insts.ClassMRMOVQ, insts.ClassOPQ, insts.ClassIOPQ:
		return rB
	case insts.ClassCALL, insts.ClassRET, insts.ClassPUSHQ, insts.ClassPOPQ:
		return insts.RegRSP
	}
	return insts.RegNone
}

func selectDstE(class insts.Class, rB insts.Reg) insts.Reg {
	switch class {
	case insts.ClassRRMVXX, insts.ClassIRMOVQ, insts.ClassOPQ, insts.ClassIOPQ:
		return rB
	case insts.ClassCALL, insts.ClassRET, insts.ClassPUSHQ, insts.ClassPOPQ:
		return insts.RegRSP
	}
	return insts.RegNone
}

func selectDstM(class insts.Class, rA insts.Reg) insts.Reg {
	switch class {
	case insts.ClassMRMOVQ, insts.ClassPOPQ:
		return rA
	}
	return insts.RegNone
}
