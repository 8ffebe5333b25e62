package pipeline

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// MemoryStage performs the data memory access of an instruction.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// Access reads the committed execute registers and writes out.
func (s *MemoryStage) Access(in *ExecuteRegs, out *MemoryRegs) {
	stat := in.Stat.Get()
	class := in.Class.Get()
	valE := in.ValE.Get()
	valA := in.ValA.Get()
	valP := in.ValP.Get()

	out.Class.Set(class)
	out.Fn.Set(in.Fn.Get())
	out.Cnd.Set(in.Cnd.Get())
	out.ValE.Set(valE)
	out.ValA.Set(valA)
	out.ValC.Set(in.ValC.Get())
	out.DstE.Set(in.DstE.Get())
	out.DstM.Set(in.DstM.Get())
	out.ValP.Set(valP)

	var valM uint64
	if stat == insts.StatAOK {
		var err error

		switch class {
		case insts.ClassRMMOVQ, insts.ClassPUSHQ:
			err = s.memory.WriteLong(valE, valA)
		case insts.ClassCALL:
			err = s.memory.WriteLong(valE, valP)
		case insts.ClassMRMOVQ:
			valM, err = s.memory.ReadLong(valE)
		case insts.ClassRET, insts.ClassPOPQ:
			valM, err = s.memory.ReadLong(valA)
		}

		if err != nil {
			stat = memoryStatus(err)
			valM = 0
		}
	}

	out.Stat.Set(stat)
	out.ValM.Set(valM)
}
