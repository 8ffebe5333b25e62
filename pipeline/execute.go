package pipeline

import "github.com/sarchlab/y86sim/insts"

// ExecuteStage selects ALU operands, computes valE, updates the condition
// codes and evaluates branch and move conditions.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// Execute reads the committed decode registers and the committed condition
// codes, writes out and the staged condition codes.
func (s *ExecuteStage) Execute(
	in *DecodeRegs,
	cc insts.CC,
	out *ExecuteRegs,
	ccOut *Slot[insts.CC],
) {
	stat := in.Stat.Get()
	class := in.Class.Get()
	fn := in.Fn.Get()
	valC := in.ValC.Get()
	valA := in.ValA.Get()

	out.Stat.Set(stat)
	out.Class.Set(class)
	out.Fn.Set(fn)
	out.ValC.Set(valC)
	out.ValA.Set(valA)
	out.DstE.Set(in.DstE.Get())
	out.DstM.Set(in.DstM.Get())
	out.ValP.Set(in.ValP.Get())

	if stat != insts.StatAOK {
		out.ValE.Set(0)
		out.Cnd.Set(false)
		ccOut.Set(cc)
		return
	}

	valB := in.ValB.Get()
	aluA := selectALUA(class, valA, valC)
	aluB := selectALUB(class, fn, valB)

	op, setCC := insts.ALUAdd, false
	if class == insts.ClassOPQ || class == insts.ClassIOPQ {
		op, setCC = insts.ALUOp(fn), true
	}

	valE, overflow := ALU(op, aluA, aluB)
	out.ValE.Set(valE)

	if setCC {
		ccOut.Set(insts.CCFromResult(int64(valE), overflow))
	} else {
		ccOut.Set(cc)
	}

	cnd := true
	if class == insts.ClassRRMVXX || class == insts.ClassJXX {
		cnd = cc.Eval(insts.Cond(fn))
	}
	out.Cnd.Set(cnd)
}

func selectALUA(class insts.Class, valA, valC uint64) uint64 {
	switch class {
	case insts.ClassRRMVXX, insts.ClassOPQ:
		return valA
	case insts.ClassIRMOVQ, insts.ClassRMMOVQ, insts.ClassMRMOVQ, insts.ClassIOPQ:
		return valC
	case insts.ClassRET, insts.ClassPOPQ:
		return 8
	case insts.ClassCALL, insts.ClassPUSHQ:
		return ^uint64(7) // -8
	}
	return 0
}

func selectALUB(class insts.Class, fn uint8, valB uint64) uint64 {
	switch class {
	case insts.ClassRMMOVQ, insts.ClassMRMOVQ:
		if fn == insts.FnScaled {
			return valB * 8
		}
		return valB
	case insts.ClassOPQ, insts.ClassIOPQ,
		insts.ClassCALL, insts.ClassRET, insts.ClassPUSHQ, insts.ClassPOPQ:
		return valB
	}
	return 0
}
