package pipeline

import "github.com/sarchlab/y86sim/insts"

// FetchRegs holds the values fetch hands to decode.
type FetchRegs struct {
	Stat  Slot[insts.Status]
	Class Slot[insts.Class]
	Fn    Slot[uint8]
	RA    Slot[insts.Reg]
	RB    Slot[insts.Reg]
	ValC  Slot[uint64]
	ValP  Slot[uint64]
}

func (r *FetchRegs) each(fn func(string, slotter)) {
	fn("stat", &r.Stat)
	fn("class", &r.Class)
	fn("fn", &r.Fn)
	fn("rA", &r.RA)
	fn("rB", &r.RB)
	fn("valC", &r.ValC)
	fn("valP", &r.ValP)
}

// DecodeRegs holds the values decode hands to execute.
type DecodeRegs struct {
	Stat  Slot[insts.Status]
	Class Slot[insts.Class]
	Fn    Slot[uint8]
	ValC  Slot[uint64]
	ValP  Slot[uint64]
	SrcA  Slot[insts.Reg]
	SrcB  Slot[insts.Reg]
	DstE  Slot[insts.Reg]
	DstM  Slot[insts.Reg]
	ValA  Slot[uint64]
	ValB  Slot[uint64]
}

func (r *DecodeRegs) each(fn func(string, slotter)) {
	fn("stat", &r.Stat)
	fn("class", &r.Class)
	fn("fn", &r.Fn)
	fn("valC", &r.ValC)
	fn("valP", &r.ValP)
	fn("srcA", &r.SrcA)
	fn("srcB", &r.SrcB)
	fn("dstE", &r.DstE)
	fn("dstM", &r.DstM)
	fn("valA", &r.ValA)
	fn("valB", &r.ValB)
}

// ExecuteRegs holds the values execute hands to memory.
type ExecuteRegs struct {
	Stat  Slot[insts.Status]
	Class Slot[insts.Class]
	Fn    Slot[uint8]
	ValC  Slot[uint64]
	ValA  Slot[uint64]
	ValE  Slot[uint64]
	DstE  Slot[insts.Reg]
	DstM  Slot[insts.Reg]
	ValP  Slot[uint64]
	Cnd   Slot[bool]
}

func (r *ExecuteRegs) each(fn func(string, slotter)) {
	fn("stat", &r.Stat)
	fn("class", &r.Class)
	fn("fn", &r.Fn)
	fn("valC", &r.ValC)
	fn("valA", &r.ValA)
	fn("valE", &r.ValE)
	fn("dstE", &r.DstE)
	fn("dstM", &r.DstM)
	fn("valP", &r.ValP)
	fn("cnd", &r.Cnd)
}

// MemoryRegs holds the values memory hands to write-back. ValA and ValC are
// carried for the register-form and immediate CALL targets.
type MemoryRegs struct {
	Stat  Slot[insts.Status]
	Class Slot[insts.Class]
	Fn    Slot[uint8]
	Cnd   Slot[bool]
	ValE  Slot[uint64]
	ValM  Slot[uint64]
	ValA  Slot[uint64]
	ValC  Slot[uint64]
	DstE  Slot[insts.Reg]
	DstM  Slot[insts.Reg]
	ValP  Slot[uint64]
}

func (r *MemoryRegs) each(fn func(string, slotter)) {
	fn("stat", &r.Stat)
	fn("class", &r.Class)
	fn("fn", &r.Fn)
	fn("cnd", &r.Cnd)
	fn("valE", &r.ValE)
	fn("valM", &r.ValM)
	fn("valA", &r.ValA)
	fn("valC", &r.ValC)
	fn("dstE", &r.DstE)
	fn("dstM", &r.DstM)
	fn("valP", &r.ValP)
}

// WritebackRegs holds the final status and the next PC of an instruction.
type WritebackRegs struct {
	Stat Slot[insts.Status]
	PC   Slot[uint64]
}

func (r *WritebackRegs) each(fn func(string, slotter)) {
	fn("stat", &r.Stat)
	fn("pc", &r.PC)
}

// ProgramRegs holds the architectural PC and condition codes.
type ProgramRegs struct {
	PC Slot[uint64]
	CC Slot[insts.CC]
}

func (r *ProgramRegs) each(fn func(string, slotter)) {
	fn("pc", &r.PC)
	fn("cc", &r.CC)
}

// FetchValues is a plain copy of FetchRegs.
type FetchValues struct {
	Stat   insts.Status
	Class  insts.Class
	Fn     uint8
	RA, RB insts.Reg
	ValC   uint64
	ValP   uint64
}

// DecodeValues is a plain copy of DecodeRegs.
type DecodeValues struct {
	Stat       insts.Status
	Class      insts.Class
	Fn         uint8
	ValC, ValP uint64
	SrcA, SrcB insts.Reg
	DstE, DstM insts.Reg
	ValA, ValB uint64
}

// ExecuteValues is a plain copy of ExecuteRegs.
type ExecuteValues struct {
	Stat       insts.Status
	Class      insts.Class
	Fn         uint8
	ValC, ValA uint64
	ValE       uint64
	DstE, DstM insts.Reg
	ValP       uint64
	Cnd        bool
}

// MemoryValues is a plain copy of MemoryRegs.
type MemoryValues struct {
	Stat       insts.Status
	Class      insts.Class
	Fn         uint8
	Cnd        bool
	ValE, ValM uint64
	ValA, ValC uint64
	DstE, DstM insts.Reg
	ValP       uint64
}

// WritebackValues is a plain copy of WritebackRegs.
type WritebackValues struct {
	Stat insts.Status
	PC   uint64
}

func peek[T any](s *Slot[T]) T {
	v, _ := s.Peek()
	return v
}

func (r *FetchRegs) values() FetchValues {
	return FetchValues{
		Stat:  peek(&r.Stat),
		Class: peek(&r.Class),
		Fn:    peek(&r.Fn),
		RA:    peek(&r.RA),
		RB:    peek(&r.RB),
		ValC:  peek(&r.ValC),
		ValP:  peek(&r.ValP),
	}
}

func (r *DecodeRegs) values() DecodeValues {
	return DecodeValues{
		Stat:  peek(&r.Stat),
		Class: peek(&r.Class),
		Fn:    peek(&r.Fn),
		ValC:  peek(&r.ValC),
		ValP:  peek(&r.ValP),
		SrcA:  peek(&r.SrcA),
		SrcB:  peek(&r.SrcB),
		DstE:  peek(&r.DstE),
		DstM:  peek(&r.DstM),
		ValA:  peek(&r.ValA),
		ValB:  peek(&r.ValB),
	}
}

func (r *ExecuteRegs) values() ExecuteValues {
	return ExecuteValues{
		Stat:  peek(&r.Stat),
		Class: peek(&r.Class),
		Fn:    peek(&r.Fn),
		ValC:  peek(&r.ValC),
		ValA:  peek(&r.ValA),
		ValE:  peek(&r.ValE),
		DstE:  peek(&r.DstE),
		DstM:  peek(&r.DstM),
		ValP:  peek(&r.ValP),
		Cnd:   peek(&r.Cnd),
	}
}

func (r *MemoryRegs) values() MemoryValues {
	return MemoryValues{
		Stat:  peek(&r.Stat),
		Class: peek(&r.Class),
		Fn:    peek(&r.Fn),
		Cnd:   peek(&r.Cnd),
		ValE:  peek(&r.ValE),
		ValM:  peek(&r.ValM),
		ValA:  peek(&r.ValA),
		ValC:  peek(&r.ValC),
		DstE:  peek(&r.DstE),
		DstM:  peek(&r.DstM),
		ValP:  peek(&r.ValP),
	}
}

func (r *WritebackRegs) values() WritebackValues {
	return WritebackValues{
		Stat: peek(&r.Stat),
		PC:   peek(&r.PC),
	}
}
