package insts

import "fmt"

// Class is the instruction class held in the high nibble of byte 0.
type Class uint8

// Instruction classes.
const (
	ClassHALT   Class = 0x0
	ClassNOP    Class = 0x1
	ClassRRMVXX Class = 0x2 // rrmovq and cmovXX
	ClassIRMOVQ Class = 0x3
	ClassRMMOVQ Class = 0x4
	ClassMRMOVQ Class = 0x5
	ClassOPQ    Class = 0x6
	ClassJXX    Class = 0x7
	ClassCALL   Class = 0x8
	ClassRET    Class = 0x9
	ClassPUSHQ  Class = 0xA
	ClassPOPQ   Class = 0xB
	ClassIOPQ   Class = 0xC
)

var classNames = map[Class]string{
	ClassHALT:   "HALT",
	ClassNOP:    "NOP",
	ClassRRMVXX: "RRMVXX",
	ClassIRMOVQ: "IRMOVQ",
	ClassRMMOVQ: "RMMOVQ",
	ClassMRMOVQ: "MRMOVQ",
	ClassOPQ:    "OPQ",
	ClassJXX:    "JXX",
	ClassCALL:   "CALL",
	ClassRET:    "RET",
	ClassPUSHQ:  "PUSHQ",
	ClassPOPQ:   "POPQ",
	ClassIOPQ:   "IOPQ",
}

// String returns the class name.
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(0x%X)", uint8(c))
}

// Cond is a condition selector used by RRMVXX and JXX.
type Cond uint8

// Condition selectors.
const (
	CondNC Cond = 0x0 // always
	CondLE Cond = 0x1
	CondL  Cond = 0x2
	CondE  Cond = 0x3
	CondNE Cond = 0x4
	CondGE Cond = 0x5
	CondG  Cond = 0x6
)

// ALUOp is an ALU function selector used by OPQ and IOPQ.
type ALUOp uint8

// ALU function selectors.
const (
	ALUAdd ALUOp = 0x0
	ALUSub ALUOp = 0x1
	ALUAnd ALUOp = 0x2
	ALUXor ALUOp = 0x3
	ALUMul ALUOp = 0x4
	ALUDiv ALUOp = 0x5
	ALUMod ALUOp = 0x6
)

// Literal function discriminators for the classes that carry no condition or
// ALU selector.
const (
	// FnPlain is the default form.
	FnPlain uint8 = 0x0
	// FnScaled selects scaled addressing (rB value * 8) on RMMOVQ/MRMOVQ.
	FnScaled uint8 = 0x4
	// FnRegister selects the register-operand form of CALL.
	FnRegister uint8 = 0x8
)

// Reg is a register index.
type Reg = uint8

// Program registers.
const (
	RegRAX Reg = iota
	RegRCX
	RegRDX
	RegRBX
	RegRSP
	RegRBP
	RegRSI
	RegRDI
	RegR8
	RegR9
	RegR10
	RegR11
	RegR12
	RegR13
	RegR14

	// RegNone is the "no register" sentinel. It never touches the register file.
	RegNone Reg = 0xF
)

// NumRegs is the number of program registers.
const NumRegs = 15

var regNames = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14",
}

// RegName returns the assembler name of a register without the % prefix.
func RegName(r Reg) string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	if r == RegNone {
		return "none"
	}
	return fmt.Sprintf("r?%d", r)
}

// ParseReg converts an assembler register name (with or without %) to its
// index.
func ParseReg(name string) (Reg, bool) {
	if len(name) > 0 && name[0] == '%' {
		name = name[1:]
	}
	for i, n := range regNames {
		if n == name {
			return Reg(i), true
		}
	}
	return RegNone, false
}

// Status is the execution status threaded through every stage.
type Status uint8

// Status codes.
const (
	StatAOK Status = 1 // ok
	StatHLT Status = 2 // halt instruction executed
	StatADR Status = 3 // invalid address
	StatINS Status = 4 // invalid instruction
	StatOOM Status = 5 // out of memory
)

// String returns the short status mnemonic.
func (s Status) String() string {
	switch s {
	case StatAOK:
		return "AOK"
	case StatHLT:
		return "HLT"
	case StatADR:
		return "ADR"
	case StatINS:
		return "INS"
	case StatOOM:
		return "OOM"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Terminal returns true if the status stops the machine.
func (s Status) Terminal() bool {
	return s != StatAOK
}

// ValidFunction reports whether fn is an accepted function code for class c.
// OPQ and IOPQ are listed separately even though their sets coincide.
func ValidFunction(c Class, fn uint8) bool {
	switch c {
	case ClassHALT, ClassNOP, ClassIRMOVQ, ClassRET, ClassPUSHQ, ClassPOPQ,
		ClassCALL, ClassRMMOVQ, ClassMRMOVQ:
		return fn == FnPlain || fn == FnScaled || fn == FnRegister
	case ClassRRMVXX, ClassJXX:
		switch Cond(fn) {
		case CondNC, CondLE, CondL, CondE, CondNE, CondGE, CondG:
			return true
		}
		return false
	case ClassOPQ:
		switch ALUOp(fn) {
		case ALUAdd, ALUSub, ALUAnd, ALUXor, ALUMul, ALUDiv, ALUMod:
			return true
		}
		return false
	case ClassIOPQ:
		return fn <= 0x6
	default:
		return false
	}
}

// Fields describes which encoded fields a (class, function) pair carries.
type Fields struct {
	// RA is true if byte 1's high nibble is a register operand.
	RA bool
	// RB is true if byte 1's low nibble is a register operand.
	RB bool
	// ValCOffset is the byte offset of the 8-byte constant, 0 if absent.
	ValCOffset uint64
	// Length is the encoded length in bytes.
	Length uint64
}

// FieldsOf returns the field layout of a valid (class, function) pair.
// The result for an invalid pair is the zero Fields.
func FieldsOf(c Class, fn uint8) Fields {
	switch c {
	case ClassHALT, ClassNOP, ClassRET:
		return Fields{Length: 1}
	case ClassRRMVXX, ClassOPQ:
		return Fields{RA: true, RB: true, Length: 2}
	case ClassPUSHQ, ClassPOPQ:
		return Fields{RA: true, Length: 2}
	case ClassIRMOVQ, ClassIOPQ:
		return Fields{RB: true, ValCOffset: 2, Length: 10}
	case ClassRMMOVQ, ClassMRMOVQ:
		return Fields{RA: true, RB: true, ValCOffset: 2, Length: 10}
	case ClassJXX:
		return Fields{ValCOffset: 1, Length: 9}
	case ClassCALL:
		if fn == FnRegister {
			return Fields{RA: true, Length: 2}
		}
		return Fields{ValCOffset: 1, Length: 9}
	default:
		return Fields{}
	}
}
