package insts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Decoding errors.
var (
	// ErrTruncated is returned when the byte slice ends inside an instruction.
	ErrTruncated = errors.New("truncated instruction")
	// ErrInvalidOpcode is returned for an unknown (class, function) pair.
	ErrInvalidOpcode = errors.New("invalid opcode")
)

// Instruction represents a decoded Y86-64 instruction.
type Instruction struct {
	Class Class // Instruction class
	Fn    uint8 // Function code

	RA Reg // Register A, RegNone if absent
	RB Reg // Register B, RegNone if absent

	// ValC is the 8-byte constant (immediate, displacement or target).
	ValC uint64

	// Length is the encoded length in bytes.
	Length uint64
}

// Decoder decodes Y86-64 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new Y86-64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes the instruction at the start of code.
func (d *Decoder) Decode(code []byte) (Instruction, error) {
	if len(code) == 0 {
		return Instruction{}, ErrTruncated
	}

	inst := Instruction{
		Class: Class(code[0] >> 4),
		Fn:    code[0] & 0xF,
		RA:    RegNone,
		RB:    RegNone,
	}

	if !ValidFunction(inst.Class, inst.Fn) {
		return inst, fmt.Errorf("%w: 0x%02X", ErrInvalidOpcode, code[0])
	}

	fields := FieldsOf(inst.Class, inst.Fn)
	inst.Length = fields.Length
	if uint64(len(code)) < fields.Length {
		return inst, fmt.Errorf("%w: %s needs %d bytes, have %d",
			ErrTruncated, inst.Class, fields.Length, len(code))
	}

	if fields.RA {
		inst.RA = code[1] >> 4
	}
	if fields.RB {
		inst.RB = code[1] & 0xF
	}
	if fields.ValCOffset != 0 {
		off := fields.ValCOffset
		inst.ValC = binary.LittleEndian.Uint64(code[off : off+8])
	}

	return inst, nil
}

var condSuffix = [...]string{"", "le", "l", "e", "ne", "ge", "g"}

var aluNames = [...]string{"add", "sub", "and", "xor", "mul", "div", "mod"}

// Mnemonic returns the assembler mnemonic of the instruction.
func (i Instruction) Mnemonic() string {
	switch i.Class {
	case ClassHALT:
		return "halt"
	case ClassNOP:
		return "nop"
	case ClassRRMVXX:
		if i.Fn == uint8(CondNC) {
			return "rrmovq"
		}
		return "cmov" + suffix(i.Fn)
	case ClassIRMOVQ:
		return "irmovq"
	case ClassRMMOVQ:
		return "rmmovq"
	case ClassMRMOVQ:
		return "mrmovq"
	case ClassOPQ:
		return aluName(i.Fn) + "q"
	case ClassIOPQ:
		return "i" + aluName(i.Fn) + "q"
	case ClassJXX:
		if i.Fn == uint8(CondNC) {
			return "jmp"
		}
		return "j" + suffix(i.Fn)
	case ClassCALL:
		return "call"
	case ClassRET:
		return "ret"
	case ClassPUSHQ:
		return "pushq"
	case ClassPOPQ:
		return "popq"
	default:
		return fmt.Sprintf(".byte 0x%X%X", uint8(i.Class), i.Fn)
	}
}

// String formats the instruction in yas syntax.
func (i Instruction) String() string {
	m := i.Mnemonic()
	switch i.Class {
	case ClassRRMVXX, ClassOPQ:
		return fmt.Sprintf("%s %%%s, %%%s", m, RegName(i.RA), RegName(i.RB))
	case ClassIRMOVQ, ClassIOPQ:
		return fmt.Sprintf("%s $%d, %%%s", m, int64(i.ValC), RegName(i.RB))
	case ClassRMMOVQ:
		return fmt.Sprintf("%s %%%s, %s", m, RegName(i.RA), i.memOperand())
	case ClassMRMOVQ:
		return fmt.Sprintf("%s %s, %%%s", m, i.memOperand(), RegName(i.RA))
	case ClassJXX:
		return fmt.Sprintf("%s 0x%x", m, i.ValC)
	case ClassCALL:
		if i.Fn == FnRegister {
			return fmt.Sprintf("%s *%%%s", m, RegName(i.RA))
		}
		return fmt.Sprintf("%s 0x%x", m, i.ValC)
	case ClassPUSHQ, ClassPOPQ:
		return fmt.Sprintf("%s %%%s", m, RegName(i.RA))
	default:
		return m
	}
}

func (i Instruction) memOperand() string {
	if i.Fn == FnScaled {
		return fmt.Sprintf("%d(%%%s,8)", int64(i.ValC), RegName(i.RB))
	}
	return fmt.Sprintf("%d(%%%s)", int64(i.ValC), RegName(i.RB))
}

func suffix(fn uint8) string {
	if int(fn) < len(condSuffix) {
		return condSuffix[fn]
	}
	return "?"
}

func aluName(fn uint8) string {
	if int(fn) < len(aluNames) {
		return aluNames[fn]
	}
	return "op?"
}
