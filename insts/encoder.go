package insts

import (
	"encoding/binary"
	"fmt"
)

type fixup struct {
	offset uint64 // byte offset of the 8-byte field in buf
	label  string
}

// Encoder assembles Y86-64 machine code. Methods append one instruction each
// and return the encoder so calls can be chained. Branch and call targets
// may refer to labels defined before or after the reference.
type Encoder struct {
	base   uint64
	buf    []byte
	labels map[string]uint64
	fixups []fixup
}

// NewEncoder creates an encoder whose first byte lives at address base.
func NewEncoder(base uint64) *Encoder {
	return &Encoder{
		base:   base,
		labels: make(map[string]uint64),
	}
}

// PC returns the address of the next byte to be emitted.
func (e *Encoder) PC() uint64 {
	return e.base + uint64(len(e.buf))
}

// Label binds name to the current address.
func (e *Encoder) Label(name string) *Encoder {
	e.labels[name] = e.PC()
	return e
}

// Addr returns the address bound to a label.
func (e *Encoder) Addr(name string) (uint64, bool) {
	addr, ok := e.labels[name]
	return addr, ok
}

// Pos pads with zero bytes up to addr. Positions behind the current address
// are ignored.
func (e *Encoder) Pos(addr uint64) *Encoder {
	for e.PC() < addr {
		e.buf = append(e.buf, 0)
	}
	return e
}

// Align pads with zero bytes to a multiple of n.
func (e *Encoder) Align(n uint64) *Encoder {
	for e.PC()%n != 0 {
		e.buf = append(e.buf, 0)
	}
	return e
}

// Raw appends arbitrary bytes.
func (e *Encoder) Raw(b ...byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Quad appends an 8-byte little-endian value.
func (e *Encoder) Quad(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

func (e *Encoder) op(c Class, fn uint8) {
	e.buf = append(e.buf, byte(c)<<4|fn&0xF)
}

func (e *Encoder) regs(ra, rb Reg) {
	e.buf = append(e.buf, ra<<4|rb&0xF)
}

// Halt emits halt.
func (e *Encoder) Halt() *Encoder {
	e.op(ClassHALT, FnPlain)
	return e
}

// Nop emits nop.
func (e *Encoder) Nop() *Encoder {
	e.op(ClassNOP, FnPlain)
	return e
}

// Rrmovq emits rrmovq rA, rB.
func (e *Encoder) Rrmovq(ra, rb Reg) *Encoder {
	return e.Cmov(CondNC, ra, rb)
}

// Cmov emits cmovXX rA, rB.
func (e *Encoder) Cmov(cond Cond, ra, rb Reg) *Encoder {
	e.op(ClassRRMVXX, uint8(cond))
	e.regs(ra, rb)
	return e
}

// Irmovq emits irmovq $imm, rB.
func (e *Encoder) Irmovq(imm int64, rb Reg) *Encoder {
	e.op(ClassIRMOVQ, FnPlain)
	e.regs(RegNone, rb)
	return e.Quad(uint64(imm))
}

// Rmmovq emits rmmovq rA, disp(rB).
func (e *Encoder) Rmmovq(ra Reg, disp int64, rb Reg) *Encoder {
	e.op(ClassRMMOVQ, FnPlain)
	e.regs(ra, rb)
	return e.Quad(uint64(disp))
}

// RmmovqScaled emits rmmovq rA, disp(rB,8).
func (e *Encoder) RmmovqScaled(ra Reg, disp int64, rb Reg) *Encoder {
	e.op(ClassRMMOVQ, FnScaled)
	e.regs(ra, rb)
	return e.Quad(uint64(disp))
}

// Mrmovq emits mrmovq disp(rB), rA.
func (e *Encoder) Mrmovq(disp int64, rb, ra Reg) *Encoder {
	e.op(ClassMRMOVQ, FnPlain)
	e.regs(ra, rb)
	return e.Quad(uint64(disp))
}

// MrmovqScaled emits mrmovq disp(rB,8), rA.
func (e *Encoder) MrmovqScaled(disp int64, rb, ra Reg) *Encoder {
	e.op(ClassMRMOVQ, FnScaled)
	e.regs(ra, rb)
	return e.Quad(uint64(disp))
}

// Opq emits OPq rA, rB (rB = rB op rA).
func (e *Encoder) Opq(fn ALUOp, ra, rb Reg) *Encoder {
	e.op(ClassOPQ, uint8(fn))
	e.regs(ra, rb)
	return e
}

// Iopq emits iOPq $imm, rB (rB = rB op imm).
func (e *Encoder) Iopq(fn ALUOp, imm int64, rb Reg) *Encoder {
	e.op(ClassIOPQ, uint8(fn))
	e.regs(RegNone, rb)
	return e.Quad(uint64(imm))
}

// Jxx emits a jump to an absolute target.
func (e *Encoder) Jxx(cond Cond, target uint64) *Encoder {
	e.op(ClassJXX, uint8(cond))
	return e.Quad(target)
}

// JxxTo emits a jump to a label.
func (e *Encoder) JxxTo(cond Cond, label string) *Encoder {
	e.op(ClassJXX, uint8(cond))
	return e.ref(label)
}

// Call emits call to an absolute target.
func (e *Encoder) Call(target uint64) *Encoder {
	e.op(ClassCALL, FnPlain)
	return e.Quad(target)
}

// CallTo emits call to a label.
func (e *Encoder) CallTo(label string) *Encoder {
	e.op(ClassCALL, FnPlain)
	return e.ref(label)
}

// CallReg emits call *rA.
func (e *Encoder) CallReg(ra Reg) *Encoder {
	e.op(ClassCALL, FnRegister)
	e.regs(ra, RegNone)
	return e
}

// Ret emits ret.
func (e *Encoder) Ret() *Encoder {
	e.op(ClassRET, FnPlain)
	return e
}

// Pushq emits pushq rA.
func (e *Encoder) Pushq(ra Reg) *Encoder {
	e.op(ClassPUSHQ, FnPlain)
	e.regs(ra, RegNone)
	return e
}

// Popq emits popq rA.
func (e *Encoder) Popq(ra Reg) *Encoder {
	e.op(ClassPOPQ, FnPlain)
	e.regs(ra, RegNone)
	return e
}

// QuadLabel emits the address of a label as an 8-byte value.
func (e *Encoder) QuadLabel(label string) *Encoder {
	return e.ref(label)
}

func (e *Encoder) ref(label string) *Encoder {
	e.fixups = append(e.fixups, fixup{offset: uint64(len(e.buf)), label: label})
	return e.Quad(0)
}

// Bytes resolves label references and returns the assembled image.
func (e *Encoder) Bytes() ([]byte, error) {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)

	for _, f := range e.fixups {
		addr, ok := e.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}
		binary.LittleEndian.PutUint64(out[f.offset:f.offset+8], addr)
	}

	return out, nil
}

// MustBytes is like Bytes but panics on an undefined label.
func (e *Encoder) MustBytes() []byte {
	b, err := e.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}
