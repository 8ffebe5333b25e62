package emu

import "fmt"

// DefaultNumRegs is the size of the Y86-64 program register file.
const DefaultNumRegs = 15

// RegFile represents the program register file.
type RegFile struct {
	regs []uint64
}

// NewRegFile creates a register file with n registers, all zero.
func NewRegFile(n int) *RegFile {
	return &RegFile{regs: make([]uint64, n)}
}

// Len returns the number of registers.
func (r *RegFile) Len() int {
	return len(r.regs)
}

// Get reads register idx.
func (r *RegFile) Get(idx uint8) (uint64, error) {
	if int(idx) >= len(r.regs) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRegister, idx)
	}
	return r.regs[idx], nil
}

// Set writes register idx.
func (r *RegFile) Set(idx uint8, value uint64) error {
	if int(idx) >= len(r.regs) {
		return fmt.Errorf("%w: %d", ErrInvalidRegister, idx)
	}
	r.regs[idx] = value
	return nil
}

// ReadReg reads a register value. Out-of-range indices read as 0.
func (r *RegFile) ReadReg(idx uint8) uint64 {
	v, _ := r.Get(idx)
	return v
}

// WriteReg writes a register value. Writes to out-of-range indices are ignored.
func (r *RegFile) WriteReg(idx uint8, value uint64) {
	_ = r.Set(idx, value)
}

// Snapshot returns a copy of all register values.
func (r *RegFile) Snapshot() []uint64 {
	out := make([]uint64, len(r.regs))
	copy(out, r.regs)
	return out
}

// Reset zeroes every register.
func (r *RegFile) Reset() {
	for i := range r.regs {
		r.regs[i] = 0
	}
}
