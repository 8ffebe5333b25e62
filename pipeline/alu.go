package pipeline

import "github.com/sarchlab/y86sim/insts"

// ALU computes b <op> a on 64-bit two's-complement operands and reports
// signed overflow. Division and modulo by zero return b with overflow set.
func ALU(op insts.ALUOp, a, b uint64) (uint64, bool) {
	sa, sb := int64(a), int64(b)

	switch op {
	case insts.ALUAdd:
		r := sb + sa
		return uint64(r), (sa < 0) == (sb < 0) && (r < 0) != (sa < 0)
	case insts.ALUSub:
		r := sb - sa
		return uint64(r), (sa < 0) != (sb < 0) && (r < 0) != (sb < 0)
	case insts.ALUAnd:
		return b & a, false
	case insts.ALUXor:
		return b ^ a, false
	case insts.ALUMul:
		r := sb * sa
		return uint64(r), sb != 0 && r/sb != sa
	case insts.ALUDiv:
		if sa == 0 {
			return b, true
		}
		return uint64(sb / sa), false
	case insts.ALUMod:
		if sa == 0 {
			return b, true
		}
		return uint64(sb % sa), false
	default:
		return 0, false
	}
}
