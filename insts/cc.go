package insts

import "strings"

// Packed condition-code bit positions.
const (
	CCZeroBit     uint16 = 0x100
	CCSignBit     uint16 = 0x010
	CCOverflowBit uint16 = 0x001
)

// CC holds the zero, sign and overflow condition flags.
type CC struct {
	Z bool
	S bool
	O bool
}

// DefaultCC is the condition-code value of a freshly reset machine.
var DefaultCC = CC{Z: true}

// CCFromResult computes the flags for an ALU result.
func CCFromResult(result int64, overflow bool) CC {
	return CC{Z: result == 0, S: result < 0, O: overflow}
}

// Pack encodes the flags as 0x100 (zero) | 0x010 (sign) | 0x001 (overflow).
func (c CC) Pack() uint16 {
	var v uint16
	if c.Z {
		v |= CCZeroBit
	}
	if c.S {
		v |= CCSignBit
	}
	if c.O {
		v |= CCOverflowBit
	}
	return v
}

// UnpackCC decodes a packed flag word.
func UnpackCC(v uint16) CC {
	return CC{
		Z: v&CCZeroBit != 0,
		S: v&CCSignBit != 0,
		O: v&CCOverflowBit != 0,
	}
}

// Eval evaluates a condition selector against the flags. Unknown selectors
// evaluate to false.
func (c CC) Eval(cond Cond) bool {
	lt := c.S != c.O
	switch cond {
	case CondNC:
		return true
	case CondLE:
		return lt || c.Z
	case CondL:
		return lt
	case CondE:
		return c.Z
	case CondNE:
		return !c.Z
	case CondGE:
		return !lt
	case CondG:
		return !lt && !c.Z
	default:
		return false
	}
}

// String renders the flags as "Z=1 S=0 O=0".
func (c CC) String() string {
	var b strings.Builder
	b.WriteString("Z=")
	b.WriteString(bit(c.Z))
	b.WriteString(" S=")
	b.WriteString(bit(c.S))
	b.WriteString(" O=")
	b.WriteString(bit(c.O))
	return b.String()
}

func bit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
