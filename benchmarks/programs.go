package benchmarks

import (
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

// dataBase is where benchmark data arrays are placed.
const dataBase = 0x400

// GetMicrobenchmarks returns the standard set of workloads. Each one leaves
// its answer in %rax.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		indirectCalls(),
		loopSum(),
		arraySum(),
		recursiveFactorial(),
		gcd(),
		conditionalMax(),
		stackRoundTrip(),
	}
}

// GetCoreBenchmarks returns a small set for quick validation: a loop,
// recursion and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSum(),
		recursiveFactorial(),
		conditionalMax(),
	}
}

func arithmeticSequential() Benchmark {
	e := insts.NewEncoder(0)
	regs := []insts.Reg{insts.RegRAX, insts.RegRCX, insts.RegRDX, insts.RegRBX, insts.RegRSI}
	for i := 0; i < 4; i++ {
		for _, r := range regs {
			e.Iopq(insts.ALUAdd, 1, r)
		}
	}
	e.Halt()

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent iaddq into five registers",
		Program:     e.MustBytes(),
		Expected:    4,
	}
}

func dependencyChain() Benchmark {
	e := insts.NewEncoder(0)
	for i := 0; i < 20; i++ {
		e.Iopq(insts.ALUAdd, 1, insts.RegRAX)
	}
	e.Halt()

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent iaddq on %rax",
		Program:     e.MustBytes(),
		Expected:    20,
	}
}

func memorySequential() Benchmark {
	e := insts.NewEncoder(0)
	for i := int64(0); i < 10; i++ {
		e.Rmmovq(insts.RegRAX, i*8, insts.RegRBX)
		e.Mrmovq(i*8, insts.RegRBX, insts.RegRAX)
	}
	e.Halt()

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs to sequential quads",
		Setup: func(regFile *emu.RegFile, _ *emu.Memory) {
			regFile.WriteReg(insts.RegRBX, 0x1000) // base address
			regFile.WriteReg(insts.RegRAX, 42)     // value to store and reload
		},
		Program:  e.MustBytes(),
		Expected: 42,
	}
}

func functionCalls() Benchmark {
	e := insts.NewEncoder(0)
	for i := 0; i < 5; i++ {
		e.CallTo("inc")
	}
	e.Halt().
		Label("inc").
		Iopq(insts.ALUAdd, 1, insts.RegRAX).
		Ret()

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a leaf function",
		Program:     e.MustBytes(),
		Expected:    5,
	}
}

func indirectCalls() Benchmark {
	const fn = 0x100

	e := insts.NewEncoder(0).Irmovq(fn, insts.RegRDX)
	for i := 0; i < 3; i++ {
		e.CallReg(insts.RegRDX)
	}
	e.Halt().
		Pos(fn).
		Iopq(insts.ALUAdd, 2, insts.RegRAX).
		Ret()

	return Benchmark{
		Name:        "indirect_calls",
		Description: "3 register-indirect calls",
		Program:     e.MustBytes(),
		Expected:    6,
	}
}

func loopSum() Benchmark {
	e := insts.NewEncoder(0).
		Irmovq(10, insts.RegRCX).
		Label("loop").
		Opq(insts.ALUAdd, insts.RegRCX, insts.RegRAX).
		Iopq(insts.ALUSub, 1, insts.RegRCX).
		JxxTo(insts.CondNE, "loop").
		Halt()

	return Benchmark{
		Name:        "loop_sum",
		Description: "sum 10 down to 1 with a counted loop",
		Program:     e.MustBytes(),
		Expected:    55,
	}
}

func arraySum() Benchmark {
	values := []uint64{3, 1, 4, 1, 5, 9, 2, 6}

	e := insts.NewEncoder(0).
		Irmovq(int64(len(values)), insts.RegRDX).
		Label("loop").
		MrmovqScaled(dataBase, insts.RegRCX, insts.RegRBX).
		Opq(insts.ALUAdd, insts.RegRBX, insts.RegRAX).
		Iopq(insts.ALUAdd, 1, insts.RegRCX).
		Rrmovq(insts.RegRCX, insts.RegRSI).
		Opq(insts.ALUSub, insts.RegRDX, insts.RegRSI).
		JxxTo(insts.CondL, "loop").
		Halt().
		Pos(dataBase)
	for _, v := range values {
		e.Quad(v)
	}

	return Benchmark{
		Name:        "array_sum",
		Description: "sum an 8-element array with scaled addressing",
		Program:     e.MustBytes(),
		Expected:    31,
	}
}

func recursiveFactorial() Benchmark {
	e := insts.NewEncoder(0).
		Irmovq(5, insts.RegRDI).
		CallTo("fact").
		Halt().
		Label("fact").
		Irmovq(1, insts.RegRAX).
		Rrmovq(insts.RegRDI, insts.RegRBX).
		Iopq(insts.ALUSub, 1, insts.RegRBX).
		JxxTo(insts.CondLE, "base").
		Pushq(insts.RegRDI).
		Rrmovq(insts.RegRBX, insts.RegRDI).
		CallTo("fact").
		Popq(insts.RegRDI).
		Opq(insts.ALUMul, insts.RegRDI, insts.RegRAX).
		Label("base").
		Ret()

	return Benchmark{
		Name:        "recursive_factorial",
		Description: "5! by recursion",
		Program:     e.MustBytes(),
		Expected:    120,
	}
}

func gcd() Benchmark {
	e := insts.NewEncoder(0).
		Irmovq(1071, insts.RegRAX).
		Irmovq(462, insts.RegRBX).
		Label("loop").
		Rrmovq(insts.RegRAX, insts.RegRCX).
		Opq(insts.ALUMod, insts.RegRBX, insts.RegRCX).
		Rrmovq(insts.RegRBX, insts.RegRAX).
		Rrmovq(insts.RegRCX, insts.RegRBX).
		Opq(insts.ALUAnd, insts.RegRBX, insts.RegRBX).
		JxxTo(insts.CondNE, "loop").
		Halt()

	return Benchmark{
		Name:        "gcd",
		Description: "Euclid's algorithm on 1071 and 462 using modq",
		Program:     e.MustBytes(),
		Expected:    21,
	}
}

func conditionalMax() Benchmark {
	values := []int64{7, -3, 12, 5, 9}

	e := insts.NewEncoder(0).
		Irmovq(dataBase, insts.RegRDX).
		Irmovq(int64(len(values)), insts.RegRCX).
		Mrmovq(0, insts.RegRDX, insts.RegRAX).
		Label("loop").
		Mrmovq(0, insts.RegRDX, insts.RegRBX).
		Rrmovq(insts.RegRBX, insts.RegRSI).
		Opq(insts.ALUSub, insts.RegRAX, insts.RegRSI).
		Cmov(insts.CondG, insts.RegRBX, insts.RegRAX).
		Iopq(insts.ALUAdd, 8, insts.RegRDX).
		Iopq(insts.ALUSub, 1, insts.RegRCX).
		JxxTo(insts.CondNE, "loop").
		Halt().
		Pos(dataBase)
	for _, v := range values {
		e.Quad(uint64(v))
	}

	return Benchmark{
		Name:        "conditional_max",
		Description: "maximum of 5 signed values with cmovg",
		Program:     e.MustBytes(),
		Expected:    12,
	}
}

func stackRoundTrip() Benchmark {
	e := insts.NewEncoder(0)
	for i := int64(1); i <= 8; i++ {
		e.Irmovq(i, insts.RegRBX).Pushq(insts.RegRBX)
	}
	for i := 0; i < 8; i++ {
		e.Popq(insts.RegRBX).Opq(insts.ALUAdd, insts.RegRBX, insts.RegRAX)
	}
	e.Halt()

	return Benchmark{
		Name:        "stack_round_trip",
		Description: "push 1..8 and pop them into a running sum",
		Program:     e.MustBytes(),
		Expected:    36,
	}
}
