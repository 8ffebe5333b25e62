// Package insts provides Y86-64 instruction definitions, decoding and encoding.
//
// The instruction set is a Y86-64 variant extended with multiply, divide and
// modulo ALU operations, an immediate ALU form (IOPQ), scaled memory
// addressing and a register-indirect call. Byte 0 of every instruction holds
// the instruction class in its high nibble and the function code in its low
// nibble. Register operands, when present, occupy byte 1 and an 8-byte
// little-endian constant follows.
//
// Usage:
//
//	code := insts.NewEncoder(0).
//		Irmovq(5, insts.RegRCX).
//		Opq(insts.ALUAdd, insts.RegRCX, insts.RegRDX).
//		Halt().
//		MustBytes()
//	inst, _ := insts.NewDecoder().Decode(code)
//	fmt.Println(inst) // irmovq $5, %rcx
package insts
