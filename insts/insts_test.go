package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/insts"
)

var _ = Describe("Insts Package", func() {
	Describe("ValidFunction", func() {
		DescribeTable("single-byte discriminator classes",
			func(c insts.Class) {
				for fn := uint8(0); fn < 16; fn++ {
					expected := fn == 0 || fn == 4 || fn == 8
					Expect(insts.ValidFunction(c, fn)).To(Equal(expected),
						"class %s fn %d", c, fn)
				}
			},
			Entry("halt", insts.ClassHALT),
			Entry("nop", insts.ClassNOP),
			Entry("irmovq", insts.ClassIRMOVQ),
			Entry("ret", insts.ClassRET),
			Entry("pushq", insts.ClassPUSHQ),
			Entry("popq", insts.ClassPOPQ),
			Entry("call", insts.ClassCALL),
			Entry("rmmovq", insts.ClassRMMOVQ),
			Entry("mrmovq", insts.ClassMRMOVQ),
		)

		DescribeTable("selector classes accept exactly 0..6",
			func(c insts.Class) {
				for fn := uint8(0); fn < 16; fn++ {
					Expect(insts.ValidFunction(c, fn)).To(Equal(fn <= 6),
						"class %s fn %d", c, fn)
				}
			},
			Entry("rrmvxx", insts.ClassRRMVXX),
			Entry("jxx", insts.ClassJXX),
			Entry("opq", insts.ClassOPQ),
			Entry("iopq", insts.ClassIOPQ),
		)

		It("should reject the undefined classes", func() {
			for c := 0xD; c <= 0xF; c++ {
				for fn := uint8(0); fn < 16; fn++ {
					Expect(insts.ValidFunction(insts.Class(c), fn)).To(BeFalse())
				}
			}
		})
	})

	Describe("FieldsOf", func() {
		DescribeTable("instruction lengths",
			func(c insts.Class, fn uint8, length uint64) {
				Expect(insts.FieldsOf(c, fn).Length).To(Equal(length))
			},
			Entry("halt", insts.ClassHALT, uint8(0), uint64(1)),
			Entry("nop", insts.ClassNOP, uint8(0), uint64(1)),
			Entry("ret", insts.ClassRET, uint8(0), uint64(1)),
			Entry("rrmovq", insts.ClassRRMVXX, uint8(0), uint64(2)),
			Entry("opq", insts.ClassOPQ, uint8(1), uint64(2)),
			Entry("pushq", insts.ClassPUSHQ, uint8(0), uint64(2)),
			Entry("popq", insts.ClassPOPQ, uint8(0), uint64(2)),
			Entry("call *reg", insts.ClassCALL, uint8(8), uint64(2)),
			Entry("call dest", insts.ClassCALL, uint8(0), uint64(9)),
			Entry("jxx", insts.ClassJXX, uint8(3), uint64(9)),
			Entry("irmovq", insts.ClassIRMOVQ, uint8(0), uint64(10)),
			Entry("rmmovq", insts.ClassRMMOVQ, uint8(4), uint64(10)),
			Entry("mrmovq", insts.ClassMRMOVQ, uint8(0), uint64(10)),
			Entry("iopq", insts.ClassIOPQ, uint8(0), uint64(10)),
		)
	})

	Describe("Status", func() {
		It("should treat every non-AOK status as terminal", func() {
			Expect(insts.StatAOK.Terminal()).To(BeFalse())
			for _, s := range []insts.Status{insts.StatHLT, insts.StatADR, insts.StatINS, insts.StatOOM} {
				Expect(s.Terminal()).To(BeTrue())
			}
		})

		It("should print mnemonics", func() {
			Expect(insts.StatADR.String()).To(Equal("ADR"))
			Expect(insts.Status(9).String()).To(Equal("Status(9)"))
		})
	})

	Describe("Registers", func() {
		It("should round-trip register names", func() {
			for r := insts.Reg(0); r < insts.NumRegs; r++ {
				parsed, ok := insts.ParseReg("%" + insts.RegName(r))
				Expect(ok).To(BeTrue())
				Expect(parsed).To(Equal(r))
			}
		})

		It("should reject unknown names", func() {
			_, ok := insts.ParseReg("%r15")
			Expect(ok).To(BeFalse())
		})
	})
})
