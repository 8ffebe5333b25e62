package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/pipeline"
)

var _ = Describe("Pipeline", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		pipe    *pipeline.Pipeline
	)

	load := func(e *insts.Encoder) {
		Expect(memory.Write(0, e.MustBytes())).To(Succeed())
	}

	// run cycles until an error or the limit, returning the cycle count.
	run := func(limit int) (int, error) {
		for i := 1; i <= limit; i++ {
			if err := pipe.Cycle(); err != nil {
				return i, err
			}
		}
		return limit, nil
	}

	BeforeEach(func() {
		regFile = emu.NewRegFile(emu.DefaultNumRegs)
		memory = emu.NewMemory(emu.WithSize(64 * emu.PageSize))
		pipe = pipeline.NewPipeline(regFile, memory)
	})

	Describe("initial state", func() {
		It("should start at PC 0 with the default condition codes", func() {
			Expect(pipe.PC()).To(BeZero())
			Expect(pipe.CC()).To(Equal(insts.DefaultCC))
		})

		It("should seed PC and CC", func() {
			pipe.SetPC(0x40)
			pipe.SetCC(insts.CC{S: true, O: true})
			Expect(pipe.PC()).To(Equal(uint64(0x40)))
			Expect(pipe.CC()).To(Equal(insts.CC{S: true, O: true}))
		})
	})

	Describe("halt", func() {
		It("should stop on a lone halt byte without side effects", func() {
			load(insts.NewEncoder(0).Halt())

			err := pipe.Cycle()

			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(pipe.PC()).To(BeZero())
			Expect(regFile.Snapshot()).To(HaveEach(uint64(0)))
			Expect(memory.NonZeroQuads()).To(BeEmpty())
			Expect(pipe.Snapshot().Writeback.Stat).To(Equal(insts.StatHLT))
			Expect(pipe.Stats().Instructions).To(BeZero())
			Expect(pipe.Stats().Cycles).To(Equal(uint64(1)))
		})

		It("should stay halted when cycled again", func() {
			load(insts.NewEncoder(0).Nop().Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(pipe.Cycle()).To(MatchError(pipeline.ErrHalted))
			Expect(pipe.Cycle()).To(MatchError(pipeline.ErrHalted))
			Expect(pipe.PC()).To(Equal(uint64(1)))
		})
	})

	Describe("invalid instructions", func() {
		DescribeTable("should fault with INS and leave state untouched",
			func(code byte) {
				regFile.WriteReg(insts.RegRAX, 11)
				regFile.WriteReg(insts.RegRBX, 22)
				load(insts.NewEncoder(0).Raw(code, 0x03).Quad(1))

				err := pipe.Cycle()

				Expect(err).To(MatchError(pipeline.ErrInvalidInstruction))
				Expect(pipe.PC()).To(BeZero())
				Expect(pipe.CC()).To(Equal(insts.DefaultCC))
				Expect(regFile.ReadReg(insts.RegRAX)).To(Equal(uint64(11)))
				Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(22)))

				snap := pipe.Snapshot()
				Expect(snap.Fetch.Stat).To(Equal(insts.StatINS))
				Expect(snap.Fetch.ValP).To(BeZero())
				Expect(snap.Decode.DstE).To(Equal(insts.RegNone))
				Expect(snap.Execute.ValE).To(BeZero())
				Expect(snap.Execute.Cnd).To(BeFalse())
			},
			Entry("unknown class", byte(0xD0)),
			Entry("OPQ fn 7", byte(0x67)),
			Entry("IOPQ fn 7", byte(0xC7)),
			Entry("jump fn 7", byte(0x77)),
			Entry("halt fn 1", byte(0x01)),
		)

		It("should fault with INS on a register outside the file", func() {
			regFile = emu.NewRegFile(8)
			pipe = pipeline.NewPipeline(regFile, memory)
			load(insts.NewEncoder(0).Rrmovq(insts.RegR9, insts.RegRAX).Halt())

			Expect(pipe.Cycle()).To(MatchError(pipeline.ErrInvalidInstruction))
			Expect(pipe.Snapshot().Decode.SrcA).To(Equal(insts.RegNone))
			Expect(pipe.PC()).To(BeZero())
		})
	})

	Describe("write-back to a register outside the file", func() {
		DescribeTable("should fault with INS after decode succeeds",
			func(e *insts.Encoder) {
				regFile = emu.NewRegFile(8)
				pipe = pipeline.NewPipeline(regFile, memory)
				load(e)

				Expect(pipe.Cycle()).To(MatchError(pipeline.ErrInvalidInstruction))

				snap := pipe.Snapshot()
				Expect(snap.Decode.Stat).To(Equal(insts.StatAOK))
				Expect(snap.Memory.Stat).To(Equal(insts.StatAOK))
				Expect(snap.Writeback.Stat).To(Equal(insts.StatINS))
				Expect(snap.Writeback.PC).To(BeZero())
				Expect(pipe.PC()).To(BeZero())
				Expect(regFile.Snapshot()).To(HaveEach(uint64(0)))
			},
			Entry("dstE from irmovq", insts.NewEncoder(0).Irmovq(1, insts.RegR9).Halt()),
			Entry("dstM from mrmovq", insts.NewEncoder(0).Mrmovq(0x100, insts.RegRAX, insts.RegR9).Halt()),
		)
	})

	Describe("arithmetic", func() {
		It("should add an immediate-loaded register", func() {
			regFile.WriteReg(insts.RegRDX, 10)
			load(insts.NewEncoder(0).
				Irmovq(5, insts.RegRCX).
				Opq(insts.ALUAdd, insts.RegRCX, insts.RegRDX).
				Halt())

			cycles, err := run(10)

			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(cycles).To(Equal(3))
			Expect(regFile.ReadReg(insts.RegRCX)).To(Equal(uint64(5)))
			Expect(regFile.ReadReg(insts.RegRDX)).To(Equal(uint64(15)))
			Expect(pipe.CC()).To(Equal(insts.CC{}))
			Expect(pipe.PC()).To(Equal(uint64(12)))
		})

		It("should set zero and sign flags from subtraction", func() {
			regFile.WriteReg(insts.RegRAX, 9)
			regFile.WriteReg(insts.RegRBX, 4)
			load(insts.NewEncoder(0).Opq(insts.ALUSub, insts.RegRAX, insts.RegRBX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(int64(regFile.ReadReg(insts.RegRBX))).To(Equal(int64(-5)))
			Expect(pipe.CC()).To(Equal(insts.CC{S: true}))
		})

		It("should apply immediate ALU operations", func() {
			regFile.WriteReg(insts.RegRSI, 6)
			load(insts.NewEncoder(0).Iopq(insts.ALUMul, 7, insts.RegRSI).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRSI)).To(Equal(uint64(42)))
			Expect(pipe.PC()).To(Equal(uint64(10)))
		})

		It("should not fault on division by zero", func() {
			regFile.WriteReg(insts.RegRBX, 42)
			load(insts.NewEncoder(0).Opq(insts.ALUDiv, insts.RegRAX, insts.RegRBX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(42)))
			Expect(pipe.CC()).To(Equal(insts.CC{O: true}))
		})

		It("should leave flags alone for non-ALU instructions", func() {
			pipe.SetCC(insts.CC{S: true})
			load(insts.NewEncoder(0).Irmovq(0, insts.RegRAX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(pipe.CC()).To(Equal(insts.CC{S: true}))
		})
	})

	Describe("conditional moves", func() {
		It("should skip the move when the predicate is false", func() {
			pipe.SetCC(insts.CC{Z: true})
			regFile.WriteReg(insts.RegRAX, 5)
			regFile.WriteReg(insts.RegRBX, 1)
			load(insts.NewEncoder(0).Cmov(insts.CondNE, insts.RegRAX, insts.RegRBX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(1)))
			Expect(pipe.PC()).To(Equal(uint64(2)))
			Expect(pipe.Stats().MovesSkipped).To(Equal(uint64(1)))
		})

		It("should move when the predicate holds", func() {
			pipe.SetCC(insts.CC{Z: true})
			regFile.WriteReg(insts.RegRAX, 5)
			load(insts.NewEncoder(0).Cmov(insts.CondE, insts.RegRAX, insts.RegRBX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(5)))
		})
	})

	Describe("jumps", func() {
		It("should follow a taken branch", func() {
			pipe.SetCC(insts.CC{Z: true})
			load(insts.NewEncoder(0).
				JxxTo(insts.CondE, "target").
				Irmovq(1, insts.RegRAX).
				Label("target").
				Halt())

			_, err := run(5)

			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(regFile.ReadReg(insts.RegRAX)).To(BeZero())
			Expect(pipe.PC()).To(Equal(uint64(19)))
			Expect(pipe.Stats().BranchesTaken).To(Equal(uint64(1)))
		})

		It("should fall through a not-taken branch", func() {
			load(insts.NewEncoder(0).
				JxxTo(insts.CondNE, "target").
				Irmovq(1, insts.RegRAX).
				Label("target").
				Halt())

			_, err := run(5)

			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(regFile.ReadReg(insts.RegRAX)).To(Equal(uint64(1)))
			Expect(pipe.Stats().BranchesNotTaken).To(Equal(uint64(1)))
		})
	})

	Describe("memory", func() {
		It("should round-trip a store and a load", func() {
			regFile.WriteReg(insts.RegRCX, 0x1234)
			regFile.WriteReg(insts.RegRDX, 0x100)
			load(insts.NewEncoder(0).
				Rmmovq(insts.RegRCX, 0, insts.RegRDX).
				Mrmovq(0, insts.RegRDX, insts.RegRBX).
				Halt())

			_, err := run(5)

			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(0x1234)))
			Expect(memory.ReadLong(0x100)).To(Equal(uint64(0x1234)))
		})

		It("should scale register B for scaled addressing", func() {
			Expect(memory.WriteLong(0x210, 99)).To(Succeed())
			regFile.WriteReg(insts.RegRBX, 2)
			load(insts.NewEncoder(0).MrmovqScaled(0x200, insts.RegRBX, insts.RegRAX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRAX)).To(Equal(uint64(99)))
		})

		It("should fault with ADR on an out-of-range load", func() {
			regFile.WriteReg(insts.RegRAX, 3)
			regFile.WriteReg(insts.RegRDX, memory.Size())
			load(insts.NewEncoder(0).Mrmovq(0, insts.RegRDX, insts.RegRAX).Halt())

			Expect(pipe.Cycle()).To(MatchError(emu.ErrInvalidAddress))
			Expect(regFile.ReadReg(insts.RegRAX)).To(Equal(uint64(3)))
			Expect(pipe.PC()).To(BeZero())
			Expect(pipe.Snapshot().Memory.Stat).To(Equal(insts.StatADR))
		})

		It("should fault with ADR on a misaligned store and leave memory unchanged", func() {
			regFile.WriteReg(insts.RegRCX, 0xFF)
			regFile.WriteReg(insts.RegRDX, 0x104)
			load(insts.NewEncoder(0).Rmmovq(insts.RegRCX, 0, insts.RegRDX).Halt())

			Expect(pipe.Cycle()).To(MatchError(emu.ErrInvalidAddress))
			Expect(memory.ReadLongUnaligned(0x104)).To(BeZero())
		})

		It("should fault with OOM when the page cap is exhausted", func() {
			memory = emu.NewMemory(emu.WithSize(64*emu.PageSize), emu.WithMaxPages(1))
			pipe = pipeline.NewPipeline(regFile, memory)
			regFile.WriteReg(insts.RegRDX, 8*emu.PageSize)
			load(insts.NewEncoder(0).Rmmovq(insts.RegRCX, 0, insts.RegRDX).Halt())

			Expect(pipe.Cycle()).To(MatchError(emu.ErrOutOfMemory))
			Expect(pipe.Snapshot().Writeback.Stat).To(Equal(insts.StatOOM))
		})

		It("should fault with ADR when fetching outside memory", func() {
			pipe.SetPC(memory.Size())

			Expect(pipe.Cycle()).To(MatchError(emu.ErrInvalidAddress))
			Expect(pipe.Snapshot().Fetch.Stat).To(Equal(insts.StatADR))
			Expect(pipe.PC()).To(Equal(memory.Size()))
		})

		It("should fault with ADR on an instruction cut off by the end of memory", func() {
			end := memory.Size() - 4
			Expect(memory.Write(end, []byte{0x30, 0xF0})).To(Succeed())
			pipe.SetPC(end)

			Expect(pipe.Cycle()).To(MatchError(emu.ErrInvalidAddress))
		})
	})

	Describe("stack", func() {
		BeforeEach(func() {
			regFile.WriteReg(insts.RegRSP, 0x400)
		})

		It("should restore rsp and the register across push and pop", func() {
			regFile.WriteReg(insts.RegRCX, 77)
			load(insts.NewEncoder(0).Pushq(insts.RegRCX).Popq(insts.RegRCX).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x3F8)))
			Expect(memory.ReadLong(0x3F8)).To(Equal(uint64(77)))

			_, err := run(5)
			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x400)))
			Expect(regFile.ReadReg(insts.RegRCX)).To(Equal(uint64(77)))
		})

		It("should leave the loaded value in rsp for popq %rsp", func() {
			Expect(memory.WriteLong(0x400, 0x1234)).To(Succeed())
			load(insts.NewEncoder(0).Popq(insts.RegRSP).Halt())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x1234)))
		})

		It("should return to the instruction after call", func() {
			load(insts.NewEncoder(0).
				CallTo("f").
				Irmovq(1, insts.RegRAX).
				Halt().
				Label("f").
				Irmovq(2, insts.RegRBX).
				Ret())

			Expect(pipe.Cycle()).To(Succeed())
			Expect(pipe.PC()).To(Equal(uint64(20)))
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x3F8)))
			Expect(memory.ReadLong(0x3F8)).To(Equal(uint64(9)))

			cycles, err := run(10)
			Expect(err).To(MatchError(pipeline.ErrHalted))
			Expect(cycles).To(Equal(4))
			Expect(regFile.ReadReg(insts.RegRAX)).To(Equal(uint64(1)))
			Expect(regFile.ReadReg(insts.RegRBX)).To(Equal(uint64(2)))
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x400)))
		})

		It("should call through a register", func() {
			regFile.WriteReg(insts.RegRAX, 0x20)
			e := insts.NewEncoder(0).CallReg(insts.RegRAX).Halt().Pos(0x20).Ret()
			load(e)

			Expect(pipe.Cycle()).To(Succeed())
			Expect(pipe.PC()).To(Equal(uint64(0x20)))
			Expect(memory.ReadLong(0x3F8)).To(Equal(uint64(2)))

			Expect(pipe.Cycle()).To(Succeed())
			Expect(pipe.PC()).To(Equal(uint64(2)))
		})

		It("should fault with ADR on a misaligned stack", func() {
			regFile.WriteReg(insts.RegRSP, 0x403)
			load(insts.NewEncoder(0).Pushq(insts.RegRAX).Halt())

			Expect(pipe.Cycle()).To(MatchError(emu.ErrInvalidAddress))
			Expect(regFile.ReadReg(insts.RegRSP)).To(Equal(uint64(0x403)))
		})
	})

	Describe("statistics", func() {
		It("should count cycles and retired instructions per class", func() {
			load(insts.NewEncoder(0).Nop().Nop().Irmovq(1, insts.RegRAX).Halt())

			_, err := run(10)

			Expect(err).To(MatchError(pipeline.ErrHalted))
			stats := pipe.Stats()
			Expect(stats.Cycles).To(Equal(uint64(4)))
			Expect(stats.Instructions).To(Equal(uint64(3)))
			Expect(stats.ByClass).To(HaveKeyWithValue(insts.ClassNOP, uint64(2)))
			Expect(stats.ByClass).To(HaveKeyWithValue(insts.ClassIRMOVQ, uint64(1)))
			Expect(stats.CPI()).To(BeNumerically("~", 4.0/3.0))
		})

		It("should clear statistics on reset", func() {
			load(insts.NewEncoder(0).Nop().Halt())
			Expect(pipe.Cycle()).To(Succeed())

			pipe.Reset()

			Expect(pipe.Stats().Cycles).To(BeZero())
			Expect(pipe.PC()).To(BeZero())
		})
	})

	Describe("logging", func() {
		It("should log every retired instruction at debug level", func() {
			logger, hook := logtest.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			pipe = pipeline.NewPipeline(regFile, memory, pipeline.WithLogger(logger))
			load(insts.NewEncoder(0).Irmovq(5, insts.RegRCX).Halt())

			_, _ = run(5)

			Expect(hook.AllEntries()).To(HaveLen(2))
			first := hook.AllEntries()[0]
			Expect(first.Level).To(Equal(logrus.DebugLevel))
			Expect(first.Data).To(HaveKeyWithValue("inst", "irmovq $5, %rcx"))
			Expect(first.Data).To(HaveKeyWithValue("pc", "0x0"))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("stat", "HLT"))
		})
	})
})
