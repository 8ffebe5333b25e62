package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/pipeline"
)

var _ = Describe("Slot", func() {
	It("should allow one write and many reads", func() {
		var s pipeline.Slot[uint64]
		s.Set(7)
		Expect(s.Get()).To(Equal(uint64(7)))
		Expect(s.Get()).To(Equal(uint64(7)))
	})

	It("should panic with a timing error on a second write", func() {
		var s pipeline.Slot[uint64]
		s.Set(1)
		Expect(func() { s.Set(2) }).To(PanicWith(BeAssignableToTypeOf(&pipeline.TimingError{})))
	})

	It("should panic with a timing error on an early read", func() {
		var s pipeline.Slot[bool]
		Expect(func() { s.Get() }).To(PanicWith(&pipeline.TimingError{Op: pipeline.OpEarlyRead}))
	})

	It("should peek without panicking", func() {
		var s pipeline.Slot[int]
		v, ok := s.Peek()
		Expect(ok).To(BeFalse())
		Expect(v).To(Equal(0))
	})
})

var _ = Describe("Bank", func() {
	var bank *pipeline.Bank[pipeline.WritebackRegs, *pipeline.WritebackRegs]

	BeforeEach(func() {
		bank = pipeline.NewBank[pipeline.WritebackRegs]("W")
	})

	It("should name slots after the bank", func() {
		Expect(bank.Staged().PC.Name()).To(Equal("W.pc"))
		Expect(bank.Committed().Stat.Name()).To(Equal("W.stat"))
	})

	It("should publish staged values on commit", func() {
		bank.Staged().PC.Set(0x40)
		bank.Commit()
		Expect(bank.Committed().PC.Get()).To(Equal(uint64(0x40)))
	})

	It("should hand out a fresh staged half after commit", func() {
		bank.Staged().PC.Set(1)
		bank.Commit()
		bank.Staged().PC.Set(2)
		bank.Commit()
		Expect(bank.Committed().PC.Get()).To(Equal(uint64(2)))

		_, ok := bank.Staged().PC.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should keep the committed half untouched until commit", func() {
		bank.Staged().PC.Set(1)
		bank.Commit()
		bank.Staged().PC.Set(2)
		Expect(bank.Committed().PC.Get()).To(Equal(uint64(1)))
	})

	It("should report the slot in the timing error", func() {
		defer func() {
			r := recover()
			Expect(r).To(Equal(&pipeline.TimingError{Slot: "W.stat", Op: pipeline.OpEarlyRead}))
		}()
		bank.Committed().Stat.Get()
	})

	It("should discard staged values", func() {
		bank.Staged().PC.Set(9)
		bank.Discard()
		Expect(func() { bank.Staged().PC.Set(10) }).NotTo(Panic())
	})
})
