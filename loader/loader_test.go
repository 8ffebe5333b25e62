package loader_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/loader"
)

const sumListing = `                            | # Sum two numbers
0x000:                      | .pos 0
0x000: 30f40001000000000000 | irmovq stack, %rsp
0x00a: 30f20500000000000000 | irmovq $5, %rdx
0x014: 6020                 | addq %rdx, %rax
0x016: 00                   | halt
                            |
0x018:                      | .align 8
0x018: 0d000d000d000000     | data: .quad 0xd000d000d
0x100:                      | .pos 0x100
0x100:                      | stack:
`

var _ = Describe("Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("ParseListing", func() {
		It("should merge contiguous lines into one segment", func() {
			prog, err := loader.ParseListing(strings.NewReader(sumListing))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0)))
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[0].VirtAddr).To(Equal(uint64(0)))
			Expect(prog.Segments[0].Data).To(HaveLen(0x17))
			Expect(prog.Segments[0].Data[0x14:0x17]).To(Equal([]byte{0x60, 0x20, 0x00}))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint64(0x18)))
			Expect(prog.Size()).To(Equal(uint64(0x17 + 8)))
		})

		It("should order segments and pick the lowest address as entry", func() {
			listing := "0x020: 00 | halt\n0x010: 10 | nop\n"
			prog, err := loader.ParseListing(strings.NewReader(listing))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x10)))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint64(0x20)))
		})

		It("should merge touching lines listed out of order", func() {
			listing := "0x002: 00 | halt\n0x000: 6020 | addq %rdx, %rax\n"
			prog, err := loader.ParseListing(strings.NewReader(listing))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].Data).To(Equal([]byte{0x60, 0x20, 0x00}))
		})

		It("should reject overlapping lines", func() {
			listing := "0x000: 30f20500000000000000 | irmovq $5, %rdx\n0x004: 00 | halt\n"
			_, err := loader.ParseListing(strings.NewReader(listing))

			Expect(err).To(MatchError(loader.ErrMalformed))
			Expect(err.Error()).To(ContainSubstring("overlap"))
		})

		It("should reject bad hex", func() {
			_, err := loader.ParseListing(strings.NewReader("0x000: 3zz0 | junk\n"))
			Expect(err).To(MatchError(loader.ErrMalformed))
			Expect(err.Error()).To(ContainSubstring("line 1"))
		})

		It("should reject an address without a 0x prefix", func() {
			_, err := loader.ParseListing(strings.NewReader("000: 00 | halt\n"))
			Expect(err).To(MatchError(loader.ErrMalformed))
		})

		It("should reject a listing without code", func() {
			_, err := loader.ParseListing(strings.NewReader("   | # nothing\n"))
			Expect(err).To(MatchError(loader.ErrMalformed))
		})
	})

	Describe("LoadRaw", func() {
		It("should place the image at the base", func() {
			prog, err := loader.LoadRaw(bytes.NewReader([]byte{0x10, 0x00}), 0x40)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x40)))
			Expect(prog.Segments).To(Equal([]loader.Segment{{VirtAddr: 0x40, Data: []byte{0x10, 0x00}}}))
		})

		It("should reject an empty image", func() {
			_, err := loader.LoadRaw(bytes.NewReader(nil), 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should parse .yo files as listings", func() {
			path := filepath.Join(tempDir, "sum.yo")
			Expect(os.WriteFile(path, []byte(sumListing), 0644)).To(Succeed())

			prog, err := loader.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
		})

		It("should load other files as raw images", func() {
			path := filepath.Join(tempDir, "prog.bin")
			Expect(os.WriteFile(path, []byte{0x00}, 0644)).To(Succeed())

			prog, err := loader.Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(Equal([]byte{0x00}))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load(filepath.Join(tempDir, "missing.yo"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadIntoMemory", func() {
		It("should copy every segment", func() {
			prog, err := loader.ParseListing(strings.NewReader(sumListing))
			Expect(err).NotTo(HaveOccurred())
			memory := emu.NewMemory(emu.WithSize(4 * emu.PageSize))

			Expect(prog.LoadIntoMemory(memory)).To(Succeed())

			Expect(memory.Read8(0x14)).To(Equal(byte(0x60)))
			Expect(memory.ReadLong(0x18)).To(Equal(uint64(0xd000d000d)))
		})

		It("should fail when a segment lies outside memory", func() {
			prog := &loader.Program{Segments: []loader.Segment{{VirtAddr: 0x2000, Data: []byte{1}}}}
			memory := emu.NewMemory(emu.WithSize(emu.PageSize))

			Expect(prog.LoadIntoMemory(memory)).To(MatchError(emu.ErrInvalidAddress))
		})
	})
})

var _ = Describe("LoadRawFile", func() {
	It("should place a file image at the base", func() {
		path := filepath.Join(GinkgoT().TempDir(), "prog.yo")
		Expect(os.WriteFile(path, []byte{0x10, 0x00}, 0644)).To(Succeed())

		prog, err := loader.LoadRawFile(path, 0x80)

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.EntryPoint).To(Equal(uint64(0x80)))
		Expect(prog.Segments[0].Data).To(Equal([]byte{0x10, 0x00}))
	})
})
