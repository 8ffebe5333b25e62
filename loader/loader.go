// Package loader reads Y86-64 program images: yas object listings (.yo) and
// raw binary images.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/y86sim/emu"
)

// ErrMalformed is returned for a listing line that cannot be parsed.
var ErrMalformed = errors.New("malformed object listing")

// Segment is a contiguous run of bytes placed at a fixed address.
type Segment struct {
	// VirtAddr is the address of the first byte.
	VirtAddr uint64
	// Data contains the segment contents.
	Data []byte
}

// End returns the address one past the last byte of the segment.
func (s Segment) End() uint64 {
	return s.VirtAddr + uint64(len(s.Data))
}

// Program is a loaded image ready to be copied into memory.
type Program struct {
	// EntryPoint is the address where execution begins.
	EntryPoint uint64
	// Segments contains the image contents ordered by address.
	Segments []Segment
	// InitialSP is the initial stack pointer, 0 if the image sets none.
	InitialSP uint64
}

// Size returns the number of image bytes.
func (p *Program) Size() uint64 {
	var n uint64
	for _, seg := range p.Segments {
		n += uint64(len(seg.Data))
	}
	return n
}

// LoadIntoMemory copies every segment into memory.
func (p *Program) LoadIntoMemory(memory *emu.Memory) error {
	for _, seg := range p.Segments {
		if err := memory.Write(seg.VirtAddr, seg.Data); err != nil {
			return fmt.Errorf("failed to load segment at 0x%x: %w", seg.VirtAddr, err)
		}
	}
	return nil
}

// Load reads a program file. Files ending in .yo are parsed as object
// listings; anything else is loaded as a raw image at address 0.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".yo") {
		return ParseListing(f)
	}
	return LoadRaw(f, 0)
}

// LoadRawFile reads a raw image file placed at base.
func LoadRawFile(path string, base uint64) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadRaw(f, base)
}

// LoadRaw reads a raw image placed at base. Execution starts at base.
func LoadRaw(r io.Reader, base uint64) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty raw image")
	}

	return &Program{
		EntryPoint: base,
		Segments:   []Segment{{VirtAddr: base, Data: data}},
	}, nil
}
