package emu

import (
	"encoding/binary"
	"fmt"
	"sort"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// PageSize is the granularity at which memory becomes resident.
const PageSize = 1024

// DefaultMemorySize is the default addressable memory size (1 MiB).
const DefaultMemorySize = 1 << 20

// Memory is a byte-addressable little-endian memory. Pages are allocated on
// first access. Resident pages are tracked by a fully-associative Akita
// directory whose way count is the page cap; an access that needs a new page
// when every way is taken fails with ErrOutOfMemory.
type Memory struct {
	size     uint64
	maxPages int

	// directory maps page addresses to frames (one set, maxPages ways).
	directory *akitacache.DirectoryImpl

	// frames holds page contents, indexed by directory way.
	frames [][]byte
}

// MemoryOption is a functional option for configuring Memory.
type MemoryOption func(*Memory)

// WithSize sets the addressable size in bytes.
func WithSize(size uint64) MemoryOption {
	return func(m *Memory) {
		m.size = size
	}
}

// WithMaxPages caps the number of resident pages. A value <= 0 allows the
// whole address space to become resident.
func WithMaxPages(n int) MemoryOption {
	return func(m *Memory) {
		m.maxPages = n
	}
}

// NewMemory creates a new, empty memory.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{size: DefaultMemorySize}

	for _, opt := range opts {
		opt(m)
	}

	allPages := int((m.size + PageSize - 1) / PageSize)
	if m.maxPages <= 0 || m.maxPages > allPages {
		m.maxPages = allPages
	}
	if m.maxPages == 0 {
		m.maxPages = 1
	}

	m.directory = akitacache.NewDirectory(
		1,
		m.maxPages,
		PageSize,
		akitacache.NewLRUVictimFinder(),
	)
	m.frames = make([][]byte, m.maxPages)

	return m
}

// Size returns the addressable size in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

// MaxPages returns the resident page cap.
func (m *Memory) MaxPages() int {
	return m.maxPages
}

// PagesInUse returns the number of resident pages.
func (m *Memory) PagesInUse() int {
	n := 0
	for _, f := range m.frames {
		if f != nil {
			n++
		}
	}
	return n
}

// checkRange validates that [addr, addr+n) lies inside memory.
func (m *Memory) checkRange(addr, n uint64) error {
	if addr >= m.size || n > m.size-addr {
		return fmt.Errorf("%w: 0x%x (+%d)", ErrInvalidAddress, addr, n)
	}
	return nil
}

// page returns the frame holding addr, allocating it if needed.
func (m *Memory) page(addr uint64) ([]byte, error) {
	pageAddr := addr / PageSize * PageSize

	block := m.directory.Lookup(0, pageAddr)
	if block != nil && block.IsValid {
		m.directory.Visit(block)
		return m.frames[block.WayID], nil
	}

	victim := m.directory.FindVictim(pageAddr)
	if victim == nil || victim.IsValid {
		return nil, fmt.Errorf("%w: page 0x%x would exceed %d pages",
			ErrOutOfMemory, pageAddr, m.maxPages)
	}

	victim.Tag = pageAddr
	victim.IsValid = true
	victim.IsDirty = false
	m.frames[victim.WayID] = make([]byte, PageSize)
	m.directory.Visit(victim)

	return m.frames[victim.WayID], nil
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) (byte, error) {
	if err := m.checkRange(addr, 1); err != nil {
		return 0, err
	}
	frame, err := m.page(addr)
	if err != nil {
		return 0, err
	}
	return frame[addr%PageSize], nil
}

// Read reads n bytes starting at addr. The access may span pages.
func (m *Memory) Read(addr uint64, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidAddress, n)
	}
	if err := m.checkRange(addr, uint64(n)); err != nil {
		return nil, err
	}

	out := make([]byte, 0, n)
	for cur, end := addr, addr+uint64(n); cur < end; {
		frame, err := m.page(cur)
		if err != nil {
			return nil, err
		}
		off := cur % PageSize
		chunk := min(uint64(PageSize)-off, end-cur)
		out = append(out, frame[off:off+chunk]...)
		cur += chunk
	}
	return out, nil
}

// ReadLong reads an aligned 8-byte little-endian value.
func (m *Memory) ReadLong(addr uint64) (uint64, error) {
	if addr%8 != 0 {
		return 0, fmt.Errorf("%w: misaligned long read at 0x%x", ErrInvalidAddress, addr)
	}
	return m.ReadLongUnaligned(addr)
}

// ReadLongUnaligned reads an 8-byte little-endian value at any address.
func (m *Memory) ReadLongUnaligned(addr uint64) (uint64, error) {
	data, err := m.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// WriteLong writes an aligned 8-byte little-endian value. On failure memory
// is left unchanged.
func (m *Memory) WriteLong(addr uint64, value uint64) error {
	if addr%8 != 0 {
		return fmt.Errorf("%w: misaligned long write at 0x%x", ErrInvalidAddress, addr)
	}
	if err := m.checkRange(addr, 8); err != nil {
		return err
	}

	// Aligned long words never straddle a page.
	frame, err := m.page(addr)
	if err != nil {
		return err
	}
	off := addr % PageSize
	binary.LittleEndian.PutUint64(frame[off:off+8], value)
	return nil
}

// Write stores raw bytes starting at addr. It is meant for program loading;
// a failure part way leaves the already-written pages modified.
func (m *Memory) Write(addr uint64, data []byte) error {
	if err := m.checkRange(addr, uint64(len(data))); err != nil {
		return err
	}

	for len(data) > 0 {
		frame, err := m.page(addr)
		if err != nil {
			return err
		}
		off := addr % PageSize
		n := copy(frame[off:], data)
		data = data[n:]
		addr += uint64(n)
	}
	return nil
}

// resident returns the frame holding addr, or nil if its page has never been
// touched. It does not allocate or update recency.
func (m *Memory) resident(addr uint64) []byte {
	block := m.directory.Lookup(0, addr/PageSize*PageSize)
	if block == nil || !block.IsValid {
		return nil
	}
	return m.frames[block.WayID]
}

// PeekBytes reads n bytes without making any page resident. Untouched pages
// read as zero.
func (m *Memory) PeekBytes(addr uint64, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidAddress, n)
	}
	if err := m.checkRange(addr, uint64(n)); err != nil {
		return nil, err
	}

	out := make([]byte, n)
	for cur, end := addr, addr+uint64(n); cur < end; {
		off := cur % PageSize
		chunk := min(uint64(PageSize)-off, end-cur)
		if frame := m.resident(cur); frame != nil {
			copy(out[cur-addr:], frame[off:off+chunk])
		}
		cur += chunk
	}
	return out, nil
}

// PeekLong reads an aligned long word like ReadLong but without making its
// page resident.
func (m *Memory) PeekLong(addr uint64) (uint64, error) {
	if addr%8 != 0 {
		return 0, fmt.Errorf("%w: misaligned long read at 0x%x", ErrInvalidAddress, addr)
	}
	data, err := m.PeekBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Quad is an 8-byte aligned memory word.
type Quad struct {
	Addr  uint64
	Value uint64
}

// NonZeroQuads returns every non-zero aligned long word in resident pages,
// ordered by address.
func (m *Memory) NonZeroQuads() []Quad {
	var quads []Quad

	for _, set := range m.directory.GetSets() {
		for _, block := range set.Blocks {
			if !block.IsValid {
				continue
			}
			frame := m.frames[block.WayID]
			for off := 0; off < PageSize; off += 8 {
				v := binary.LittleEndian.Uint64(frame[off : off+8])
				if v != 0 {
					quads = append(quads, Quad{Addr: block.Tag + uint64(off), Value: v})
				}
			}
		}
	}

	sort.Slice(quads, func(i, j int) bool { return quads[i].Addr < quads[j].Addr })
	return quads
}

// Reset releases every page.
func (m *Memory) Reset() {
	m.directory.Reset()
	for i := range m.frames {
		m.frames[i] = nil
	}
}
