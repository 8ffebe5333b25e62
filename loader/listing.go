package loader

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ParseListing parses a yas object listing. Each line has the form
//
//	0x014: 30f20a00000000000000 | irmovq $10, %rdx
//
// Lines without an address, or with an address but no bytes, carry no data.
// Touching lines are merged into one segment whatever their order in the
// file; overlapping lines are malformed. The entry point is the lowest
// address holding data.
func ParseListing(r io.Reader) (*Program, error) {
	var chunks []Segment

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		addr, data, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		if !ok || len(data) == 0 {
			continue
		}
		chunks = append(chunks, Segment{VirtAddr: addr, Data: data})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read object listing: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no code", ErrMalformed)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].VirtAddr < chunks[j].VirtAddr
	})

	segments := []Segment{chunks[0]}
	for _, c := range chunks[1:] {
		last := &segments[len(segments)-1]
		switch end := last.End(); {
		case c.VirtAddr < end:
			return nil, fmt.Errorf("%w: bytes at 0x%x overlap 0x%x-0x%x",
				ErrMalformed, c.VirtAddr, last.VirtAddr, end)
		case c.VirtAddr == end:
			last.Data = append(last.Data, c.Data...)
		default:
			segments = append(segments, c)
		}
	}

	return &Program{
		EntryPoint: segments[0].VirtAddr,
		Segments:   segments,
	}, nil
}

// parseLine splits one listing line. ok is false for lines that carry no
// address.
func parseLine(line string) (addr uint64, data []byte, ok bool, err error) {
	code, _, _ := strings.Cut(line, "|")
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, nil, false, nil
	}

	addrText, bytesText, found := strings.Cut(code, ":")
	if !found {
		return 0, nil, false, nil
	}

	addrText = strings.TrimSpace(addrText)
	if !strings.HasPrefix(addrText, "0x") && !strings.HasPrefix(addrText, "0X") {
		return 0, nil, false, fmt.Errorf("address %q lacks 0x prefix", addrText)
	}
	addr, err = strconv.ParseUint(addrText[2:], 16, 64)
	if err != nil {
		return 0, nil, false, fmt.Errorf("address %q: %w", addrText, err)
	}

	bytesText = strings.Join(strings.Fields(bytesText), "")
	data, err = hex.DecodeString(bytesText)
	if err != nil {
		return 0, nil, false, fmt.Errorf("bytes %q: %w", bytesText, err)
	}

	return addr, data, true, nil
}
