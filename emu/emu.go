// Package emu provides the storage collaborators of the simulator: the
// program register file and the paged main memory.
package emu

import "errors"

// Storage errors. They are returned wrapped with the offending address or
// register index; match them with errors.Is.
var (
	// ErrInvalidAddress is returned for accesses outside memory or misaligned
	// long-word accesses.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrOutOfMemory is returned when an access would need more resident
	// pages than the memory allows.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidRegister is returned for register indices outside the file.
	ErrInvalidRegister = errors.New("invalid register number")
)
