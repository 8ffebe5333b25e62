package pipeline

import "fmt"

// TimingError reports a staged register used out of discipline: a slot
// written twice in one pass, or read before its producing phase wrote it.
type TimingError struct {
	Slot string
	Op   string
}

func (e *TimingError) Error() string {
	return fmt.Sprintf("timing error: %s on %s", e.Op, e.Slot)
}

// Slot operations reported by TimingError.
const (
	OpDoubleWrite = "double write"
	OpEarlyRead   = "read before write"
)

// Slot is a write-once cell of a staged register set.
type Slot[T any] struct {
	name    string
	value   T
	written bool
}

// Set writes the slot. It panics with *TimingError if the slot was already
// written in this pass.
func (s *Slot[T]) Set(v T) {
	if s.written {
		panic(&TimingError{Slot: s.name, Op: OpDoubleWrite})
	}
	s.value = v
	s.written = true
}

// Get reads the slot. It panics with *TimingError if the slot has not been
// written.
func (s *Slot[T]) Get() T {
	if !s.written {
		panic(&TimingError{Slot: s.name, Op: OpEarlyRead})
	}
	return s.value
}

// Peek returns the value and whether it was written, without enforcing the
// discipline.
func (s *Slot[T]) Peek() (T, bool) {
	return s.value, s.written
}

// Name returns the qualified slot name, e.g. "F.valP".
func (s *Slot[T]) Name() string {
	return s.name
}

func (s *Slot[T]) bind(name string) {
	s.name = name
}

func (s *Slot[T]) isSet() bool {
	return s.written
}

func (s *Slot[T]) clear() {
	var zero T
	s.value = zero
	s.written = false
}

// seed overwrites the slot regardless of its state. Only used to load
// externally supplied initial values.
func (s *Slot[T]) seed(v T) {
	s.value = v
	s.written = true
}

type slotter interface {
	bind(name string)
	isSet() bool
	clear()
}

// regSet is implemented by every staged register set.
type regSet interface {
	each(fn func(name string, s slotter))
}

// Bank holds two copies of a register set: the committed copy read by the
// consuming phase and the staged copy written by the producing phase.
type Bank[T any, P interface {
	*T
	regSet
}] struct {
	sets [2]T
	cur  int
}

// NewBank creates a bank whose slots are named "<prefix>.<slot>".
func NewBank[T any, P interface {
	*T
	regSet
}](prefix string) *Bank[T, P] {
	b := &Bank[T, P]{}
	for i := range b.sets {
		P(&b.sets[i]).each(func(name string, s slotter) {
			s.bind(prefix + "." + name)
		})
	}
	return b
}

// Committed returns the copy visible to the consuming phase.
func (b *Bank[T, P]) Committed() *T {
	return &b.sets[b.cur]
}

// Staged returns the copy being written by the producing phase.
func (b *Bank[T, P]) Staged() *T {
	return &b.sets[1-b.cur]
}

// Commit publishes the staged copy and clears the other half for the next
// pass.
func (b *Bank[T, P]) Commit() {
	b.cur = 1 - b.cur
	b.Discard()
}

// Discard clears the staged copy without publishing it.
func (b *Bank[T, P]) Discard() {
	P(b.Staged()).each(func(_ string, s slotter) { s.clear() })
}

// Reset clears both copies.
func (b *Bank[T, P]) Reset() {
	for i := range b.sets {
		P(&b.sets[i]).each(func(_ string, s slotter) { s.clear() })
	}
	b.cur = 0
}
