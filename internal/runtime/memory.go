// Package runtime implements the per-computation runtime memory, the
// cluster-wide preprocessing material pool, and one-shot auxiliary signing
// material (spec §3 "Runtime memory", "Preprocessing pool", "Auxiliary
// material").
package runtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nilmpc/mpcnode/internal/bytecode"
)

// Value is whatever a Heap/Input/Literal slot holds: a field.Element, a
// shamir.Share, a ring.Tuple, a []Value for Array/Tuple compound types, or a
// protocol-specific output (an ECDSA signature, say). Kept as an opaque
// interface{} rather than a closed sum type because the set of concrete
// payloads is owned by internal/statemachine, not by runtime — mirrors the
// "arena + index, never shared-ownership graph" guidance of spec §9 applied
// to value storage instead of reference storage.
type Value interface{}

// ErrUnwrittenAddress is returned by Get when the slot has never been
// written (spec §8 "a reader never observes an unwritten address" — this is
// the defensive check that makes the invariant observable as an error
// instead of a zero-value read).
var ErrUnwrittenAddress = errors.New("runtime: read of unwritten address")

// ErrAlreadyWritten is returned by Set when a slot that was already written
// is written again (spec §3 "each slot, once written, is immutable for the
// life of the computation").
var ErrAlreadyWritten = errors.New("runtime: address already written")

// Memory is the per-computation store: three arrays indexed by address
// space (Input, Literal, Heap — Output addresses are not separately
// backed; every OutputSlot names a Heap address to read at finalisation).
type Memory struct {
	mu      sync.Mutex
	input   []Value
	literal []Value
	heap    []Value
	written []bool // parallels heap; input/literal are fully written at construction
}

// NewMemory allocates a Memory sized for a bytecode program: numInputs and
// numLiterals slots pre-reserved (filled via SetInput/SetLiteral before any
// Heap write), and numHeap Heap slots.
func NewMemory(numInputs, numLiterals, numHeap int) *Memory {
	return &Memory{
		input:   make([]Value, numInputs),
		literal: make([]Value, numLiterals),
		heap:    make([]Value, numHeap),
		written: make([]bool, numHeap),
	}
}

// SetInput populates an Input slot. Called once per input before execution
// starts; inputs are supplied whole by the collaborator boundary so there is
// no immutability bitmap for this space.
func (m *Memory) SetInput(index int, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.input) {
		return fmt.Errorf("runtime: input index %d out of range [0,%d)", index, len(m.input))
	}
	m.input[index] = v
	return nil
}

// SetLiteral populates a Literal slot, same contract as SetInput.
func (m *Memory) SetLiteral(index int, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.literal) {
		return fmt.Errorf("runtime: literal index %d out of range [0,%d)", index, len(m.literal))
	}
	m.literal[index] = v
	return nil
}

// Set writes a Heap slot exactly once (spec §3 immutability invariant).
func (m *Memory) Set(addr bytecode.Address, v Value) error {
	if addr.Type != bytecode.Heap {
		return fmt.Errorf("runtime: Set is only valid for Heap addresses, got %s", addr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr.Index < 0 || addr.Index >= len(m.heap) {
		return fmt.Errorf("runtime: heap index %d out of range [0,%d)", addr.Index, len(m.heap))
	}
	if m.written[addr.Index] {
		return fmt.Errorf("%w: %s", ErrAlreadyWritten, addr)
	}
	m.heap[addr.Index] = v
	m.written[addr.Index] = true
	return nil
}

// Get reads any of the three address spaces. Reading an unwritten Heap
// address is an invariant violation (spec §7 class 4) surfaced as
// ErrUnwrittenAddress rather than silently returning a zero value.
func (m *Memory) Get(addr bytecode.Address) (Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch addr.Type {
	case bytecode.Input:
		if addr.Index < 0 || addr.Index >= len(m.input) {
			return nil, fmt.Errorf("runtime: input index %d out of range", addr.Index)
		}
		return m.input[addr.Index], nil
	case bytecode.Literal:
		if addr.Index < 0 || addr.Index >= len(m.literal) {
			return nil, fmt.Errorf("runtime: literal index %d out of range", addr.Index)
		}
		return m.literal[addr.Index], nil
	case bytecode.Heap:
		if addr.Index < 0 || addr.Index >= len(m.heap) {
			return nil, fmt.Errorf("runtime: heap index %d out of range", addr.Index)
		}
		if !m.written[addr.Index] {
			return nil, fmt.Errorf("%w: %s", ErrUnwrittenAddress, addr)
		}
		return m.heap[addr.Index], nil
	default:
		return nil, fmt.Errorf("runtime: cannot read address space %s directly", addr.Type)
	}
}

// IsWritten reports whether a Heap address has already been written,
// without erroring — used by the executor's dispatch loop to decide
// readiness.
func (m *Memory) IsWritten(addr bytecode.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr.Type != bytecode.Heap {
		return true // Input/Literal are considered available once set at construction
	}
	if addr.Index < 0 || addr.Index >= len(m.written) {
		return false
	}
	return m.written[addr.Index]
}
