// Package bytecode implements the flat, address-based intermediate form the
// JIT lowers MIR into: every operation writes to an address in one of four
// address spaces and every read is by address (spec §3 "Bytecode", §4.1
// "Bytecode generation").
package bytecode

import (
	"errors"
	"fmt"
)

// AddressType names one of the address spaces a BytecodeAddress lives in.
type AddressType int

const (
	Input AddressType = iota
	Literal
	Heap
	Output
)

func (a AddressType) String() string {
	switch a {
	case Input:
		return "Input"
	case Literal:
		return "Literal"
	case Heap:
		return "Heap"
	case Output:
		return "Output"
	default:
		return "Unknown"
	}
}

// Address is a (index, AddressType) pair (spec §3 "Operation / Protocol
// addresses").
type Address struct {
	Index int
	Type  AddressType
}

// NewAddress constructs an Address.
func NewAddress(index int, t AddressType) Address { return Address{Index: index, Type: t} }

// Next returns the following address in the same space.
func (a Address) Next() (Address, error) { return a.Advance(1) }

// Advance returns the address offset positions further in the same space.
func (a Address) Advance(offset int) (Address, error) {
	if offset < 0 && -offset > a.Index {
		return Address{}, ErrUnderflow
	}
	idx := a.Index + offset
	if idx < 0 {
		return Address{}, ErrUnderflow
	}
	return Address{Index: idx, Type: a.Type}, nil
}

// AsHeap returns the same index reinterpreted as a Heap address.
func (a Address) AsHeap() Address { return Address{Index: a.Index, Type: Heap} }

func (a Address) String() string { return fmt.Sprintf("%s(%d)", a.Type, a.Index) }

// Sentinel errors mirroring the bytecode memory error surface.
var (
	ErrIdentifierOverflow = errors.New("bytecode: identifier counter overflow")
	ErrOverflow           = errors.New("bytecode: memory address overflow")
	ErrUnderflow          = errors.New("bytecode: memory address underflow")
	ErrIllegalAccess      = errors.New("bytecode: illegal memory access")
)

// OutOfMemoryError reports exhaustion of a specific address space.
type OutOfMemoryError struct {
	Space   AddressType
	Address Address
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("bytecode: out of memory in %s at %s", e.Space, e.Address)
}
