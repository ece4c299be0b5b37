package mir

import (
	"encoding/binary"
	"fmt"
)

// Encode serialises prog as a length-prefixed, versioned binary message
// (spec §6 "Program binary (MIR)": "a length-prefixed, versioned protobuf
// message"). No .proto schema for this message survived into this repo's
// reference pack, so the wire shape here is a hand-rolled length-prefixed
// binary encoding in the same style internal/codec already uses for its
// own envelope — see DESIGN.md for why protobuf proper isn't wired in
// here despite spec calling for it.
const wireVersion = 1

func Encode(prog *Program) []byte {
	var buf []byte
	buf = appendVarint(buf, wireVersion)
	buf = appendVarint(buf, int64(len(prog.Parties)))
	for _, p := range prog.Parties {
		buf = appendString(buf, p.Name)
	}
	buf = appendVarint(buf, int64(len(prog.Inputs)))
	for _, in := range prog.Inputs {
		buf = appendString(buf, in.Name)
		buf = appendType(buf, in.Type)
		buf = appendString(buf, in.Party)
	}
	buf = appendVarint(buf, int64(len(prog.Literals)))
	for _, lit := range prog.Literals {
		buf = appendString(buf, lit.Name)
		buf = appendType(buf, lit.Type)
		buf = appendString(buf, lit.Value)
	}
	buf = appendVarint(buf, int64(len(prog.Outputs)))
	for _, out := range prog.Outputs {
		buf = appendString(buf, out.Name)
		buf = appendVarint(buf, int64(out.Source))
		buf = appendType(buf, out.Type)
		buf = appendString(buf, out.Party)
	}
	buf = appendVarint(buf, int64(len(prog.Operations)))
	for _, op := range prog.Operations {
		buf = appendVarint(buf, int64(op.ID))
		buf = appendVarint(buf, int64(op.Kind))
		buf = appendVarint(buf, int64(len(op.Operands)))
		for _, operand := range op.Operands {
			buf = appendVarint(buf, int64(operand.Kind))
			buf = appendVarint(buf, int64(operand.ID))
			buf = appendString(buf, operand.Name)
			buf = appendVarint(buf, int64(operand.Index))
		}
		buf = appendType(buf, op.ResultType)
		buf = appendString(buf, op.Function)
		buf = appendVarint(buf, int64(op.AccessorIndex))
	}
	return buf
}

// Decode parses a message Encode produced. The JIT's own rejection rules
// (unknown operation id, unused input, recursive function — spec §6) are
// enforced by Normalize, not here; Decode only has to recover the same
// Program structure that was encoded.
func Decode(b []byte) (*Program, error) {
	version, b, err := takeVarint(b)
	if err != nil {
		return nil, fmt.Errorf("mir: decoding version: %w", err)
	}
	if version != wireVersion {
		return nil, fmt.Errorf("mir: unsupported wire version %d", version)
	}
	prog := &Program{}

	nParties, b, err := takeVarint(b)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < nParties; i++ {
		var name string
		if name, b, err = takeString(b); err != nil {
			return nil, err
		}
		prog.Parties = append(prog.Parties, Party{Name: name})
	}

	nInputs, b, err := takeVarint(b)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < nInputs; i++ {
		var in Input
		var err error
		if in.Name, b, err = takeString(b); err != nil {
			return nil, err
		}
		if in.Type, b, err = takeType(b); err != nil {
			return nil, err
		}
		if in.Party, b, err = takeString(b); err != nil {
			return nil, err
		}
		prog.Inputs = append(prog.Inputs, in)
	}

	nLiterals, b, err := takeVarint(b)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < nLiterals; i++ {
		var lit Literal
		var err error
		if lit.Name, b, err = takeString(b); err != nil {
			return nil, err
		}
		if lit.Type, b, err = takeType(b); err != nil {
			return nil, err
		}
		if lit.Value, b, err = takeString(b); err != nil {
			return nil, err
		}
		prog.Literals = append(prog.Literals, lit)
	}

	nOutputs, b, err := takeVarint(b)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < nOutputs; i++ {
		var out Output
		var err error
		var source int64
		if out.Name, b, err = takeString(b); err != nil {
			return nil, err
		}
		if source, b, err = takeVarint(b); err != nil {
			return nil, err
		}
		out.Source = OperationID(source)
		if out.Type, b, err = takeType(b); err != nil {
			return nil, err
		}
		if out.Party, b, err = takeString(b); err != nil {
			return nil, err
		}
		prog.Outputs = append(prog.Outputs, out)
	}

	nOps, b, err := takeVarint(b)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < nOps; i++ {
		var op Operation
		var id, kind, nOperands int64
		if id, b, err = takeVarint(b); err != nil {
			return nil, err
		}
		op.ID = OperationID(id)
		if kind, b, err = takeVarint(b); err != nil {
			return nil, err
		}
		op.Kind = OpKind(kind)
		if nOperands, b, err = takeVarint(b); err != nil {
			return nil, err
		}
		for j := int64(0); j < nOperands; j++ {
			var operand Operand
			var kind, id, index int64
			if kind, b, err = takeVarint(b); err != nil {
				return nil, err
			}
			operand.Kind = OperandKind(kind)
			if id, b, err = takeVarint(b); err != nil {
				return nil, err
			}
			operand.ID = OperationID(id)
			if operand.Name, b, err = takeString(b); err != nil {
				return nil, err
			}
			if index, b, err = takeVarint(b); err != nil {
				return nil, err
			}
			operand.Index = int(index)
			op.Operands = append(op.Operands, operand)
		}
		if op.ResultType, b, err = takeType(b); err != nil {
			return nil, err
		}
		if op.Function, b, err = takeString(b); err != nil {
			return nil, err
		}
		var accessor int64
		if accessor, b, err = takeVarint(b); err != nil {
			return nil, err
		}
		op.AccessorIndex = int(accessor)
		prog.Operations = append(prog.Operations, op)
	}
	return prog, nil
}

// appendType/takeType encode a Type recursively: compound Array/Tuple
// types nest their Inner/Elements the same way the Type struct does.
func appendType(b []byte, t Type) []byte {
	b = appendVarint(b, int64(t.Kind))
	b = appendVarint(b, int64(t.Size))
	if t.Inner != nil {
		b = append(b, 1)
		b = appendType(b, *t.Inner)
	} else {
		b = append(b, 0)
	}
	b = appendVarint(b, int64(len(t.Elements)))
	for _, e := range t.Elements {
		b = appendType(b, e)
	}
	return b
}

func takeType(b []byte) (Type, []byte, error) {
	var t Type
	kind, b, err := takeVarint(b)
	if err != nil {
		return t, b, err
	}
	t.Kind = TypeKind(kind)
	size, b, err := takeVarint(b)
	if err != nil {
		return t, b, err
	}
	t.Size = int(size)
	if len(b) == 0 {
		return t, b, fmt.Errorf("mir: truncated type")
	}
	hasInner := b[0]
	b = b[1:]
	if hasInner == 1 {
		var inner Type
		inner, b, err = takeType(b)
		if err != nil {
			return t, b, err
		}
		t.Inner = &inner
	}
	nElems, b, err := takeVarint(b)
	if err != nil {
		return t, b, err
	}
	for i := int64(0); i < nElems; i++ {
		var e Type
		e, b, err = takeType(b)
		if err != nil {
			return t, b, err
		}
		t.Elements = append(t.Elements, e)
	}
	return t, b, nil
}

func appendVarint(b []byte, v int64) []byte {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutVarint(scratch[:], v)
	return append(b, scratch[:n]...)
}

func takeVarint(b []byte) (int64, []byte, error) {
	v, n := binary.Varint(b)
	if n <= 0 {
		return 0, b, fmt.Errorf("mir: malformed varint")
	}
	return v, b[n:], nil
}

func appendString(b []byte, s string) []byte {
	b = appendVarint(b, int64(len(s)))
	return append(b, s...)
}

func takeString(b []byte) (string, []byte, error) {
	n, b, err := takeVarint(b)
	if err != nil {
		return "", b, err
	}
	if n < 0 || int64(len(b)) < n {
		return "", b, fmt.Errorf("mir: truncated string")
	}
	return string(b[:n]), b[n:], nil
}
