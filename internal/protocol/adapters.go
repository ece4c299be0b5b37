package protocol

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/mir"
)

// AdapterNotFoundError is returned when no adapter matches a bytecode op's
// (kind, operand-secrecy) signature (spec §4.1: "the JIT fails compilation
// (Bytecode2ProtocolError::AdapterNotFound) if no adapter matches").
type AdapterNotFoundError struct {
	Op       bytecode.OpKind
	LeftType mir.Type
}

func (e *AdapterNotFoundError) Error() string {
	return fmt.Sprintf("protocol: no adapter for bytecode op %s with operand type %s", e.Op, e.LeftType)
}

// translator walks a bytecode.Program and builds a protocol DAG, tracking
// the mir.Type of every address so adapters can key on operand secrecy.
type translator struct {
	bc       *bytecode.Program
	addrType map[Address]mir.Type
	nodes    []Node
	reqs     Requirements
	nextAddr int // next free synthetic Heap index for composite adapters
}

// Translate lowers bytecode into a protocol DAG (spec §4.1 "Bytecode →
// Protocol").
func Translate(bc *bytecode.Program) (*DAG, error) {
	t := &translator{bc: bc, addrType: map[Address]mir.Type{}, reqs: newRequirements()}
	for i, in := range bc.Inputs {
		t.addrType[Address{Index: i, Type: bytecode.Input}] = in.Type
	}
	for i, lit := range bc.Literals {
		t.addrType[Address{Index: i, Type: bytecode.Literal}] = lit.Type
	}
	t.nextAddr = len(bc.Ops)

	for i, op := range bc.Ops {
		dest := Address{Index: i, Type: bytecode.Heap}
		t.addrType[dest] = op.Type
		if err := t.translateOp(op, dest); err != nil {
			return nil, err
		}
	}
	return &DAG{Nodes: t.nodes, Outputs: bc.Outputs, Requirements: t.reqs}, nil
}

func (t *translator) freshHeap() Address {
	a := Address{Index: t.nextAddr, Type: bytecode.Heap}
	t.nextAddr++
	return a
}

func (t *translator) emit(n Node) {
	if n.Line.Kind == Preprocessing {
		t.reqs.add(n.Line.PreprocessingKey, n.Line.Consumes)
	}
	t.nodes = append(t.nodes, n)
}

func (t *translator) translateOp(op bytecode.Op, dest Address) error {
	switch op.Kind {
	case bytecode.OpLoad:
		// Loads are pure memory-space copies; nothing runs on the protocol
		// side, the runtime resolves them by reading the Input/Literal slot.
		t.addrType[dest] = t.addrType[op.Operand]
		return nil
	case bytecode.OpAdd:
		t.emit(Node{Kind: KindAdd, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpSub:
		t.emit(Node{Kind: KindSub, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpMul:
		return t.translateMul(op, dest)
	case bytecode.OpMod:
		return t.translateMod(op, dest)
	case bytecode.OpDiv:
		return t.translateDiv(op, dest)
	case bytecode.OpPow:
		t.emit(Node{Kind: KindPolyEval, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: OnlineLine()})
		return nil
	case bytecode.OpLessThan:
		return t.translateLessThan(op, dest)
	case bytecode.OpEquals:
		return t.translateEquals(op, dest)
	case bytecode.OpNot:
		t.emit(Node{Kind: KindNot, Dest: dest, Operands: []Address{op.Operand}, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpReveal:
		t.emit(Node{Kind: KindReveal, Dest: dest, Operands: []Address{op.Operand}, Type: op.Type, Line: OnlineLine()})
		return nil
	case bytecode.OpIfElse:
		return t.translateIfElse(op, dest)
	case bytecode.OpNewArray:
		t.emit(Node{Kind: KindNewArray, Dest: dest, Operands: op.Operands, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpNewTuple:
		t.emit(Node{Kind: KindNewTuple, Dest: dest, Operands: op.Operands, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpArrayAccessor:
		t.emit(Node{Kind: KindArrayAccessor, Dest: dest, Operands: []Address{op.Operand}, Type: op.Type, Line: LocalLine(), AccessorIndex: op.AccessorIndex})
		return nil
	case bytecode.OpTupleAccessor:
		if !validTupleAccessorSource(t.addrType[op.Operand]) {
			return fmt.Errorf("protocol: TupleAccessorIncompatibleType: operand at %s is not a tuple", op.Operand)
		}
		t.emit(Node{Kind: KindTupleAccessor, Dest: dest, Operands: []Address{op.Operand}, Type: op.Type, Line: LocalLine(), AccessorIndex: op.AccessorIndex})
		return nil
	case bytecode.OpInnerProduct:
		// Consumes one triple per paired element: the left operand's array
		// length sets the count (at least one), matching the triples the
		// executor draws for the node.
		triples := t.addrType[op.Left].Size
		if triples < 1 {
			triples = 1
		}
		t.emit(Node{Kind: KindInnerProduct, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(MultiplicationTriple, triples)})
		return nil
	case bytecode.OpRandom:
		t.emit(Node{Kind: KindRandom, Dest: dest, Type: op.Type, Line: PrepLine(RandomInteger, 1)})
		return nil
	case bytecode.OpPublicKeyDerive:
		t.emit(Node{Kind: KindEcdsaAuxInfo, Dest: dest, Operands: []Address{op.Operand}, Type: op.Type, Line: LocalLine()})
		return nil
	case bytecode.OpEcdsaSign:
		t.emit(Node{Kind: KindEcdsaSign, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: OnlineLine()})
		return nil
	case bytecode.OpEddsaSign:
		t.emit(Node{Kind: KindEddsaSign, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: OnlineLine()})
		return nil
	default:
		return &AdapterNotFoundError{Op: op.Kind, LeftType: op.Type}
	}
}

// validTupleAccessorSource implements the open question spec.md §9 asks
// implementers to resolve: ArrayAccessor is permitted over non-array
// compound types in the original, but TupleAccessor must be rejected
// outright for anything that is not a Tuple (source's
// TupleAccessorIncompatibleType).
func validTupleAccessorSource(t mir.Type) bool { return t.Kind == mir.Tuple }

func (t *translator) translateMul(op bytecode.Op, dest Address) error {
	leftSecret, rightSecret := t.addrType[op.Left].IsSecret(), t.addrType[op.Right].IsSecret()
	switch {
	case leftSecret && rightSecret:
		t.emit(Node{Kind: KindMulShareShare, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(MultiplicationTriple, 1)})
	case leftSecret || rightSecret:
		// A public-times-public multiplication has its own distinct kind
		// below; this branch is share·public in either operand order.
		t.emit(Node{Kind: KindMulSharePublic, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
	default:
		// Spec §4.1 edge case: "A public-times-public multiplication is
		// LOCAL and emits no protocol message" — still one DAG node (so the
		// plan/executor have a uniform shape to dispatch), but LOCAL means
		// the executor computes it synchronously with zero peer messages.
		t.emit(Node{Kind: KindMulPublicPublic, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
	}
	return nil
}

func (t *translator) translateMod(op bytecode.Op, dest Address) error {
	leftSecret, rightSecret := t.addrType[op.Left].IsSecret(), t.addrType[op.Right].IsSecret()
	if !leftSecret && !rightSecret {
		t.emit(Node{Kind: KindMod, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
		return nil
	}
	t.emit(Node{Kind: KindMod, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(Modulo, 1)})
	return nil
}

func (t *translator) translateDiv(op bytecode.Op, dest Address) error {
	leftSecret, rightSecret := t.addrType[op.Left].IsSecret(), t.addrType[op.Right].IsSecret()
	if rightSecret {
		// Division(Share,Share): sign-extract, bit-decompose, scale,
		// multiplication, truncation, modulo — internal to the DIV state
		// machine (spec §4.2 table); the DAG exposes it as one node
		// consuming one DivisionSecretDivisor preprocessing element, and
		// the two multiplication triples the machine's invert-then-multiply
		// chain draws are added to the requirements alongside it.
		t.emit(Node{Kind: KindDiv, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(DivisionSecretDivisor, 1)})
		t.reqs.add(MultiplicationTriple, 2)
		return nil
	}
	if leftSecret {
		// DIV(share, public): a local scale-by-inverse, no round needed.
		t.emit(Node{Kind: KindDiv, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
		return nil
	}
	// DIV(public, public): fully local.
	t.emit(Node{Kind: KindDiv, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
	return nil
}

func (t *translator) translateLessThan(op bytecode.Op, dest Address) error {
	leftSecret, rightSecret := t.addrType[op.Left].IsSecret(), t.addrType[op.Right].IsSecret()
	if leftSecret && rightSecret {
		// LessThan(Share,Share) → Compare, composed of random-bitwise, a
		// bit-less-than step and reveal sub-protocols internally; exactly
		// one Compare node is emitted (spec §4.1 example).
		t.emit(Node{Kind: KindCompare, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(Compare, 1)})
		return nil
	}
	if !leftSecret && !rightSecret {
		t.emit(Node{Kind: KindLessThanZero, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: LocalLine()})
		return nil
	}
	t.emit(Node{Kind: KindLessThanZero, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(Compare, 1)})
	return nil
}

func (t *translator) translateEquals(op bytecode.Op, dest Address) error {
	kind, prep := KindEqualsSecret, EqualitySecretOutput
	if !op.Type.IsSecret() {
		kind, prep = KindEqualsPublic, EqualityPublicOutput
	}
	t.emit(Node{Kind: kind, Dest: dest, Operands: []Address{op.Left, op.Right}, Type: op.Type, Line: PrepLine(prep, 1)})
	return nil
}

// translateIfElse implements spec §4.1's edge case: a public condition is
// LOCAL selection; a secret condition compiles to c·a + (1−c)·b using
// multiplication-by-share, emitting the constituent Mul/Sub/Add nodes
// rather than inventing a single opaque "secret select" primitive.
func (t *translator) translateIfElse(op bytecode.Op, dest Address) error {
	cond, a, b := op.Operands[0], op.Operands[1], op.Operands[2]
	if !t.addrType[cond].IsSecret() {
		t.emit(Node{Kind: KindIfElseLocal, Dest: dest, Operands: []Address{cond, a, b}, Type: op.Type, Line: LocalLine()})
		return nil
	}

	one := literalOneAddress(t, cond)
	oneMinusC := t.freshHeap()
	t.addrType[oneMinusC] = op.Type
	t.emit(Node{Kind: KindSub, Dest: oneMinusC, Operands: []Address{one, cond}, Type: op.Type, Line: LocalLine()})

	mulA := t.freshHeap()
	t.addrType[mulA] = op.Type
	t.emit(Node{Kind: KindMulShareShare, Dest: mulA, Operands: []Address{cond, a}, Type: op.Type, Line: PrepLine(MultiplicationTriple, 1)})

	mulB := t.freshHeap()
	t.addrType[mulB] = op.Type
	t.emit(Node{Kind: KindMulShareShare, Dest: mulB, Operands: []Address{oneMinusC, b}, Type: op.Type, Line: PrepLine(MultiplicationTriple, 1)})

	t.emit(Node{Kind: KindAdd, Dest: dest, Operands: []Address{mulA, mulB}, Type: op.Type, Line: LocalLine()})
	return nil
}

// literalOneAddress synthesises a protocol-only Heap slot holding the
// constant 1 of the same type as cond, used by the secret-IfElse expansion.
// In a full implementation this would be interned against the bytecode
// Literal table during lowering; here it is materialised directly since the
// protocol layer already has access to mir types for bookkeeping.
func literalOneAddress(t *translator, cond Address) Address {
	one := t.freshHeap()
	t.addrType[one] = t.addrType[cond]
	t.emit(Node{Kind: KindConstant, Dest: one, Type: t.addrType[cond], Line: LocalLine(), ConstantValue: "1"})
	return one
}
