package statemachine

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// local wraps a value already computed at construction time: every LOCAL
// protocol in spec §4.2's "Linear & local" family needs zero peer
// messages, so Start does the entire computation and the machine is
// immediately Done (spec §4.3 "If the step is LOCAL the state machine runs
// to completion synchronously").
type local struct {
	value runtime.Value
	err   error
}

func newLocal(v runtime.Value, err error) *local { return &local{value: v, err: err} }

func (m *local) Start() ([]OutboundMessage, error) { return nil, m.err }
func (m *local) Deliver(PeerMessage) ([]OutboundMessage, error) {
	return nil, fmt.Errorf("statemachine: LOCAL protocol received an unexpected peer message")
}
func (m *local) Status() Status {
	if m.err != nil {
		return Aborted
	}
	return Done
}
func (m *local) Output() (interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.value, nil
}

func asShare(v runtime.Value) (shamir.Share, bool) { s, ok := v.(shamir.Share); return s, ok }
func asElement(v runtime.Value) (field.Element, bool) {
	e, ok := v.(field.Element)
	return e, ok
}

// NewAdd builds the Add protocol: [a]+[b], [a]+b, or a+b, dispatching on
// which operands are shares versus public elements.
func NewAdd(f *field.Field, a, b runtime.Value) Machine {
	if sa, ok := asShare(a); ok {
		if sb, ok := asShare(b); ok {
			return newLocal(shamir.LinearCombination(f, f.One(), sa, f.One(), sb), nil)
		}
		pb, _ := asElement(b)
		return newLocal(shamir.Share{Value: f.Add(sa.Value, pb)}, nil)
	}
	if sb, ok := asShare(b); ok {
		pa, _ := asElement(a)
		return newLocal(shamir.Share{Value: f.Add(pa, sb.Value)}, nil)
	}
	pa, _ := asElement(a)
	pb, _ := asElement(b)
	return newLocal(f.Add(pa, pb), nil)
}

// NewSub builds the Sub protocol: a-b in whichever combination of
// share/public operands.
func NewSub(f *field.Field, a, b runtime.Value) Machine {
	if sa, ok := asShare(a); ok {
		if sb, ok := asShare(b); ok {
			return newLocal(shamir.LinearCombination(f, f.One(), sa, f.Neg(f.One()), sb), nil)
		}
		pb, _ := asElement(b)
		return newLocal(shamir.Share{Value: f.Sub(sa.Value, pb)}, nil)
	}
	if sb, ok := asShare(b); ok {
		pa, _ := asElement(a)
		return newLocal(shamir.Share{Value: f.Sub(pa, sb.Value)}, nil)
	}
	pa, _ := asElement(a)
	pb, _ := asElement(b)
	return newLocal(f.Sub(pa, pb), nil)
}

// NewMulSharePublic scales a share by a public constant: one party's local
// multiply, no peer interaction (spec's Mul(share·public)).
func NewMulSharePublic(f *field.Field, share shamir.Share, public field.Element) Machine {
	return newLocal(shamir.Share{Value: f.Mul(share.Value, public)}, nil)
}

// NewMulPublicPublic multiplies two public constants.
func NewMulPublicPublic(f *field.Field, a, b field.Element) Machine {
	return newLocal(f.Mul(a, b), nil)
}

// NewNot computes the boolean complement 1-x, for a public or secret bit
// represented as a {0,1}-valued field element/share.
func NewNot(f *field.Field, x runtime.Value) Machine {
	if s, ok := asShare(x); ok {
		return newLocal(shamir.Share{Value: f.Sub(f.One(), s.Value)}, nil)
	}
	e, _ := asElement(x)
	return newLocal(f.Sub(f.One(), e), nil)
}

// NewIfElseLocal selects branch a or b on a public boolean condition (spec
// §4.1 worked example: "public condition -> single LOCAL node").
func NewIfElseLocal(cond field.Element, a, b runtime.Value) Machine {
	if cond.BigInt().Sign() != 0 {
		return newLocal(a, nil)
	}
	return newLocal(b, nil)
}

// NewConstant materialises a protocol-synthesised constant (e.g. the
// literal 1 the secret-IfElse decomposition needs).
func NewConstant(f *field.Field, e field.Element) Machine { return newLocal(e, nil) }

// NewArrayOp assembles operand values into a compound array/tuple value.
func NewArrayOp(elems []runtime.Value) Machine {
	out := make([]runtime.Value, len(elems))
	copy(out, elems)
	return newLocal(out, nil)
}

// NewAccessor projects one logical element out of a compound value.
func NewAccessor(compound runtime.Value, index int) Machine {
	elems, ok := compound.([]runtime.Value)
	if !ok {
		return newLocal(nil, fmt.Errorf("statemachine: accessor operand is not a compound value"))
	}
	if index < 0 || index >= len(elems) {
		return newLocal(nil, fmt.Errorf("statemachine: accessor index %d out of range [0,%d)", index, len(elems)))
	}
	return newLocal(elems[index], nil)
}
