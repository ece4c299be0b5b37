package executor

import (
	"fmt"
	"math/big"
	"strconv"

	"filippo.io/edwards25519"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/protocol"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
	"github.com/nilmpc/mpcnode/internal/statemachine/ecdsa"
	"github.com/nilmpc/mpcnode/internal/statemachine/eddsa"
)

// DefaultBitwidth is the bit width used for protocols whose width is not
// otherwise carried by the protocol DAG node (BIT-DECOMPOSE, RAN-BITWISE,
// the Compare family's worked example). A real deployment would thread the
// caller's declared integer width through bytecode.Op/protocol.Node; the
// JIT this package was built from does not yet expose that, so every
// bit-width-sensitive protocol in this executor uses one cluster-wide
// constant (see DESIGN.md).
const DefaultBitwidth = 64

// doneValue wraps an already-known value as a zero-round Machine, for
// nodes whose result is available without any peer interaction: a
// LessThanZero over public operands and EcdsaAuxInfo, which exposes the
// computation's ECDSA public key.
type doneValue struct{ v interface{} }

func (d *doneValue) Start() ([]statemachine.OutboundMessage, error) { return nil, nil }
func (d *doneValue) Deliver(statemachine.PeerMessage) ([]statemachine.OutboundMessage, error) {
	return nil, fmt.Errorf("executor: unexpected peer message for a precomputed value")
}
func (d *doneValue) Status() statemachine.Status  { return statemachine.Done }
func (d *doneValue) Output() (interface{}, error) { return d.v, nil }

func asShare(v runtime.Value) (shamir.Share, error) {
	s, ok := v.(shamir.Share)
	if !ok {
		return shamir.Share{}, fmt.Errorf("executor: expected a share, got %T", v)
	}
	return s, nil
}

func asElement(v runtime.Value) (field.Element, error) {
	e, ok := v.(field.Element)
	if !ok {
		return field.Element{}, fmt.Errorf("executor: expected a field element, got %T", v)
	}
	return e, nil
}

func asShareSlice(v runtime.Value) ([]shamir.Share, error) {
	elems, ok := v.([]runtime.Value)
	if !ok {
		return nil, fmt.Errorf("executor: expected a compound value, got %T", v)
	}
	out := make([]shamir.Share, len(elems))
	for i, e := range elems {
		s, err := asShare(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func asElementSlice(v runtime.Value) ([]field.Element, error) {
	elems, ok := v.([]runtime.Value)
	if !ok {
		return nil, fmt.Errorf("executor: expected a compound value, got %T", v)
	}
	out := make([]field.Element, len(elems))
	for i, e := range elems {
		el, err := asElement(e)
		if err != nil {
			return nil, err
		}
		out[i] = el
	}
	return out, nil
}

// isNegative reports whether e's canonical residue represents a negative
// value under the signed convention field.SignedRange uses (the
// representative closer to P than to 0).
func isNegative(f *field.Field, e field.Element) bool {
	half := new(big.Int).Rsh(f.Modulus(), 1)
	return e.BigInt().Cmp(half) > 0
}

func tripleSlice(raw []interface{}) []runtime.Triple {
	out := make([]runtime.Triple, len(raw))
	for i, r := range raw {
		out[i] = r.(runtime.Triple)
	}
	return out
}

// buildMachine instantiates the Machine for one protocol DAG node, reading
// its operands from runtime memory and, for Preprocessing-line nodes,
// drawing the next slice of materialised elements of the declared kind
// from this computation's own reservation (spec §4.3 step 2 "reads
// operands from runtime memory and instantiates the state machine").
func (c *Computation) buildMachine(n protocol.Node) (statemachine.Machine, error) {
	ops := make([]runtime.Value, len(n.Operands))
	for i, addr := range n.Operands {
		v, err := c.memory.Get(addr)
		if err != nil {
			return nil, err
		}
		ops[i] = v
	}

	f := c.Field
	cluster := c.Cluster
	self := c.Self

	switch n.Kind {
	case protocol.KindAdd:
		return statemachine.NewAdd(f, ops[0], ops[1]), nil
	case protocol.KindSub:
		return statemachine.NewSub(f, ops[0], ops[1]), nil
	case protocol.KindMulSharePublic:
		share, public, err := shareAndElement(ops[0], ops[1])
		if err != nil {
			return nil, err
		}
		return statemachine.NewMulSharePublic(f, share, public), nil
	case protocol.KindMulPublicPublic:
		a, err := asElement(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asElement(ops[1])
		if err != nil {
			return nil, err
		}
		return statemachine.NewMulPublicPublic(f, a, b), nil
	case protocol.KindMulShareShare:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewMulShareShare(f, cluster, self, a, b, raw[0].(runtime.Triple)), nil
	case protocol.KindInnerProduct:
		as, err := asShareSlice(ops[0])
		if err != nil {
			return nil, err
		}
		bs, err := asShareSlice(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, len(as))
		if err != nil {
			return nil, err
		}
		return statemachine.NewInnerProduct(f, cluster, self, as, bs, tripleSlice(raw)), nil
	case protocol.KindPrefixProduct:
		as, err := asShareSlice(ops[0])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, len(as))
		if err != nil {
			return nil, err
		}
		return statemachine.NewPrefixProduct(f, cluster, self, as, tripleSlice(raw)), nil
	case protocol.KindMulTrunc:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		rawT, err := c.nextElements(protocol.MultiplicationTriple, 1)
		if err != nil {
			return nil, err
		}
		rawTrunc, err := c.nextElements(protocol.TruncPr, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewMulTrunc(f, cluster, self, a, b, rawT[0].(runtime.Triple), DefaultBitwidth, rawTrunc[0].(runtime.TruncTuple)), nil
	case protocol.KindNot:
		return statemachine.NewNot(f, ops[0]), nil
	case protocol.KindIfElseLocal:
		cond, err := asElement(ops[0])
		if err != nil {
			return nil, err
		}
		return statemachine.NewIfElseLocal(cond, ops[1], ops[2]), nil
	case protocol.KindNewArray, protocol.KindNewTuple:
		return statemachine.NewArrayOp(ops), nil
	case protocol.KindArrayAccessor, protocol.KindTupleAccessor:
		return statemachine.NewAccessor(ops[0], n.AccessorIndex), nil
	case protocol.KindRandom:
		raw, err := c.nextElements(protocol.RandomInteger, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewRan(raw[0].(shamir.Share)), nil
	case protocol.KindRandomBit:
		raw, err := c.nextElements(protocol.RandomBoolean, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewRanBit(raw[0].(shamir.Share)), nil
	case protocol.KindRandomBitwise:
		raw, err := c.nextElements(protocol.RandomBoolean, DefaultBitwidth)
		if err != nil {
			return nil, err
		}
		bits := make([]shamir.Share, len(raw))
		value := f.Zero()
		two := f.FromInt64(2)
		weight := f.One()
		for i, r := range raw {
			bits[i] = r.(shamir.Share)
			value = f.Add(value, f.Mul(bits[i].Value, weight))
			weight = f.Mul(weight, two)
		}
		return statemachine.NewRanBitwise(runtime.BitwiseRandom{Value: shamir.Share{Value: value}, Bits: bits}), nil
	case protocol.KindRandomQuaternary:
		raw, err := c.nextElements(protocol.RandomBoolean, 2)
		if err != nil {
			return nil, err
		}
		return statemachine.NewRanQuaternary(f, raw[0].(shamir.Share), raw[1].(shamir.Share)), nil
	case protocol.KindInvRandom:
		rawR, err := c.nextElements(protocol.RandomInteger, 2)
		if err != nil {
			return nil, err
		}
		rawT, err := c.nextElements(protocol.MultiplicationTriple, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewInvRan(f, cluster, self, rawR[0].(shamir.Share), rawR[1].(shamir.Share), rawT[0].(runtime.Triple)), nil
	case protocol.KindBitAdder:
		a, err := asElementSlice(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asElementSlice(ops[1])
		if err != nil {
			return nil, err
		}
		return statemachine.NewBitAdder(f, a, b), nil
	case protocol.KindBitAdderMixed:
		a, err := asElementSlice(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShareSlice(ops[1])
		if err != nil {
			return nil, err
		}
		need := 3*len(b) - 1
		if need < 0 {
			need = 0
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, need)
		if err != nil {
			return nil, err
		}
		return statemachine.NewBitAdderMixed(f, cluster, self, a, b, tripleSlice(raw)), nil
	case protocol.KindBitAdderSecret:
		a, err := asShareSlice(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShareSlice(ops[1])
		if err != nil {
			return nil, err
		}
		need := 3*len(a) - 1
		if need < 0 {
			need = 0
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, need)
		if err != nil {
			return nil, err
		}
		return statemachine.NewBitAdderSecret(f, cluster, self, a, b, tripleSlice(raw)), nil
	case protocol.KindBitDecompose:
		v, err := asElement(ops[0])
		if err != nil {
			return nil, err
		}
		return statemachine.NewBitDecompose(f, v, DefaultBitwidth), nil
	case protocol.KindBitLessThan:
		pub, err := asElementSlice(ops[0])
		if err != nil {
			return nil, err
		}
		sec, err := asShareSlice(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, 2*len(sec))
		if err != nil {
			return nil, err
		}
		return statemachine.NewBitLessThan(f, cluster, self, pub, sec, tripleSlice(raw)), nil
	case protocol.KindPostfixOr:
		bits, err := asShareSlice(ops[0])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, len(bits))
		if err != nil {
			return nil, err
		}
		return statemachine.NewPostfixOr(f, cluster, self, bits, tripleSlice(raw)), nil
	case protocol.KindScale:
		share, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		exp, err := strconv.Atoi(n.ConstantValue)
		if err != nil {
			return nil, fmt.Errorf("executor: Scale node missing an integer exponent: %w", err)
		}
		return statemachine.NewScale(f, share, exp), nil
	case protocol.KindCompare:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.Compare, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewCompare(f, cluster, self, a, b, raw[0].(runtime.CompareTuple)), nil
	case protocol.KindLessThanZero:
		d, local, err := differenceShare(f, ops[0], ops[1])
		if err != nil {
			return nil, err
		}
		if local {
			neg := f.Zero()
			if isNegative(f, d.Value) {
				neg = f.One()
			}
			return &doneValue{v: neg}, nil
		}
		raw, err := c.nextElements(protocol.Compare, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewLessThanZero(f, cluster, self, d, raw[0].(runtime.CompareTuple)), nil
	case protocol.KindQuaternaryLessThan:
		pub, err := asElementSlice(ops[0])
		if err != nil {
			return nil, err
		}
		sec, err := asShareSlice(ops[1])
		if err != nil {
			return nil, err
		}
		// secretDigitBits is carried as a third, flattened compound operand
		// (each digit's two quaternary bit-shares back to back) — no current
		// bytecode op lowers to QuaternaryLessThan, so there is no adapter
		// this shape is cross-checked against; see DESIGN.md.
		if len(ops) < 3 {
			return nil, fmt.Errorf("executor: QuaternaryLessThan requires a third operand carrying per-digit bit shares")
		}
		secBitsRaw, err := asShareSlice(ops[2])
		if err != nil {
			return nil, err
		}
		pairs := make([][2]shamir.Share, 0, len(secBitsRaw)/2)
		for i := 0; i+1 < len(secBitsRaw); i += 2 {
			pairs = append(pairs, [2]shamir.Share{secBitsRaw[i], secBitsRaw[i+1]})
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, len(sec))
		if err != nil {
			return nil, err
		}
		return statemachine.NewQuaternaryLessThan(f, cluster, self, pub, sec, pairs, tripleSlice(raw)), nil
	case protocol.KindEqualsPublic:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		rawT, err := c.nextElements(protocol.MultiplicationTriple, 1)
		if err != nil {
			return nil, err
		}
		rawE, err := c.nextElements(protocol.EqualityPublicOutput, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewEqualsPublic(f, cluster, self, a, b, rawT[0].(runtime.Triple), rawE[0].(runtime.EqualityTuple)), nil
	case protocol.KindEqualsSecret:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		b, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.EqualitySecretOutput, 2)
		if err != nil {
			return nil, err
		}
		return statemachine.NewEqualsSecret(f, cluster, self, a, b, raw[0].(runtime.CompareTuple), raw[1].(runtime.CompareTuple)), nil
	case protocol.KindDiv:
		return c.buildDiv(ops)
	case protocol.KindMod:
		return c.buildMod(ops)
	case protocol.KindMod2M:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.Trunc, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewMod2M(f, cluster, self, a, raw[0].(runtime.TruncTuple)), nil
	case protocol.KindTruncPr:
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.TruncPr, 1)
		if err != nil {
			return nil, err
		}
		return statemachine.NewTruncPr(f, cluster, self, a, raw[0].(runtime.TruncTuple)), nil
	case protocol.KindPolyEval:
		coeffs, err := asElementSlice(ops[0])
		if err != nil {
			return nil, err
		}
		x, err := asShare(ops[1])
		if err != nil {
			return nil, err
		}
		raw, err := c.nextElements(protocol.MultiplicationTriple, len(coeffs))
		if err != nil {
			return nil, err
		}
		return statemachine.NewPolyEval(f, cluster, self, coeffs, x, tripleSlice(raw)), nil
	case protocol.KindEcdsaDKG:
		return ecdsa.NewDKG(ecdsa.ScalarField(), cluster, self), nil
	case protocol.KindEcdsaAuxInfo:
		// AUX-INFO runs once per cluster bring-up, not per computation (spec
		// §4.2 "EcdsaAuxInfo" vs. the per-program DAG); when it does appear as
		// a DAG node (PublicKeyDerive) it is already LOCAL, projecting the
		// standing public key rather than running the protocol afresh.
		return &doneValue{v: c.EcdsaPublicKey}, nil
	case protocol.KindEcdsaSign:
		keyShare, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		msgHash, err := asElement(ops[1])
		if err != nil {
			return nil, err
		}
		return ecdsa.NewSign(ecdsa.ScalarField(), cluster, self, keyShare, msgHash), nil
	case protocol.KindEddsaSign:
		keyShare, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		msgBytes, err := messageBytes(ops[1])
		if err != nil {
			return nil, err
		}
		pub, err := c.eddsaPublicKey()
		if err != nil {
			return nil, err
		}
		return eddsa.NewSign(eddsa.ScalarField(), cluster, self, keyShare, pub, msgBytes), nil
	case protocol.KindReveal:
		share, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		return statemachine.NewReveal(f, cluster, self, share), nil
	case protocol.KindConstant:
		v, ok := new(big.Int).SetString(n.ConstantValue, 10)
		if !ok {
			return nil, fmt.Errorf("executor: constant node %s has a malformed decimal value %q", n.Dest, n.ConstantValue)
		}
		return statemachine.NewConstant(f, f.Elem(v)), nil
	default:
		return nil, fmt.Errorf("executor: no dispatch for protocol kind %s", n.Kind)
	}
}

func shareAndElement(a, b runtime.Value) (shamir.Share, field.Element, error) {
	if s, ok := a.(shamir.Share); ok {
		e, ok := b.(field.Element)
		if !ok {
			return shamir.Share{}, field.Element{}, fmt.Errorf("executor: expected a public operand, got %T", b)
		}
		return s, e, nil
	}
	s, ok := b.(shamir.Share)
	if !ok {
		return shamir.Share{}, field.Element{}, fmt.Errorf("executor: MulSharePublic needs exactly one share operand")
	}
	e, ok := a.(field.Element)
	if !ok {
		return shamir.Share{}, field.Element{}, fmt.Errorf("executor: expected a public operand, got %T", a)
	}
	return s, e, nil
}

// differenceShare computes a-b for LessThanZero's a<0 framing (spec §4.1
// example: "LessThan(Share,Share) reveals d=a-b..."; bytecode's LessThan
// always carries two operands, never a pre-subtracted one, so the executor
// folds the subtraction in here rather than the protocol layer inventing an
// extra DAG node for it). local reports true when neither operand is
// secret, letting the caller skip the protocol machine entirely.
func differenceShare(f *field.Field, a, b runtime.Value) (shamir.Share, bool, error) {
	sa, aIsShare := a.(shamir.Share)
	sb, bIsShare := b.(shamir.Share)
	switch {
	case aIsShare && bIsShare:
		return shamir.LinearCombination(f, f.One(), sa, f.Neg(f.One()), sb), false, nil
	case aIsShare:
		eb, ok := b.(field.Element)
		if !ok {
			return shamir.Share{}, false, fmt.Errorf("executor: expected a public operand, got %T", b)
		}
		return shamir.Share{Value: f.Sub(sa.Value, eb)}, false, nil
	case bIsShare:
		ea, ok := a.(field.Element)
		if !ok {
			return shamir.Share{}, false, fmt.Errorf("executor: expected a public operand, got %T", a)
		}
		return shamir.Share{Value: f.Sub(ea, sb.Value)}, false, nil
	default:
		ea, aok := a.(field.Element)
		eb, bok := b.(field.Element)
		if !aok || !bok {
			return shamir.Share{}, false, fmt.Errorf("executor: LessThanZero operands must be shares or field elements")
		}
		return shamir.Share{Value: f.Sub(ea, eb)}, true, nil
	}
}

// toShare lifts a runtime.Value that may be a bare public field.Element
// into a degree-0 share (every party already holds the same value), so
// constructors that only know how to consume shamir.Share can be reused
// uniformly regardless of which side of a Div/Mod node is public.
func toShare(v runtime.Value) (shamir.Share, error) {
	if s, ok := v.(shamir.Share); ok {
		return s, nil
	}
	e, ok := v.(field.Element)
	if !ok {
		return shamir.Share{}, fmt.Errorf("executor: expected a share or field element, got %T", v)
	}
	return shamir.Share{Value: e}, nil
}

// buildDiv dispatches KindDiv per spec §4.2's DIV row: public/public and
// share/public are LOCAL (division by a public divisor is linear, and
// public/public needs no sharing at all); any node with a secret right
// operand consumes one DivisionSecretDivisor tuple plus the two
// multiplication triples NewDivShareShare's internal invert-then-multiply
// chain needs; protocol.Translate adds both to the program's requirements
// for such a node, so both are covered by the computation's reservation.
func (c *Computation) buildDiv(ops []runtime.Value) (statemachine.Machine, error) {
	f := c.Field
	_, rightSecret := ops[1].(shamir.Share)
	if !rightSecret {
		b, err := asElement(ops[1])
		if err != nil {
			return nil, err
		}
		if a, ok := ops[0].(shamir.Share); ok {
			return statemachine.NewDivSharePublic(f, a, b), nil
		}
		a, err := asElement(ops[0])
		if err != nil {
			return nil, err
		}
		return statemachine.NewDivPublicPublic(f, a, b), nil
	}

	a, err := toShare(ops[0])
	if err != nil {
		return nil, err
	}
	b, err := asShare(ops[1])
	if err != nil {
		return nil, err
	}
	rawTuple, err := c.nextElements(protocol.DivisionSecretDivisor, 1)
	if err != nil {
		return nil, err
	}
	rawTriples, err := c.nextElements(protocol.MultiplicationTriple, 2)
	if err != nil {
		return nil, err
	}
	triples := tripleSlice(rawTriples)
	return statemachine.NewDivShareShare(f, c.Cluster, c.Self, a, b, rawTuple[0].(runtime.DivisorTuple), triples[0], triples[1]), nil
}

// buildMod dispatches KindMod. A public modulus masks-and-reveals (one
// Modulo tuple); a secret modulus reduces to DIV(share,share)'s residue
// identity and needs the same DivisionSecretDivisor tuple plus three
// triples (invert, quotient multiply, residue multiply).
func (c *Computation) buildMod(ops []runtime.Value) (statemachine.Machine, error) {
	f := c.Field
	_, rightSecret := ops[1].(shamir.Share)
	if !rightSecret {
		a, err := asShare(ops[0])
		if err != nil {
			return nil, err
		}
		modulus := ops[1].(field.Element).BigInt()
		raw, err := c.nextElements(protocol.Modulo, 1)
		if err != nil {
			return nil, err
		}
		tuple := raw[0].(runtime.TruncTuple)
		tuple.M = int(modulus.Int64())
		return statemachine.NewModSharePublic(f, c.Cluster, c.Self, a, tuple), nil
	}

	a, err := toShare(ops[0])
	if err != nil {
		return nil, err
	}
	b, err := asShare(ops[1])
	if err != nil {
		return nil, err
	}
	rawTuple, err := c.nextElements(protocol.DivisionSecretDivisor, 1)
	if err != nil {
		return nil, err
	}
	rawTriples, err := c.nextElements(protocol.MultiplicationTriple, 3)
	if err != nil {
		return nil, err
	}
	triples := tripleSlice(rawTriples)
	return statemachine.NewModShareShare(f, c.Cluster, c.Self, a, b, rawTuple[0].(runtime.DivisorTuple), triples[0], triples[1], triples[2]), nil
}

// messageBytes normalises an EDDSA-SIGN message operand (a bare field
// element or an opaque byte string produced upstream) into the raw bytes
// the FROST transcript hashes.
func messageBytes(v runtime.Value) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	e, err := asElement(v)
	if err != nil {
		return nil, fmt.Errorf("executor: EddsaSign message operand must be bytes or a field element: %w", err)
	}
	return e.BigInt().Bytes(), nil
}

// eddsaPublicKey type-asserts the cluster's standing EDDSA public key,
// populated once at DKG time (see the Computation.EddsaPublicKey field
// doc comment).
func (c *Computation) eddsaPublicKey() (*edwards25519.Point, error) {
	pub, ok := c.EddsaPublicKey.(*edwards25519.Point)
	if !ok {
		return nil, fmt.Errorf("executor: EddsaSign requires a standing EDDSA public key; none configured for computation %s", c.ID)
	}
	return pub, nil
}
