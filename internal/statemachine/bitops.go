package statemachine

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// NewBitLessThan compares a publicly-known bit string (MSB first, the
// revealed masked difference in Compare) against a secret-shared bit
// string of the same width, producing one share of the boolean "public <
// secret" (spec's BIT-LESS-THAN, used internally by Compare's worked
// example). At each position the "still equal so far" running indicator
// and the "first difference favours secret" indicator are folded one bit
// at a time via Mul(share·share) — a serialised, not parallel-prefix,
// carry chain (see DESIGN.md).
//
// Per bit i (MSB-first), with d_i public and r_i secret:
//   eq_i  = 1 - d_i - r_i + 2*d_i*r_i          (local: d_i is public)
//   less_i = (1-d_i)*r_i                        (local: d_i is public)
// and the running products running_i = eq_0*...*eq_{i-1},
// total = sum_i running_i * less_i are each one MulShareShare away from the
// previous step.
func NewBitLessThan(f *field.Field, cluster *party.Cluster, self party.ID, publicBits []field.Element, secretBits []shamir.Share, triples []runtime.Triple) Machine {
	ell := len(publicBits)
	if ell == 0 || len(secretBits) != ell {
		return newLocal(nil, fmt.Errorf("statemachine: BitLessThan requires matching non-empty bit vectors"))
	}
	one := f.One()

	localEq := func(i int) shamir.Share {
		di := publicBits[i]
		ri := secretBits[i]
		v := f.Sub(f.Sub(one, di), ri.Value)
		v = f.Add(v, f.Mul(f.MulScalar(di, 2), ri.Value))
		return shamir.Share{Value: v}
	}
	localLess := func(i int) shamir.Share {
		di := publicBits[i]
		ri := secretBits[i]
		return shamir.Share{Value: f.Mul(f.Sub(one, di), ri.Value)}
	}

	initialRunning := localEq(0)
	total := localLess(0)
	if ell == 1 {
		return newLocal(total, nil)
	}

	var stages []stage
	lessIdx := make([]int, 0, ell-1)
	runningSource := -1 // -1 means "use initialRunning"
	triplePos := 0

	for i := 1; i < ell; i++ {
		i := i
		src := runningSource
		idx := len(stages)
		stages = append(stages, func(prior []interface{}) (Machine, error) {
			if triplePos >= len(triples) {
				return nil, fmt.Errorf("statemachine: BitLessThan ran out of triples at bit %d", i)
			}
			t := triples[triplePos]
			triplePos++
			running := initialRunning
			if src >= 0 {
				running = prior[src].(shamir.Share)
			}
			return NewMulShareShare(f, cluster, self, running, localLess(i), t), nil
		})
		lessIdx = append(lessIdx, idx)

		if i < ell-1 {
			src2 := runningSource
			ridx := len(stages)
			stages = append(stages, func(prior []interface{}) (Machine, error) {
				if triplePos >= len(triples) {
					return nil, fmt.Errorf("statemachine: BitLessThan ran out of triples at bit %d (running update)", i)
				}
				t := triples[triplePos]
				triplePos++
				running := initialRunning
				if src2 >= 0 {
					running = prior[src2].(shamir.Share)
				}
				return NewMulShareShare(f, cluster, self, running, localEq(i), t), nil
			})
			runningSource = ridx
		}
	}

	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			sum := total.Value
			for _, idx := range lessIdx {
				sum = f.Add(sum, results[idx].(shamir.Share).Value)
			}
			return shamir.Share{Value: sum}, nil
		},
		stages...,
	)
}

// NewBitDecompose splits a revealed (public) field element into its ℓ-bit
// binary expansion as public field elements. Decomposing a *secret* share
// into secret bit-shares is the harder direction and is not needed by any
// SPEC_FULL.md operation (every caller either already has public bits from
// a Reveal, per Compare's worked example, or already holds bit-shares
// straight out of a RAN-BITWISE pool element) — documented here rather
// than implemented as a dead code path.
func NewBitDecompose(f *field.Field, value field.Element, bitwidth int) Machine {
	v := value.BigInt()
	bits := make([]field.Element, bitwidth)
	for i := 0; i < bitwidth; i++ {
		bit := int64(0)
		if v.Bit(bitwidth-1-i) == 1 { // MSB first
			bit = 1
		}
		bits[i] = f.FromInt64(bit)
	}
	return newLocal(bits, nil)
}

// NewPostfixOr computes, for a little-endian secret bit vector, the vector
// of postfix ORs (out_i = OR(bits[i], bits[i+1], ..., bits[n-1])), used by
// SCALE-style exponent-alignment circuits. OR(x,y) on two secret bits is
// x+y-x*y, one MulShareShare per adjacent fold.
func NewPostfixOr(f *field.Field, cluster *party.Cluster, self party.ID, bits []shamir.Share, triples []runtime.Triple) Machine {
	n := len(bits)
	if n == 0 {
		return newLocal([]shamir.Share{}, nil)
	}
	out := make([]shamir.Share, n)
	out[n-1] = bits[n-1]
	if n == 1 {
		return newLocal(out, nil)
	}
	stages := make([]stage, n-1)
	for k := 0; k < n-1; k++ {
		i := n - 2 - k // fold from the second-highest index down to 0
		stages[k] = func(prior []interface{}) (Machine, error) {
			var prevOr shamir.Share
			if k == 0 {
				prevOr = out[n-1]
			} else {
				prevOr = prior[k-1].(shamir.Share)
			}
			if k >= len(triples) {
				return nil, fmt.Errorf("statemachine: PostfixOr ran out of triples")
			}
			// OR(bits[i], prevOr) = bits[i] + prevOr - bits[i]*prevOr
			return &orFold{f: f, a: bits[i], b: prevOr, mul: NewMulShareShare(f, cluster, self, bits[i], prevOr, triples[k])}, nil
		}
	}
	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			for k, r := range results {
				out[n-2-k] = r.(shamir.Share)
			}
			return out, nil
		},
		stages...,
	)
}

// orFold wraps a MulShareShare sub-machine and folds its product into the
// OR formula x+y-x*y once the multiplication completes.
type orFold struct {
	f   *field.Field
	a, b shamir.Share
	mul Machine
}

func (o *orFold) Start() ([]OutboundMessage, error) { return o.mul.Start() }
func (o *orFold) Deliver(msg PeerMessage) ([]OutboundMessage, error) { return o.mul.Deliver(msg) }
func (o *orFold) Status() Status { return o.mul.Status() }
func (o *orFold) Output() (interface{}, error) {
	out, err := o.mul.Output()
	if err != nil {
		return nil, err
	}
	product := out.(shamir.Share).Value
	v := o.f.Sub(o.f.Add(o.a.Value, o.b.Value), product)
	return shamir.Share{Value: v}, nil
}

// NewBitAdderSecret ripple-carry adds two secret ℓ-bit vectors (LSB
// first), each bit secret-shared: carry_0 = 0 (public), and at each
// position sum_i = a_i XOR b_i XOR c_i, c_{i+1} = majority(a_i,b_i,c_i).
// The sum takes two XOR folds and the carry one majority fold, each a
// single MulShareShare: three triples per position, two at the last
// position (no outgoing carry), 3ℓ-1 in all (spec's BIT-ADDER-SECRET).
func NewBitAdderSecret(f *field.Field, cluster *party.Cluster, self party.ID, a, b []shamir.Share, triples []runtime.Triple) Machine {
	n := len(a)
	if n == 0 || len(b) != n {
		return newLocal(nil, fmt.Errorf("statemachine: BitAdderSecret requires matching non-empty bit vectors"))
	}
	sums := make([]shamir.Share, n)
	sumIdxList := make([]int, n)
	triplePos := 0
	var stages []stage
	carrySource := -1 // -1 == carry is the public constant 0

	xor := func(x, y shamir.Share, t runtime.Triple) Machine {
		return &xorFold{f: f, a: x, b: y, mul: NewMulShareShare(f, cluster, self, x, y, t)}
	}

	for i := 0; i < n; i++ {
		i := i
		csrc := carrySource
		// sum_i = (a_i XOR b_i) XOR carry
		abIdx := len(stages)
		stages = append(stages, func(prior []interface{}) (Machine, error) {
			if triplePos >= len(triples) {
				return nil, fmt.Errorf("statemachine: BitAdderSecret ran out of triples at bit %d", i)
			}
			t := triples[triplePos]
			triplePos++
			return xor(a[i], b[i], t), nil
		})
		sumIdx := len(stages)
		stages = append(stages, func(prior []interface{}) (Machine, error) {
			abXor := prior[abIdx].(shamir.Share)
			var carry shamir.Share
			if csrc >= 0 {
				carry = prior[csrc].(shamir.Share)
			} else {
				carry = shamir.Share{Value: f.Zero()}
			}
			if triplePos >= len(triples) {
				return nil, fmt.Errorf("statemachine: BitAdderSecret ran out of triples at bit %d", i)
			}
			t := triples[triplePos]
			triplePos++
			return xor(abXor, carry, t), nil
		})
		sumIdxList[i] = sumIdx
		if i < n-1 {
			// carry_{i+1} = majority(a_i,b_i,carry) = ab + carry*(a_i XOR b_i)
			carryIdx := len(stages)
			stages = append(stages, func(prior []interface{}) (Machine, error) {
				abXor := prior[abIdx].(shamir.Share)
				var carry shamir.Share
				if csrc >= 0 {
					carry = prior[csrc].(shamir.Share)
				} else {
					carry = shamir.Share{Value: f.Zero()}
				}
				if triplePos >= len(triples) {
					return nil, fmt.Errorf("statemachine: BitAdderSecret ran out of triples at bit %d (carry)", i)
				}
				t := triples[triplePos]
				triplePos++
				return &majorityFold{f: f, a: a[i], b: b[i], abXor: abXor, carry: carry, mul: NewMulShareShare(f, cluster, self, carry, abXor, t)}, nil
			})
			carrySource = carryIdx
		}
	}

	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			for i := 0; i < n; i++ {
				sums[i] = results[sumIdxList[i]].(shamir.Share)
			}
			return sums, nil
		},
		stages...,
	)
}

// NewBitAdder adds two publicly-known bit vectors: pure public arithmetic,
// LOCAL, kept as its own constructor for symmetry with BitAdderMixed/
// BitAdderSecret rather than inlined at call sites.
func NewBitAdder(f *field.Field, a, b []field.Element) Machine {
	n := len(a)
	if n == 0 || len(b) != n {
		return newLocal(nil, fmt.Errorf("statemachine: BitAdder requires matching non-empty bit vectors"))
	}
	sums := make([]field.Element, n)
	carry := f.Zero()
	for i := 0; i < n; i++ {
		x, y := a[i], b[i]
		sum := f.Add(f.Add(x, y), carry)
		// sum, carry = sum mod 2, sum div 2, computed over {0,1,2,3} values.
		v := sum.BigInt().Int64()
		sums[i] = f.FromInt64(v & 1)
		carry = f.FromInt64(v >> 1)
	}
	return newLocal(sums, nil)
}

// NewBitAdderMixed adds a publicly-known bit vector to a secret-shared one.
// Reuses the BitAdderSecret ripple-carry chain with the public bits lifted
// to shares holding an identical public value at every party (a valid
// representation of a public constant under this scheme, same trick
// canonicalizeLiteral/NewConstant use elsewhere) — correct, though it
// spends a multiplication round the fully-public-aware optimisation
// wouldn't need; see DESIGN.md.
func NewBitAdderMixed(f *field.Field, cluster *party.Cluster, self party.ID, a []field.Element, b []shamir.Share, triples []runtime.Triple) Machine {
	lifted := make([]shamir.Share, len(a))
	for i, e := range a {
		lifted[i] = shamir.Share{Value: e}
	}
	return NewBitAdderSecret(f, cluster, self, lifted, b, triples)
}

// xorFold wraps a MulShareShare(a,b) product and folds it into
// XOR(a,b) = a+b-2*a*b once the multiplication completes.
type xorFold struct {
	f    *field.Field
	a, b shamir.Share
	mul  Machine
}

func (x *xorFold) Start() ([]OutboundMessage, error)                  { return x.mul.Start() }
func (x *xorFold) Deliver(msg PeerMessage) ([]OutboundMessage, error) { return x.mul.Deliver(msg) }
func (x *xorFold) Status() Status                                     { return x.mul.Status() }
func (x *xorFold) Output() (interface{}, error) {
	out, err := x.mul.Output()
	if err != nil {
		return nil, err
	}
	product := out.(shamir.Share).Value
	v := x.f.Sub(x.f.Add(x.a.Value, x.b.Value), x.f.MulScalar(product, 2))
	return shamir.Share{Value: v}, nil
}

// majorityFold turns a MulShareShare(carry, a XOR b) product into
// majority(a,b,carry) = a*b + carry*(a XOR b), recovering a*b from the XOR
// identity ab = (a+b-(a XOR b))/2 since a, b and their XOR are all
// already available.
type majorityFold struct {
	f                  *field.Field
	a, b, abXor, carry shamir.Share
	mul                Machine
}

func (m *majorityFold) Start() ([]OutboundMessage, error) { return m.mul.Start() }
func (m *majorityFold) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	return m.mul.Deliver(msg)
}
func (m *majorityFold) Status() Status { return m.mul.Status() }
func (m *majorityFold) Output() (interface{}, error) {
	out, err := m.mul.Output()
	if err != nil {
		return nil, err
	}
	carryTerm := out.(shamir.Share).Value
	halfInv, err := m.f.Inverse(m.f.FromInt64(2))
	if err != nil {
		return nil, err
	}
	ab := m.f.Mul(m.f.Sub(m.f.Add(m.a.Value, m.b.Value), m.abXor.Value), halfInv)
	return shamir.Share{Value: m.f.Add(ab, carryTerm)}, nil
}
