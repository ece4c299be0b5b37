package statemachine

import (
	"fmt"
	"math/big"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// Every PREP-* protocol in spec §4.2's table ("produces, per invocation, a
// vector of correlated-randomness shares of a specific kind... written to
// the preprocessing pool, not to a computation") bottoms out in one of two
// primitives, so this file builds those two primitives once and composes
// every pool kind from them instead of hand-rolling ten near-duplicate
// state machines:
//
//   - a distributed sum of independently-sampled local contributions
//     (the standard RAN realization, given at least one honest party)
//   - a degree-reduction resharing of a locally-computed pointwise
//     product (the standard way to turn two degree-t sharings into one
//     degree-t sharing of their product without an existing triple)

// NewPrepRandomBatch has every party sample count local field elements,
// Shamir-share each one, and send its peers their shares in a single
// round; once every party's batch has arrived, each party locally sums
// the values it holds at its own point, yielding count uniform shares at
// once. Bundling into a batch saves rounds versus generating one element
// at a time.
func NewPrepRandomBatch(f *field.Field, cluster *party.Cluster, self party.ID, count int) Machine {
	if count <= 0 {
		return newLocal(nil, fmt.Errorf("statemachine: PrepRandomBatch requires count > 0"))
	}
	return &prepRandomBatch{f: f, cluster: cluster, self: self, count: count}
}

type prepRandomBatch struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	count   int

	own       []shamir.Share
	collector *roundCollector
	status    Status
	output    []shamir.Share
	abortErr  error
}

func (p *prepRandomBatch) Start() ([]OutboundMessage, error) {
	p.status = Running
	peers := make([]party.ID, 0, p.cluster.N())
	for _, pt := range p.cluster.Parties() {
		peers = append(peers, pt.ID)
	}
	p.collector = newRoundCollector(0, peers, p.self)

	// For each local sample and each peer, hold the share this party owes
	// that peer; own[i] is this party's own share of sample i.
	p.own = make([]shamir.Share, p.count)
	perPeer := make(map[party.ID][]shamir.Share, p.cluster.N())
	for i := 0; i < p.count; i++ {
		v, err := p.f.Random()
		if err != nil {
			return nil, err
		}
		shares, err := shamir.Split(p.f, p.cluster, v)
		if err != nil {
			return nil, err
		}
		p.own[i] = shares[p.self]
		for id, sh := range shares {
			if id == p.self {
				continue
			}
			perPeer[id] = append(perPeer[id], sh)
		}
	}

	var out []OutboundMessage
	for id, shares := range perPeer {
		out = append(out, OutboundMessage{To: id, Round: 0, Tag: TagShare, Body: encodeShareBatch(p.f, shares)})
	}
	return out, nil
}

func (p *prepRandomBatch) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if p.status != Running {
		return nil, nil
	}
	if msg.Tag != TagShare {
		return nil, fmt.Errorf("statemachine: PrepRandomBatch got unexpected tag %d", msg.Tag)
	}
	if !p.collector.accept(msg) {
		return nil, nil
	}
	if !p.collector.complete() {
		return nil, nil
	}
	sums := make([]field.Element, p.count)
	for i, s := range p.own {
		sums[i] = s.Value
	}
	for _, m := range p.collector.got {
		batch, err := decodeShareBatch(p.f, m.Body)
		if err != nil {
			return nil, err
		}
		if len(batch) != p.count {
			return nil, fmt.Errorf("statemachine: PrepRandomBatch peer sent %d shares, want %d", len(batch), p.count)
		}
		for i, s := range batch {
			sums[i] = p.f.Add(sums[i], s.Value)
		}
	}
	p.output = make([]shamir.Share, p.count)
	for i, s := range sums {
		p.output[i] = shamir.Share{Value: s}
	}
	p.status = Done
	return nil, nil
}

func (p *prepRandomBatch) Status() Status { return p.status }
func (p *prepRandomBatch) Output() (interface{}, error) {
	if p.status != Done {
		return nil, ErrNotDone
	}
	return p.output, nil
}

// encodeShareBatch/decodeShareBatch glue a count-prefixed list of shares
// onto the same length-prefixed element encoding the rest of the package
// uses, so a whole sampling round fits in one message per peer.
func encodeShareBatch(f *field.Field, shares []shamir.Share) []byte {
	var out []byte
	n := uint32(len(shares))
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	for _, s := range shares {
		out = append(out, EncodeShare(f, s)...)
	}
	return out
}

func decodeShareBatch(f *field.Field, data []byte) ([]shamir.Share, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("statemachine: share batch truncated")
	}
	n := int(uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]))
	data = data[4:]
	out := make([]shamir.Share, n)
	for i := 0; i < n; i++ {
		width := f.ByteWidth() + 4
		if len(data) < width {
			return nil, fmt.Errorf("statemachine: share batch truncated at element %d", i)
		}
		s, err := DecodeShare(f, data[:width])
		if err != nil {
			return nil, err
		}
		out[i] = s
		data = data[width:]
	}
	return out, nil
}

// NewPrepTriple generates one fresh Beaver triple from scratch (spec's
// MultiplicationTriple pool kind): sample a,b via a random batch, compute
// the pointwise product c_self = a_self*b_self locally (a valid point on
// the degree-2t polynomial through the parties' (a*b) values), then have
// every party reshare its pointwise product at degree t and recombine
// with Lagrange-at-zero weights over the *original* abscissas. This is
// the standard degree-reduction construction (Gennaro-Rabin-Rabin-style)
// for manufacturing a triple without already having one, and is why
// cluster sizing enforces 2t<n: the pointwise products must lie on a
// polynomial the full party set can still interpolate.
func NewPrepTriple(f *field.Field, cluster *party.Cluster, self party.ID) Machine {
	return newSequencer(1,
		func(results []interface{}) (interface{}, error) {
			return results[1], nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRandomBatch(f, cluster, self, 2), nil
		},
		func(prior []interface{}) (Machine, error) {
			ab := prior[0].([]shamir.Share)
			a, b := ab[0], ab[1]
			product := f.Mul(a.Value, b.Value)
			return &degreeReduce{f: f, cluster: cluster, self: self, a: a, b: b, localProduct: product}, nil
		},
	)
}

// degreeReduce reshares a locally-held degree-2t point (localProduct,
// this party's point on the a*b polynomial) via a fresh degree-t sharing,
// collects every party's resharing, and combines them with Lagrange
// weights to land back on a degree-t share of a*b.
type degreeReduce struct {
	f            *field.Field
	cluster      *party.Cluster
	self         party.ID
	a, b         shamir.Share
	localProduct field.Element

	collector *roundCollector
	ownShare  shamir.Share
	status    Status
	output    runtime.Triple
	abortErr  error
}

func (d *degreeReduce) Start() ([]OutboundMessage, error) {
	d.status = Running
	peers := make([]party.ID, 0, d.cluster.N())
	for _, p := range d.cluster.Parties() {
		peers = append(peers, p.ID)
	}
	d.collector = newRoundCollector(0, peers, d.self)

	shares, err := shamir.Split(d.f, d.cluster, d.localProduct)
	if err != nil {
		return nil, err
	}
	var out []OutboundMessage
	for id, sh := range shares {
		if id == d.self {
			continue
		}
		out = append(out, OutboundMessage{To: id, Round: 0, Tag: TagShare, Body: EncodeShare(d.f, sh)})
	}
	d.ownShare = shares[d.self] // this party's own resharing of its own point
	return out, nil
}

func (d *degreeReduce) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if d.status != Running {
		return nil, nil
	}
	if msg.Tag != TagShare {
		return nil, fmt.Errorf("statemachine: degreeReduce got unexpected tag %d", msg.Tag)
	}
	if !d.collector.accept(msg) {
		return nil, nil
	}
	if !d.collector.complete() {
		return nil, nil
	}
	resharings := map[party.ID]shamir.Share{d.self: d.ownShare}
	for from, m := range d.collector.got {
		sh, err := DecodeShare(d.f, m.Body)
		if err != nil {
			return nil, err
		}
		resharings[from] = sh
	}

	lambdas, err := lagrangeAtZeroWeights(d.f, d.cluster)
	if err != nil {
		return nil, err
	}
	var c field.Element = d.f.Zero()
	for id, sh := range resharings {
		c = d.f.Add(c, d.f.Mul(lambdas[id], sh.Value))
	}
	d.output = runtime.Triple{A: d.a, B: d.b, C: shamir.Share{Value: c}}
	d.status = Done
	return nil, nil
}

func (d *degreeReduce) Status() Status { return d.status }
func (d *degreeReduce) Output() (interface{}, error) {
	if d.status != Done {
		return nil, ErrNotDone
	}
	return d.output, nil
}

// lagrangeAtZeroWeights returns, for every party in the cluster, the
// Lagrange basis coefficient that reconstructs a polynomial's value at
// x=0 from its value at that party's abscissa — the public weights the
// degree-reduction step combines resharings with.
func lagrangeAtZeroWeights(f *field.Field, cluster *party.Cluster) (map[party.ID]field.Element, error) {
	parties := cluster.Parties()
	xs := make(map[party.ID]field.Element, len(parties))
	for _, p := range parties {
		x, err := cluster.AbscissaElem(f, p.ID)
		if err != nil {
			return nil, err
		}
		xs[p.ID] = x
	}
	weights := make(map[party.ID]field.Element, len(parties))
	for _, p := range parties {
		xj := xs[p.ID]
		num := f.One()
		den := f.One()
		for _, m := range parties {
			if m.ID == p.ID {
				continue
			}
			xm := xs[m.ID]
			num = f.Mul(num, f.Neg(xm))
			den = f.Mul(den, f.Sub(xj, xm))
		}
		denInv, err := f.Inverse(den)
		if err != nil {
			return nil, err
		}
		weights[p.ID] = f.Mul(num, denInv)
	}
	return weights, nil
}

// NewPrepRanBit generates one fresh random-bit share from scratch (spec's
// RandomBoolean pool kind): sample r, reveal r^2 via a fresh triple, take
// the public square root (valid since the field's modulus is a safe prime
// p=2q+1 with q odd, hence p≡3 mod 4, so r^2's root is r^((p+1)/4)), and
// fold bit = (r/root + 1)/2 locally — the standard random-bit-from-
// random-square construction.
func NewPrepRanBit(f *field.Field, cluster *party.Cluster, self party.ID) Machine {
	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			return results[1], nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRandomBatch(f, cluster, self, 1), nil
		},
		func(prior []interface{}) (Machine, error) {
			r := prior[0].([]shamir.Share)[0]
			return newSequencer(1,
				func(inner []interface{}) (interface{}, error) {
					square := inner[1].(field.Element)
					if f.IsZero(square) {
						return nil, &AbortError{Protocol: "PrepRanBit", Reason: "sampled value squared to zero"}
					}
					root := sqrtModSafePrime(f, square)
					rootInv, err := f.Inverse(root)
					if err != nil {
						return nil, err
					}
					two := f.FromInt64(2)
					twoInv, err := f.Inverse(two)
					if err != nil {
						return nil, err
					}
					ratio := f.Mul(r.Value, rootInv)
					bit := f.Mul(f.Add(ratio, f.One()), twoInv)
					return shamir.Share{Value: bit}, nil
				},
				func(inner []interface{}) (Machine, error) {
					return NewPrepTriple(f, cluster, self), nil
				},
				func(inner []interface{}) (Machine, error) {
					triple := inner[0].(runtime.Triple)
					mul := NewMulShareShare(f, cluster, self, r, r, triple)
					return &revealAfter{inner: mul, innerRounds: 2, f: f, cluster: cluster, self: self}, nil
				},
			), nil
		},
	)
}

// sqrtModSafePrime computes a square root of v modulo f's modulus p,
// valid when p≡3 mod 4 (true for every safe prime p=2q+1 with q odd,
// which rules out every safe prime this package accepts other than q=2).
func sqrtModSafePrime(f *field.Field, v field.Element) field.Element {
	p := f.Modulus()
	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Rsh(exp, 2)
	return f.Exp(v, exp)
}

// NewPrepRanBitwise generates one fresh RAN-BITWISE element: bitwidth
// independent PrepRanBit draws, recombined locally into a value share
// (value = Σ bit_i * 2^i, so the value is defined *by* its bits rather
// than sampled independently — no extra round is spent on it).
func NewPrepRanBitwise(f *field.Field, cluster *party.Cluster, self party.ID, bitwidth int) Machine {
	if bitwidth <= 0 {
		return newLocal(nil, fmt.Errorf("statemachine: PrepRanBitwise requires bitwidth > 0"))
	}
	stages := make([]stage, bitwidth)
	for i := 0; i < bitwidth; i++ {
		stages[i] = func(prior []interface{}) (Machine, error) {
			return NewPrepRanBit(f, cluster, self), nil
		}
	}
	return newSequencer(4,
		func(results []interface{}) (interface{}, error) {
			bits := make([]shamir.Share, bitwidth)
			value := f.Zero()
			for i := 0; i < bitwidth; i++ {
				bits[i] = results[i].(shamir.Share)
				value = f.Add(value, f.Mul(bits[i].Value, pow2(f, i)))
			}
			return runtime.BitwiseRandom{Value: shamir.Share{Value: value}, Bits: bits}, nil
		},
		stages...,
	)
}

// NewPrepCompareTuple generates one fresh Compare tuple: a RAN-BITWISE
// mask of the caller's bit width plus the 2*(bitwidth-1) triples
// BIT-LESS-THAN's running-equality chain consumes.
func NewPrepCompareTuple(f *field.Field, cluster *party.Cluster, self party.ID, bitwidth int) Machine {
	needed := 2 * (bitwidth - 1)
	stages := []stage{
		func(prior []interface{}) (Machine, error) {
			return NewPrepRanBitwise(f, cluster, self, bitwidth), nil
		},
	}
	for i := 0; i < needed; i++ {
		stages = append(stages, func(prior []interface{}) (Machine, error) {
			return NewPrepTriple(f, cluster, self), nil
		})
	}
	return newSequencer(5,
		func(results []interface{}) (interface{}, error) {
			r := results[0].(runtime.BitwiseRandom)
			triples := make([]runtime.Triple, needed)
			for i := 0; i < needed; i++ {
				triples[i] = results[1+i].(runtime.Triple)
			}
			return runtime.CompareTuple{R: r, Bitwidth: bitwidth, Triples: triples}, nil
		},
		stages...,
	)
}

// NewPrepEqualityTuple generates one fresh zero-test mask. A uniformly
// random field element is nonzero except with probability 1/p, negligible
// for the safe primes this package uses, so no explicit nonzero check is
// performed — the same tolerance spec's INV-RAN grants its own sampling
// step.
func NewPrepEqualityTuple(f *field.Field, cluster *party.Cluster, self party.ID) Machine {
	return &prepEqualityTuple{inner: NewPrepRandomBatch(f, cluster, self, 1)}
}

type prepEqualityTuple struct{ inner Machine }

func (p *prepEqualityTuple) Start() ([]OutboundMessage, error)                  { return p.inner.Start() }
func (p *prepEqualityTuple) Deliver(msg PeerMessage) ([]OutboundMessage, error) { return p.inner.Deliver(msg) }
func (p *prepEqualityTuple) Status() Status                                     { return p.inner.Status() }
func (p *prepEqualityTuple) Output() (interface{}, error) {
	out, err := p.inner.Output()
	if err != nil {
		return nil, err
	}
	mask := out.([]shamir.Share)[0]
	return runtime.EqualityTuple{Mask: mask}, nil
}

// NewPrepTruncTuple generates one fresh masked-truncation tuple for
// TRUNCPR/TRUNC/MOD2M: Low is bounded exactly to [0,2^m) via
// PrepRanBitwise (only its value component is kept, the bit shares are
// discarded once Low is pinned to the right range), High is a second
// PrepRanBitwise value of bitlen(P)-m-2 bits (at least one) serving as the
// upper portion of the mask. When P has at least m+3 bits the whole mask
// High*2^m+Low stays below P/2, so a+r does not wrap mod P for any a
// below P/2.
func NewPrepTruncTuple(f *field.Field, cluster *party.Cluster, self party.ID, m int) Machine {
	highBits := f.Modulus().BitLen() - m - 2
	if highBits < 1 {
		highBits = 1
	}
	return newSequencer(4,
		func(results []interface{}) (interface{}, error) {
			low := results[0].(runtime.BitwiseRandom).Value
			high := results[1].(runtime.BitwiseRandom).Value
			return runtime.TruncTuple{Low: low, High: high, M: m}, nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRanBitwise(f, cluster, self, m), nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRanBitwise(f, cluster, self, highBits), nil
		},
	)
}

// NewPrepModulusTuple is NewPrepTruncTuple's non-power-of-two sibling for
// NewModSharePublic, where M is overloaded to carry the modulus value
// rather than a bit width: Low must land in [0,modulus), so it is built
// as a sum of independent random bits weighted to the modulus's own bit
// length and then reduced, rather than a clean binary RAN-BITWISE value.
func NewPrepModulusTuple(f *field.Field, cluster *party.Cluster, self party.ID, modulus int) Machine {
	bits := 0
	for v := modulus; v > 0; v >>= 1 {
		bits++
	}
	return newSequencer(4,
		func(results []interface{}) (interface{}, error) {
			raw := results[0].(runtime.BitwiseRandom).Value
			reduced := f.Elem(new(big.Int).Mod(raw.Value.BigInt(), big.NewInt(int64(modulus))))
			high := results[1].([]shamir.Share)[0]
			return runtime.TruncTuple{Low: shamir.Share{Value: reduced}, High: high, M: modulus}, nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRanBitwise(f, cluster, self, bits+8), nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRandomBatch(f, cluster, self, 1), nil
		},
	)
}

// NewPrepDivisorTuple generates one fresh (R, 1/R) pair for
// DIV(share,share)'s secret-divisor inversion: exactly NewInvRan's own
// construction, just keeping both the sampled value and its computed
// inverse instead of discarding R.
func NewPrepDivisorTuple(f *field.Field, cluster *party.Cluster, self party.ID) Machine {
	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			return results[1], nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewPrepRandomBatch(f, cluster, self, 2), nil
		},
		func(prior []interface{}) (Machine, error) {
			rr := prior[0].([]shamir.Share)
			return &divisorTupleFinish{f: f, cluster: cluster, self: self, r1: rr[0], r2: rr[1]}, nil
		},
	)
}

// divisorTupleFinish runs a fresh triple + InvRan's reveal-and-invert
// step, then packages the result as a DivisorTuple instead of a bare
// inverse share.
type divisorTupleFinish struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	r1, r2  shamir.Share

	inner    Machine
	status   Status
	output   runtime.DivisorTuple
	abortErr error
}

func (d *divisorTupleFinish) Start() ([]OutboundMessage, error) {
	d.status = Running
	d.inner = newSequencer(1,
		func(results []interface{}) (interface{}, error) { return results[1], nil },
		func(prior []interface{}) (Machine, error) {
			return NewPrepTriple(d.f, d.cluster, d.self), nil
		},
		func(prior []interface{}) (Machine, error) {
			triple := prior[0].(runtime.Triple)
			return NewInvRan(d.f, d.cluster, d.self, d.r1, d.r2, triple), nil
		},
	)
	return d.inner.Start()
}

func (d *divisorTupleFinish) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	return d.inner.Deliver(msg)
}

func (d *divisorTupleFinish) Status() Status {
	if d.inner == nil {
		return Running
	}
	return d.inner.Status()
}

func (d *divisorTupleFinish) Output() (interface{}, error) {
	out, err := d.inner.Output()
	if err != nil {
		return nil, err
	}
	rInv := out.(shamir.Share)
	return runtime.DivisorTuple{R: d.r1, RInv: rInv}, nil
}
