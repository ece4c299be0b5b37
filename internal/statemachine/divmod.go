package statemachine

import (
	"math/big"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// pow2 returns 2^m as a field element, computed over big.Int since m can
// exceed what fits in an int64 shift on some platforms' FromInt64.
func pow2(f *field.Field, m int) field.Element {
	v := new(big.Int).Lsh(big.NewInt(1), uint(m))
	return f.Elem(v)
}

// maskedReveal builds the one-round "reveal a+r" sub-machine every op in
// this file starts from: TRUNCPR, TRUNC, MOD2M and the public-modulus
// MOD all mask a secret value with a pool-supplied random value wide
// enough to hide it, reveal the sum, and finish the computation locally
// from the public sum and the mask's own (still secret) decomposition.
func maskedReveal(f *field.Field, cluster *party.Cluster, self party.ID, a, r shamir.Share) Machine {
	masked := shamir.Share{Value: f.Add(a.Value, r.Value)}
	return NewReveal(f, cluster, self, masked)
}

// NewMod2M computes a mod 2^m for a secret a (spec's MOD2M). Standard
// masked-truncation trick (Catrina/de Hoogh): the tuple carries r = r_hi *
// 2^m + r_lo pre-split into two shares; revealing a+r publicly and taking
// the low m bits of that public sum, then subtracting the (still secret)
// r_lo share, yields a mod 2^m whenever a+r didn't wrap around the low
// boundary — true except with probability bounded by the pool's chosen
// statistical gap between the input's range and 2^m (see DESIGN.md).
func NewMod2M(f *field.Field, cluster *party.Cluster, self party.ID, a shamir.Share, tuple runtime.TruncTuple) Machine {
	twoM := pow2(f, tuple.M)
	r := shamir.Share{Value: f.Add(f.Mul(tuple.High.Value, twoM), tuple.Low.Value)}
	reveal := maskedReveal(f, cluster, self, a, r)
	return &mod2mFinish{f: f, tuple: tuple, reveal: reveal}
}

type mod2mFinish struct {
	f      *field.Field
	tuple  runtime.TruncTuple
	reveal Machine
}

func (m *mod2mFinish) Start() ([]OutboundMessage, error) { return m.reveal.Start() }
func (m *mod2mFinish) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	return m.reveal.Deliver(msg)
}
func (m *mod2mFinish) Status() Status { return m.reveal.Status() }
func (m *mod2mFinish) Output() (interface{}, error) {
	out, err := m.reveal.Output()
	if err != nil {
		return nil, err
	}
	sum := out.(field.Element).BigInt()
	mask := new(big.Int).Sub(pow2(m.f, m.tuple.M).BigInt(), big.NewInt(1))
	low := new(big.Int).And(sum, mask)
	result := m.f.Sub(m.f.Elem(low), m.tuple.Low.Value)
	return shamir.Share{Value: result}, nil
}

// NewTruncPr computes a right-shift by m bits with a probabilistic
// off-by-one error (spec's TRUNCPR, the protocol's own name already
// advertises the approximation): reveal a+r, take the public sum's high
// bits above position m, subtract the mask's own high share. No wrap
// correction is applied, which is exactly what "probabilistic" means here.
func NewTruncPr(f *field.Field, cluster *party.Cluster, self party.ID, a shamir.Share, tuple runtime.TruncTuple) Machine {
	twoM := pow2(f, tuple.M)
	r := shamir.Share{Value: f.Add(f.Mul(tuple.High.Value, twoM), tuple.Low.Value)}
	reveal := maskedReveal(f, cluster, self, a, r)
	return &truncPrFinish{f: f, tuple: tuple, reveal: reveal}
}

type truncPrFinish struct {
	f      *field.Field
	tuple  runtime.TruncTuple
	reveal Machine
}

func (t *truncPrFinish) Start() ([]OutboundMessage, error) { return t.reveal.Start() }
func (t *truncPrFinish) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	return t.reveal.Deliver(msg)
}
func (t *truncPrFinish) Status() Status { return t.reveal.Status() }
func (t *truncPrFinish) Output() (interface{}, error) {
	out, err := t.reveal.Output()
	if err != nil {
		return nil, err
	}
	sum := out.(field.Element).BigInt()
	high := new(big.Int).Rsh(sum, uint(t.tuple.M))
	result := t.f.Sub(t.f.Elem(high), t.tuple.High.Value)
	return shamir.Share{Value: result}, nil
}

// NewTrunc is TRUNCPR's exact sibling: same masked reveal, but a Compare
// between the public low bits and the mask's own (secret) low share
// detects whether a+r wrapped past the truncation boundary, and
// subtracts one from the quotient when it did. This is the one place the
// probabilistic shortcut above is worth paying an extra Compare for.
func NewTrunc(f *field.Field, cluster *party.Cluster, self party.ID, a shamir.Share, tuple runtime.TruncTuple, wrap runtime.CompareTuple) Machine {
	twoM := pow2(f, tuple.M)
	r := shamir.Share{Value: f.Add(f.Mul(tuple.High.Value, twoM), tuple.Low.Value)}
	reveal := maskedReveal(f, cluster, self, a, r)
	return &truncExactMachine{f: f, cluster: cluster, self: self, tuple: tuple, wrap: wrap, reveal: reveal}
}

type truncExactMachine struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	tuple   runtime.TruncTuple
	wrap    runtime.CompareTuple

	reveal Machine
	cmp    Machine

	waitingCmp bool
	high       field.Element
	status     Status
	output     shamir.Share
	abortErr   error
}

func (t *truncExactMachine) Start() ([]OutboundMessage, error) {
	t.status = Running
	msgs, err := t.reveal.Start()
	if err != nil {
		return nil, err
	}
	if t.reveal.Status() == Done {
		return t.afterReveal(msgs)
	}
	return msgs, nil
}

func (t *truncExactMachine) afterReveal(prior []OutboundMessage) ([]OutboundMessage, error) {
	out, err := t.reveal.Output()
	if err != nil {
		t.status = Aborted
		t.abortErr = err
		return prior, nil
	}
	sum := out.(field.Element).BigInt()
	twoM := pow2(t.f, t.tuple.M).BigInt()
	mask := new(big.Int).Sub(twoM, big.NewInt(1))
	low := new(big.Int).And(sum, mask)
	high := new(big.Int).Rsh(sum, uint(t.tuple.M))
	t.high = t.f.Elem(high)

	lowLifted := shamir.Share{Value: t.f.Elem(low)}
	t.cmp = NewCompare(t.f, t.cluster, t.self, lowLifted, t.tuple.Low, t.wrap)
	t.waitingCmp = true
	msgs, err := t.cmp.Start()
	if err != nil {
		return nil, err
	}
	if t.cmp.Status() == Done {
		return t.finish(append(prior, msgs...))
	}
	return append(prior, msgs...), nil
}

func (t *truncExactMachine) finish(prior []OutboundMessage) ([]OutboundMessage, error) {
	out, err := t.cmp.Output()
	if err != nil {
		t.status = Aborted
		t.abortErr = err
		return prior, nil
	}
	wrapped := out.(shamir.Share)
	quotient := t.f.Sub(t.high, t.tuple.High.Value)
	quotient = t.f.Sub(quotient, wrapped.Value)
	t.output = shamir.Share{Value: quotient}
	t.status = Done
	return prior, nil
}

func (t *truncExactMachine) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if t.status != Running {
		return nil, nil
	}
	if !t.waitingCmp {
		msgs, err := t.reveal.Deliver(msg)
		if err != nil {
			t.status = Aborted
			t.abortErr = err
			return nil, nil
		}
		if t.reveal.Status() == Done {
			return t.afterReveal(msgs)
		}
		return msgs, nil
	}
	msgs, err := t.cmp.Deliver(msg)
	if err != nil {
		t.status = Aborted
		t.abortErr = err
		return nil, nil
	}
	if t.cmp.Status() == Done {
		return t.finish(msgs)
	}
	if t.cmp.Status() == Aborted {
		t.status = Aborted
		t.abortErr = &AbortError{Protocol: "Trunc", Reason: "wrap-detection compare aborted"}
	}
	return msgs, nil
}

func (t *truncExactMachine) Status() Status { return t.status }
func (t *truncExactMachine) Output() (interface{}, error) {
	if t.status == Aborted {
		return nil, t.abortErr
	}
	if t.status != Done {
		return nil, ErrNotDone
	}
	return t.output, nil
}

// NewDivPublicPublic divides two public field elements (spec's
// DIV(public,public)): no sharing involved, ordinary field division.
func NewDivPublicPublic(f *field.Field, a, b field.Element) Machine {
	inv, err := f.Inverse(b)
	if err != nil {
		return newLocal(nil, err)
	}
	return newLocal(f.Mul(a, inv), nil)
}

// NewDivSharePublic divides a secret share by a public, nonzero divisor
// (spec's DIV(share,public)): multiplying every share by the divisor's
// public field inverse is linear, so this is LOCAL, no round needed.
func NewDivSharePublic(f *field.Field, a shamir.Share, b field.Element) Machine {
	inv, err := f.Inverse(b)
	if err != nil {
		return newLocal(nil, err)
	}
	return newLocal(shamir.Share{Value: f.Mul(a.Value, inv)}, nil)
}

// NewModSharePublic computes a mod d for a secret a and a public modulus d
// that need not be a power of two: same masked-reveal idea as MOD2M, but
// the tuple's M field is overloaded to carry the modulus itself rather
// than a bit width (spec's generic Modulo pool kind, as distinct from the
// power-of-two-specialised Trunc/TruncPr/Mod2m family).
func NewModSharePublic(f *field.Field, cluster *party.Cluster, self party.ID, a shamir.Share, tuple runtime.TruncTuple) Machine {
	modulus := big.NewInt(int64(tuple.M))
	r := shamir.Share{Value: f.Add(f.Mul(tuple.High.Value, f.Elem(modulus)), tuple.Low.Value)}
	reveal := maskedReveal(f, cluster, self, a, r)
	return &modPublicFinish{f: f, modulus: modulus, tuple: tuple, reveal: reveal}
}

type modPublicFinish struct {
	f       *field.Field
	modulus *big.Int
	tuple   runtime.TruncTuple
	reveal  Machine
}

func (m *modPublicFinish) Start() ([]OutboundMessage, error) { return m.reveal.Start() }
func (m *modPublicFinish) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	return m.reveal.Deliver(msg)
}
func (m *modPublicFinish) Status() Status { return m.reveal.Status() }
func (m *modPublicFinish) Output() (interface{}, error) {
	out, err := m.reveal.Output()
	if err != nil {
		return nil, err
	}
	sum := out.(field.Element).BigInt()
	low := new(big.Int).Mod(sum, m.modulus)
	result := m.f.Sub(m.f.Elem(low), m.tuple.Low.Value)
	return shamir.Share{Value: result}, nil
}

// NewInvertShare computes a share of 1/b for a secret, nonzero b: the same
// mask-multiply-reveal-invert-locally trick as INV-RAN, applied to an
// arbitrary input rather than a fresh random sample (spec's
// DivisionSecretDivisor pool kind backs exactly this step).
func NewInvertShare(f *field.Field, cluster *party.Cluster, self party.ID, b shamir.Share, tuple runtime.DivisorTuple, triple runtime.Triple) Machine {
	return newSequencer(1,
		func(results []interface{}) (interface{}, error) {
			product := results[0].(field.Element)
			if f.IsZero(product) {
				return nil, &AbortError{Protocol: "InvertShare", Reason: "divisor's mask product was zero"}
			}
			inv, err := f.Inverse(product)
			if err != nil {
				return nil, &AbortError{Protocol: "InvertShare", Reason: err.Error()}
			}
			return shamir.Share{Value: f.Mul(tuple.R.Value, inv)}, nil
		},
		func(prior []interface{}) (Machine, error) {
			mul := NewMulShareShare(f, cluster, self, b, tuple.R, triple)
			return &revealAfter{inner: mul, innerRounds: 2, f: f, cluster: cluster, self: self}, nil
		},
	)
}

// NewDivShareShare divides two secrets with a secret divisor (spec's
// DIV(share,share)): invert the divisor via NewInvertShare, then a single
// Mul(share·share) against the dividend. Like DIV(share,public), this is
// exact field division — a share of a * b^-1 — not integer floor
// division; callers needing rounded fixed-point semantics compose this
// with TruncPr/Trunc themselves, the same layering the pool-kind table
// keeps DivisionSecretDivisor and TruncPr/Trunc separate for.
func NewDivShareShare(f *field.Field, cluster *party.Cluster, self party.ID, a, b shamir.Share, tuple runtime.DivisorTuple, invertTriple, mulTriple runtime.Triple) Machine {
	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			return results[1], nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewInvertShare(f, cluster, self, b, tuple, invertTriple), nil
		},
		func(prior []interface{}) (Machine, error) {
			invB := prior[0].(shamir.Share)
			return NewMulShareShare(f, cluster, self, a, invB, mulTriple), nil
		},
	)
}

// NewModShareShare computes a - b*(a/b) for a secret divisor, the
// share,share sibling of NewModSharePublic. Since DIV(share,share) above
// is exact field division, this reduces to an identity check rather than
// an integer remainder — it's included for symmetry with the pool-kind
// table's Modulo row, and returns a share of zero whenever b exactly
// divides a in the field, which is DIV(share,share)'s only supported case.
func NewModShareShare(f *field.Field, cluster *party.Cluster, self party.ID, a, b shamir.Share, tuple runtime.DivisorTuple, invertTriple, mulTriple, residueTriple runtime.Triple) Machine {
	return newSequencer(3,
		func(results []interface{}) (interface{}, error) {
			return results[2], nil
		},
		func(prior []interface{}) (Machine, error) {
			return NewInvertShare(f, cluster, self, b, tuple, invertTriple), nil
		},
		func(prior []interface{}) (Machine, error) {
			invB := prior[0].(shamir.Share)
			return NewMulShareShare(f, cluster, self, a, invB, mulTriple), nil
		},
		func(prior []interface{}) (Machine, error) {
			q := prior[1].(shamir.Share)
			mul := NewMulShareShare(f, cluster, self, b, q, residueTriple)
			return &residueFold{f: f, a: a, mul: mul}, nil
		},
	)
}

// residueFold turns a MulShareShare(b,q) product into a - b*q once the
// multiplication completes.
type residueFold struct {
	f   *field.Field
	a   shamir.Share
	mul Machine
}

func (r *residueFold) Start() ([]OutboundMessage, error)                  { return r.mul.Start() }
func (r *residueFold) Deliver(msg PeerMessage) ([]OutboundMessage, error) { return r.mul.Deliver(msg) }
func (r *residueFold) Status() Status                                    { return r.mul.Status() }
func (r *residueFold) Output() (interface{}, error) {
	out, err := r.mul.Output()
	if err != nil {
		return nil, err
	}
	bq := out.(shamir.Share).Value
	return shamir.Share{Value: r.f.Sub(r.a.Value, bq)}, nil
}
