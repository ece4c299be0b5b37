package statemachine

import (
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// NewRan pops one RandomInteger pool element (spec §4.2 "RAN (random field
// element)"). The correlated randomness itself was produced offline by
// summing independently-Shamir-shared local samples from every party — the
// standard realization of the RAN functionality, given at least one honest
// contributor — so the online protocol is simply reading the pre-generated
// share; no round is needed.
func NewRan(element shamir.Share) Machine { return newLocal(element, nil) }

// NewRanBit pops one RandomBoolean pool element.
func NewRanBit(bit shamir.Share) Machine { return newLocal(bit, nil) }

// NewRanBitwise pops one ℓ-bit RAN-BITWISE element (value share plus its
// per-bit shares).
func NewRanBitwise(r runtime.BitwiseRandom) Machine { return newLocal(r, nil) }

// NewRanQuaternary builds a uniformly random 4-valued (2-bit) shared value
// from two independent RandomBoolean elements: value = 2*hi + lo (the
// supplemented RAN-QUATERNARY of SPEC_FULL.md §4, used by
// QUATERNARY-LESS-THAN).
func NewRanQuaternary(f *field.Field, hi, lo shamir.Share) Machine {
	return newLocal(shamir.Share{Value: f.Add(f.MulScalar(hi.Value, 2), lo.Value)}, nil)
}

// NewInvRan realises INV-RAN: sample two independent RAN elements r1, r2,
// reveal their product; if the product is zero (negligible probability)
// abort so the caller retries with fresh randomness; otherwise every party
// locally computes [r2] * (product)^-1 = a share of 1/r1 (spec §4.2
// "INV-RAN (random share with its inverse) — may abort with negligible
// probability").
func NewInvRan(f *field.Field, cluster *party.Cluster, self party.ID, r1, r2 shamir.Share, triple runtime.Triple) Machine {
	return newSequencer(1,
		func(results []interface{}) (interface{}, error) {
			product := results[0].(field.Element)
			if f.IsZero(product) {
				return nil, &AbortError{Protocol: "InvRan", Reason: "sampled product was zero"}
			}
			inv, err := f.Inverse(product)
			if err != nil {
				return nil, &AbortError{Protocol: "InvRan", Reason: err.Error()}
			}
			r1Share := r1
			r1Inv := shamir.Share{Value: f.Mul(r2.Value, inv)}
			return [2]shamir.Share{r1Share, r1Inv}, nil
		},
		func(prior []interface{}) (Machine, error) {
			mul := NewMulShareShare(f, cluster, self, r1, r2, triple)
			// mul is itself a 2-stage, 1-round-per-stage sequencer (rounds
			// 0 and 1), so the chained Reveal's rounds must start at 2 to
			// avoid colliding with mul's own round numbering on the wire.
			return &revealAfter{inner: mul, innerRounds: 2, f: f, cluster: cluster, self: self}, nil
		},
	)
}

// revealAfter chains a sub-machine's share output straight into a Reveal,
// used where a protocol needs to open a just-computed intermediate value
// (e.g. INV-RAN's r1*r2 check) without the caller juggling two separate
// sequencer stages by hand. innerRounds is the number of round slots inner
// occupies, so the chained Reveal's own round-0 messages are offset past
// them instead of colliding with inner's wire round numbers.
type revealAfter struct {
	inner       Machine
	innerRounds int
	f           *field.Field
	cluster     *party.Cluster
	self        party.ID
	reveal      Machine
}

func (r *revealAfter) startReveal(share shamir.Share) ([]OutboundMessage, error) {
	r.reveal = NewReveal(r.f, r.cluster, r.self, share)
	msgs, err := r.reveal.Start()
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Round += r.innerRounds
	}
	return msgs, nil
}

func (r *revealAfter) Start() ([]OutboundMessage, error) {
	msgs, err := r.inner.Start()
	if err != nil {
		return nil, err
	}
	if r.inner.Status() != Done {
		return msgs, nil
	}
	out, err := r.inner.Output()
	if err != nil {
		return msgs, err
	}
	more, err := r.startReveal(out.(shamir.Share))
	if err != nil {
		return nil, err
	}
	return append(msgs, more...), nil
}

func (r *revealAfter) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if r.reveal == nil {
		msgs, err := r.inner.Deliver(msg)
		if err != nil || r.inner.Status() != Done {
			return msgs, err
		}
		out, oerr := r.inner.Output()
		if oerr != nil {
			return msgs, oerr
		}
		more, serr := r.startReveal(out.(shamir.Share))
		if serr != nil {
			return nil, serr
		}
		return append(msgs, more...), nil
	}
	inner := msg
	inner.Round -= r.innerRounds
	if inner.Round < 0 {
		return nil, nil
	}
	msgs, err := r.reveal.Deliver(inner)
	for i := range msgs {
		msgs[i].Round += r.innerRounds
	}
	return msgs, err
}

func (r *revealAfter) Status() Status {
	if r.reveal == nil {
		if r.inner.Status() == Aborted {
			return Aborted
		}
		return Running
	}
	return r.reveal.Status()
}

func (r *revealAfter) Output() (interface{}, error) {
	if r.reveal == nil {
		return nil, ErrNotDone
	}
	return r.reveal.Output()
}
