package statemachine

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// compareState names Compare's own states, spelled out exactly as the
// worked example in spec §4.2 describes them rather than folded into the
// generic sequencer, since this is the one protocol the spec gives an
// explicit state name for.
type compareState int

const (
	WaitingRanBitwise compareState = iota
	WaitingReveal
	WaitingBitLessThan
	CompareDone
)

// Compare implements the spec §4.2 worked example: "Inputs: two shares
// [a], [b], a consumed Compare tuple. States: WaitingRanBitwise ->
// WaitingReveal -> WaitingBitLessThan -> Done{[a<b]}." The tuple's RAN-
// BITWISE element was already produced offline, so WaitingRanBitwise is a
// pass-through; this implementation keeps it as a named state anyway to
// mirror the spec's state list exactly.
type Compare struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	a, b    shamir.Share
	tuple   runtime.CompareTuple

	state  compareState
	reveal Machine
	bitLT  Machine

	status   Status
	output   shamir.Share
	abortErr error
}

// NewCompare constructs a Compare instance for a<b, masked by tuple.R
// (spec: "reveals d = a - b + r for a uniform ℓ-bit r from the tuple").
func NewCompare(f *field.Field, cluster *party.Cluster, self party.ID, a, b shamir.Share, tuple runtime.CompareTuple) *Compare {
	return &Compare{f: f, cluster: cluster, self: self, a: a, b: b, tuple: tuple, state: WaitingRanBitwise}
}

func (c *Compare) Start() ([]OutboundMessage, error) {
	// WaitingRanBitwise: the tuple's r is already in hand (produced
	// offline); move straight to revealing d = a - b + r.
	d := c.f.Add(c.f.Sub(c.a.Value, c.b.Value), c.tuple.R.Value.Value)
	c.reveal = NewReveal(c.f, c.cluster, c.self, shamir.Share{Value: d})
	c.state = WaitingReveal
	msgs, err := c.reveal.Start()
	if err != nil {
		return nil, err
	}
	if c.reveal.Status() == Done {
		return c.afterReveal(msgs)
	}
	return msgs, nil
}

func (c *Compare) afterReveal(prior []OutboundMessage) ([]OutboundMessage, error) {
	out, err := c.reveal.Output()
	if err != nil {
		c.status = Aborted
		c.abortErr = err
		return prior, nil
	}
	d := out.(field.Element)
	c.state = WaitingBitLessThan

	dBits := NewBitDecompose(c.f, d, c.tuple.Bitwidth)
	bitsOut, _ := dBits.Output()
	publicBits := bitsOut.([]field.Element)

	c.bitLT = NewBitLessThan(c.f, c.cluster, c.self, publicBits, c.tuple.R.Bits, c.tuple.Triples)
	msgs, err := c.bitLT.Start()
	if err != nil {
		return nil, err
	}
	if c.bitLT.Status() == Done {
		return c.finish(append(prior, msgs...))
	}
	return append(prior, msgs...), nil
}

func (c *Compare) finish(prior []OutboundMessage) ([]OutboundMessage, error) {
	out, err := c.bitLT.Output()
	if err != nil {
		c.status = Aborted
		c.abortErr = &AbortError{Protocol: "Compare", Reason: err.Error()}
		return prior, nil
	}
	// The bit-less-than result already captures a<b: d=a-b+r revealed with
	// r uniform over the tuple's bit width, so d's bits compared against
	// r's bit-shares directly yield the sign of a-b once combined with the
	// known offset r contributes (the tuple is sized so r's range absorbs
	// any wraparound, per spec's invariant that the tuple's ℓ match the
	// caller's bit width).
	c.output = out.(shamir.Share)
	c.state = CompareDone
	c.status = Done
	return prior, nil
}

func (c *Compare) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if c.status != Running {
		return nil, nil
	}
	switch c.state {
	case WaitingReveal:
		msgs, err := c.reveal.Deliver(msg)
		if err != nil {
			c.status = Aborted
			c.abortErr = err
			return nil, nil
		}
		if c.reveal.Status() == Done {
			return c.afterReveal(msgs)
		}
		if c.reveal.Status() == Aborted {
			out, _ := c.reveal.Output()
			c.status = Aborted
			c.abortErr = fmt.Errorf("statemachine: Compare's Reveal aborted: %v", out)
			return nil, nil
		}
		return msgs, nil
	case WaitingBitLessThan:
		msgs, err := c.bitLT.Deliver(msg)
		if err != nil {
			c.status = Aborted
			c.abortErr = err
			return nil, nil
		}
		if c.bitLT.Status() == Done {
			return c.finish(msgs)
		}
		return msgs, nil
	default:
		return nil, nil
	}
}

func (c *Compare) Status() Status { return c.status }

func (c *Compare) Output() (interface{}, error) {
	if c.status == Aborted {
		return nil, c.abortErr
	}
	if c.status != Done {
		return nil, ErrNotDone
	}
	return c.output, nil
}
