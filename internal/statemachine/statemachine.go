// Package statemachine implements the sub-protocol family: deterministic,
// restartable round automata over Shamir shares in ℤ_P (spec §4.2). Every
// protocol here is constructed with its inputs fixed (shares, public
// constants, consumed preprocessing elements), is driven by Start/Deliver,
// and terminates in Done (with a typed output) or Aborted.
package statemachine

import (
	"errors"
	"fmt"

	"github.com/nilmpc/mpcnode/internal/party"
)

// Status is a machine's coarse lifecycle position.
type Status int

const (
	Running Status = iota
	Done
	Aborted
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Done:
		return "Done"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ErrAbort is the sentinel wrapped by every protocol-specific abort reason,
// so callers can use errors.Is(err, ErrAbort) without knowing which
// protocol produced it.
var ErrAbort = errors.New("statemachine: aborted")

// AbortError names why a machine aborted (spec §4.2 "typed output ... or an
// explicit Abort{reason} terminal").
type AbortError struct {
	Protocol string
	Reason   string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("statemachine: %s aborted: %s", e.Protocol, e.Reason)
}

func (e *AbortError) Unwrap() error { return ErrAbort }

// ErrNotDone is returned by Output when called before the machine reaches
// Done.
var ErrNotDone = errors.New("statemachine: output requested before Done")

// Tag identifies the payload shape of a message, carried on the wire so a
// receiver can reject malformed or unexpected encodings outright (spec §4.2
// rule 3: "carry an explicit encoding tag byte; receivers reject unknown
// tags").
type Tag byte

const (
	TagShare Tag = iota + 1
	TagField
	TagBit
	TagCommitment
	TagSignatureShare
	TagPoint
)

// PeerMessage is one inbound, already-demultiplexed message for a single
// machine instance (the executor has already matched it to
// (computation_id, protocol_address, round)).
type PeerMessage struct {
	From  party.ID
	Round int
	Tag   Tag
	Body  []byte
}

// OutboundMessage is emitted by a machine for the executor to transmit. An
// empty To means "broadcast to every peer".
type OutboundMessage struct {
	To    party.ID
	Round int
	Tag   Tag
	Body  []byte
}

// Machine is the common contract every sub-protocol implements (spec §4.2).
type Machine interface {
	// Start returns this instance's round-0 outbound messages, if any.
	// Local/zero-round machines (Add, Sub, Mul(share·public), ...) do all
	// their work here and return Status()==Done immediately.
	Start() ([]OutboundMessage, error)

	// Deliver feeds one already-deduplicated peer message and returns any
	// outbound messages the delivery triggers (entering the next round).
	// Deliver is never called once Status() != Running.
	Deliver(msg PeerMessage) ([]OutboundMessage, error)

	Status() Status

	// Output returns the terminal value once Status()==Done; otherwise
	// ErrNotDone.
	Output() (interface{}, error)
}

// roundCollector accumulates messages for the current round from a fixed
// peer set, discarding a second message from the same sender in the same
// round (spec §4.2 rule 4: "duplicate messages from a peer in the same
// round are discarded after the first").
type roundCollector struct {
	round   int
	need    map[party.ID]bool // peers this round still waits on
	got     map[party.ID]PeerMessage
}

func newRoundCollector(round int, peers []party.ID, self party.ID) *roundCollector {
	need := make(map[party.ID]bool, len(peers))
	for _, p := range peers {
		if p != self {
			need[p] = true
		}
	}
	return &roundCollector{round: round, need: need, got: map[party.ID]PeerMessage{}}
}

// accept records msg if it is for this round, from an expected peer, and
// not already received; returns false (ignored, not an error) otherwise.
func (c *roundCollector) accept(msg PeerMessage) bool {
	if msg.Round != c.round {
		return false
	}
	if !c.need[msg.From] {
		return false
	}
	if _, dup := c.got[msg.From]; dup {
		return false
	}
	c.got[msg.From] = msg
	return true
}

func (c *roundCollector) complete() bool { return len(c.got) == len(c.need) }

func (c *roundCollector) messages() []PeerMessage {
	out := make([]PeerMessage, 0, len(c.got))
	for _, m := range c.got {
		out = append(out, m)
	}
	return out
}
