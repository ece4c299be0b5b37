package ecdsa

import (
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// roundCollector mirrors the unexported collector in internal/statemachine:
// it accumulates one message per peer for a fixed round, discarding a
// duplicate send from the same sender in the same round (spec §4.2 rule 4).
// Kept as a package-local copy since statemachine's own collector isn't
// exported outside that package.
type roundCollector struct {
	round int
	need  map[party.ID]bool
	got   map[party.ID]statemachine.PeerMessage
}

func newCollector(round int, peers []party.ID, self party.ID) *roundCollector {
	need := make(map[party.ID]bool, len(peers))
	for _, p := range peers {
		if p != self {
			need[p] = true
		}
	}
	return &roundCollector{round: round, need: need, got: map[party.ID]statemachine.PeerMessage{}}
}

func (c *roundCollector) accept(msg statemachine.PeerMessage) bool {
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
