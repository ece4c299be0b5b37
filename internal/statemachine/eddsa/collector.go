package eddsa

import (
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// roundCollector mirrors internal/statemachine's own private collector
// (and its copy in internal/statemachine/ecdsa): one message per peer per
// round, duplicates from an already-seen sender discarded (spec §4.2
// rule 4).
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

func peerIDs(cluster *party.Cluster) []party.ID {
	ps := cluster.Parties()
	out := make([]party.ID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
