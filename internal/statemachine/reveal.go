package statemachine

import (
	"errors"
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// ErrReconstructionFailed mirrors shamir.ErrReconstructionFailed at the
// protocol layer (spec §4.2 "REVEAL ... Fails with ReconstructionFailed if
// decoding does not return a unique polynomial").
var ErrReconstructionFailed = errors.New("statemachine: reconstruction failed")

// Reveal opens one share to every party (spec §4.2 "REVEAL"). Each party
// broadcasts its own share in round 0; once n−t shares (the robust
// reconstruction floor) have arrived, Gao decoding recovers the element,
// correcting up to cluster.MaxCorruptions() faulty shares.
type Reveal struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	share   shamir.Share

	collector *roundCollector
	status    Status
	output    field.Element
	abortErr  error
}

// NewReveal constructs a Reveal instance for self's share of the value
// being opened.
func NewReveal(f *field.Field, cluster *party.Cluster, self party.ID, share shamir.Share) *Reveal {
	peers := make([]party.ID, 0, cluster.N())
	for _, p := range cluster.Parties() {
		peers = append(peers, p.ID)
	}
	return &Reveal{
		f:         f,
		cluster:   cluster,
		self:      self,
		share:     share,
		collector: newRoundCollector(0, peers, self),
		status:    Running,
	}
}

func (r *Reveal) Start() ([]OutboundMessage, error) {
	return []OutboundMessage{{Round: 0, Tag: TagShare, Body: EncodeShare(r.f, r.share)}}, nil
}

func (r *Reveal) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if r.status != Running {
		return nil, nil
	}
	if msg.Tag != TagShare {
		return nil, fmt.Errorf("statemachine: Reveal got unexpected tag %d", msg.Tag)
	}
	if !r.collector.accept(msg) {
		return nil, nil // duplicate or stray message, discarded per spec §4.2 rule 4
	}

	needed := r.cluster.N() - r.cluster.Threshold()
	if len(r.collector.got) < needed {
		return nil, nil
	}

	points := make([]shamir.Point, 0, len(r.collector.got)+1)
	selfX, err := r.cluster.AbscissaElem(r.f, r.self)
	if err != nil {
		return nil, err
	}
	points = append(points, shamir.Point{X: selfX, Y: r.share.Value})
	for from, m := range r.collector.got {
		x, err := r.cluster.AbscissaElem(r.f, from)
		if err != nil {
			return nil, err
		}
		sh, err := DecodeShare(r.f, m.Body)
		if err != nil {
			return nil, err
		}
		points = append(points, shamir.Point{X: x, Y: sh.Value})
	}

	elem, err := shamir.ReconstructRobust(r.f, points, r.cluster.Threshold())
	if err != nil {
		if r.collector.complete() {
			r.status = Aborted
			r.abortErr = &AbortError{Protocol: "Reveal", Reason: err.Error()}
			return nil, nil
		}
		// Not enough shares yet to guarantee robustness; wait for more.
		return nil, nil
	}
	r.output = elem
	r.status = Done
	return nil, nil
}

func (r *Reveal) Status() Status { return r.status }

func (r *Reveal) Output() (interface{}, error) {
	if r.status == Aborted {
		return nil, r.abortErr
	}
	if r.status != Done {
		return nil, ErrNotDone
	}
	return r.output, nil
}
