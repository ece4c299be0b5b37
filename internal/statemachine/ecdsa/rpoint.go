package ecdsa

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// ecPointBroadcast derives the public nonce point R=k*G from a Shamir
// share of k, by broadcasting each party's own R_i=k_i*G and combining
// them over the curve with the public Lagrange-at-zero weights — the
// same trick that reconstructs a secret from its shares, run on curve
// points instead of field elements so k itself is never revealed.
type ecPointBroadcast struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID
	kShare  shamir.Share

	localR    *secp256k1.JacobianPoint
	collector *roundCollector
	points    map[party.ID]*secp256k1.JacobianPoint

	status   statemachine.Status
	output   *secp256k1.JacobianPoint
	abortErr error
}

func newECPointBroadcast(f *field.Field, cluster *party.Cluster, self party.ID, kShare shamir.Share) *ecPointBroadcast {
	return &ecPointBroadcast{f: f, cluster: cluster, self: self, kShare: kShare}
}

func (e *ecPointBroadcast) Start() ([]statemachine.OutboundMessage, error) {
	e.status = statemachine.Running
	e.localR = scalarBaseMult(scalarFromElement(e.kShare.Value))
	e.collector = newCollector(0, peerIDs(e.cluster), e.self)
	e.points = map[party.ID]*secp256k1.JacobianPoint{e.self: e.localR}
	return []statemachine.OutboundMessage{{Round: 0, Tag: statemachine.TagPoint, Body: encodePoint(e.localR)}}, nil
}

func (e *ecPointBroadcast) Deliver(msg statemachine.PeerMessage) ([]statemachine.OutboundMessage, error) {
	if e.status != statemachine.Running {
		return nil, nil
	}
	if msg.Tag != statemachine.TagPoint {
		return nil, fmt.Errorf("ecdsa: ecPointBroadcast got unexpected tag %d", msg.Tag)
	}
	if !e.collector.accept(msg) {
		return nil, nil
	}
	p, err := decodePoint(msg.Body)
	if err != nil {
		return nil, err
	}
	e.points[msg.From] = p
	if !e.collector.complete() {
		return nil, nil
	}

	weights, err := lagrangeAtZeroWeights(e.f, e.cluster)
	if err != nil {
		return nil, err
	}
	var combined *secp256k1.JacobianPoint
	for id, p := range e.points {
		term := scalarMultPoint(scalarFromElement(weights[id]), p)
		if combined == nil {
			combined = term
		} else {
			combined = addPoints(combined, term)
		}
	}
	e.output = combined
	e.status = statemachine.Done
	return nil, nil
}

func (e *ecPointBroadcast) Status() statemachine.Status { return e.status }

func (e *ecPointBroadcast) Output() (interface{}, error) {
	if e.status == statemachine.Aborted {
		return nil, e.abortErr
	}
	if e.status != statemachine.Done {
		return nil, statemachine.ErrNotDone
	}
	return e.output, nil
}
