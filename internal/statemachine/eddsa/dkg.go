package eddsa

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/zeebo/blake3"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// Output is the joint result of a successful DKG run: this party's share
// of the combined signing key and the combined public key, mirroring
// internal/statemachine/ecdsa.DKG's output shape over the Edwards curve
// instead of secp256k1.
type Output struct {
	KeyShare  shamir.Share
	PublicKey *edwards25519.Point
}

type dkgState int

const (
	dkgWaitingCommit dkgState = iota
	dkgWaitingReveal
	dkgDone
)

// DKG runs joint key generation for threshold EdDSA: commit to a random
// public point Y_i=x_i*G, then reveal Y_i alongside a Shamir sub-share of
// x_i for every peer, same commit-before-reveal shape as the ECDSA DKG
// (see internal/statemachine/ecdsa.DKG's doc comment for the rogue-key
// rationale and the Feldman-verification simplification this shares).
type DKG struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID

	state dkgState

	localX    field.Element
	localY    *edwards25519.Point
	subShares map[party.ID]shamir.Share

	commitCollector *roundCollector
	revealCollector *roundCollector

	commitments map[party.ID][32]byte

	status   statemachine.Status
	output   Output
	abortErr error
}

func NewDKG(f *field.Field, cluster *party.Cluster, self party.ID) *DKG {
	return &DKG{f: f, cluster: cluster, self: self, state: dkgWaitingCommit}
}

func commitHash(y *edwards25519.Point, self party.ID) [32]byte {
	h := blake3.New()
	_, _ = h.Write(y.Bytes())
	_, _ = h.Write([]byte(self))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (d *DKG) Start() ([]statemachine.OutboundMessage, error) {
	d.status = statemachine.Running
	var err error
	d.localX, err = d.f.Random()
	if err != nil {
		return nil, err
	}
	d.localY = scalarBaseMult(scalarFromElement(d.localX))

	d.subShares, err = shamir.Split(d.f, d.cluster, d.localX)
	if err != nil {
		return nil, err
	}

	peers := peerIDs(d.cluster)
	d.commitCollector = newCollector(0, peers, d.self)
	d.revealCollector = newCollector(1, peers, d.self)
	d.commitments = map[party.ID][32]byte{}

	commitment := commitHash(d.localY, d.self)
	return []statemachine.OutboundMessage{{Round: 0, Tag: statemachine.TagCommitment, Body: commitment[:]}}, nil
}

func encodePointShare(f *field.Field, y *edwards25519.Point, sh shamir.Share) []byte {
	body := make([]byte, 0, 32+f.ByteWidth()+4)
	body = append(body, y.Bytes()...)
	body = append(body, statemachine.EncodeShare(f, sh)...)
	return body
}

func decodePointShare(f *field.Field, body []byte) (*edwards25519.Point, shamir.Share, error) {
	if len(body) < 32 {
		return nil, shamir.Share{}, fmt.Errorf("eddsa: DKG reveal payload too short")
	}
	p, err := edwards25519.NewIdentityPoint().SetBytes(body[:32])
	if err != nil {
		return nil, shamir.Share{}, fmt.Errorf("eddsa: DKG reveal point invalid: %w", err)
	}
	sh, err := statemachine.DecodeShare(f, body[32:])
	if err != nil {
		return nil, shamir.Share{}, err
	}
	return p, sh, nil
}

func (d *DKG) Deliver(msg statemachine.PeerMessage) ([]statemachine.OutboundMessage, error) {
	if d.status != statemachine.Running {
		return nil, nil
	}
	switch d.state {
	case dkgWaitingCommit:
		if msg.Tag != statemachine.TagCommitment {
			return nil, fmt.Errorf("eddsa: DKG got unexpected tag %d waiting for commitments", msg.Tag)
		}
		if !d.commitCollector.accept(msg) {
			return nil, nil
		}
		var c [32]byte
		copy(c[:], msg.Body)
		d.commitments[msg.From] = c
		if !d.commitCollector.complete() {
			return nil, nil
		}
		d.state = dkgWaitingReveal
		var msgs []statemachine.OutboundMessage
		for id, sh := range d.subShares {
			if id == d.self {
				continue
			}
			msgs = append(msgs, statemachine.OutboundMessage{To: id, Round: 1, Tag: statemachine.TagPoint, Body: encodePointShare(d.f, d.localY, sh)})
		}
		return msgs, nil
	case dkgWaitingReveal:
		if msg.Tag != statemachine.TagPoint {
			return nil, fmt.Errorf("eddsa: DKG got unexpected tag %d waiting for reveals", msg.Tag)
		}
		if !d.revealCollector.accept(msg) {
			return nil, nil
		}
		y, sh, err := decodePointShare(d.f, msg.Body)
		if err != nil {
			return nil, err
		}
		if commitHash(y, msg.From) != d.commitments[msg.From] {
			d.status = statemachine.Aborted
			d.abortErr = &statemachine.AbortError{Protocol: "DKG", Reason: fmt.Sprintf("commitment mismatch from %s", msg.From)}
			return nil, nil
		}
		d.localY = addPoints(d.localY, y)
		keyShare := d.f.Add(d.subShares[d.self].Value, sh.Value)
		d.subShares[d.self] = shamir.Share{Value: keyShare}
		if !d.revealCollector.complete() {
			return nil, nil
		}
		d.output = Output{KeyShare: d.subShares[d.self], PublicKey: d.localY}
		d.state = dkgDone
		d.status = statemachine.Done
		return nil, nil
	default:
		return nil, nil
	}
}

func (d *DKG) Status() statemachine.Status { return d.status }

func (d *DKG) Output() (interface{}, error) {
	if d.status == statemachine.Aborted {
		return nil, d.abortErr
	}
	if d.status != statemachine.Done {
		return nil, statemachine.ErrNotDone
	}
	return d.output, nil
}
