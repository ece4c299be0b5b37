package ecdsa

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/zeebo/blake3"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// Output is the joint result of a successful DKG run: this party's share
// of the combined private key, and the combined public key every party
// can independently verify.
type Output struct {
	KeyShare  shamir.Share
	PublicKey *secp256k1.JacobianPoint
}

// dkgState names DKG's round structure (original_source's dkg/mod.rs:
// "commit -> reveal -> verify -> combine").
type dkgState int

const (
	dkgWaitingCommit dkgState = iota
	dkgWaitingReveal
	dkgDone
)

// DKG runs the joint key-generation round: every party commits to a
// random public point Y_i=x_i*G, then reveals Y_i alongside a Shamir
// sub-share of x_i for every peer. The commit-then-reveal order prevents
// a rushing adversary from choosing its own Y_i as a function of the
// others' (the standard "rogue key" defence for Joint-Feldman-style DKG).
//
// This implementation does not additionally verify each received
// sub-share against a Feldman (per-coefficient) commitment to the sharing
// polynomial — only the combined public point Y_i is committed and
// verified. A fully Byzantine-robust DKG would also let every recipient
// verify its sub-share against published commitments to each polynomial
// coefficient; omitted here, see DESIGN.md.
type DKG struct {
	f       *field.Field
	cluster *party.Cluster
	self    party.ID

	state dkgState

	localX    field.Element
	localY    *secp256k1.JacobianPoint
	subShares map[party.ID]shamir.Share

	commitCollector *roundCollector
	revealCollector *roundCollector

	commitments map[party.ID][32]byte

	status   statemachine.Status
	output   Output
	abortErr error
}

// NewDKG constructs a fresh DKG instance for self.
func NewDKG(f *field.Field, cluster *party.Cluster, self party.ID) *DKG {
	return &DKG{f: f, cluster: cluster, self: self, state: dkgWaitingCommit}
}

func peerIDs(cluster *party.Cluster) []party.ID {
	ps := cluster.Parties()
	out := make([]party.ID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func commitHash(y *secp256k1.JacobianPoint, self party.ID) [32]byte {
	h := blake3.New()
	_, _ = h.Write(y.X.Bytes()[:])
	_, _ = h.Write(y.Y.Bytes()[:])
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

func encodePointShare(f *field.Field, y *secp256k1.JacobianPoint, sh shamir.Share) []byte {
	xb := y.X.Bytes()
	yb := y.Y.Bytes()
	body := make([]byte, 0, 64+f.ByteWidth()+4)
	body = append(body, xb[:]...)
	body = append(body, yb[:]...)
	body = append(body, statemachine.EncodeShare(f, sh)...)
	return body
}

func decodePointShare(f *field.Field, body []byte) (*secp256k1.JacobianPoint, shamir.Share, error) {
	if len(body) < 64 {
		return nil, shamir.Share{}, fmt.Errorf("ecdsa: DKG reveal payload too short")
	}
	var x, y secp256k1.FieldVal
	x.SetByteSlice(body[:32])
	y.SetByteSlice(body[32:64])
	p := &secp256k1.JacobianPoint{X: x, Y: y, Z: *new(secp256k1.FieldVal).SetInt(1)}
	sh, err := statemachine.DecodeShare(f, body[64:])
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
			return nil, fmt.Errorf("ecdsa: DKG got unexpected tag %d waiting for commitments", msg.Tag)
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
			return nil, fmt.Errorf("ecdsa: DKG got unexpected tag %d waiting for reveals", msg.Tag)
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
		combinedY := addPoints(d.localY, y)
		d.localY = combinedY
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
