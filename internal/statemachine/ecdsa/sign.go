package ecdsa

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// Round offsets for Sign's stage chain. Each is a manually-chosen bound on
// the wire rounds the stage at that offset will ever use (the same
// limitation flagged for internal/statemachine's generic sequencer — see
// DESIGN.md); offsets are spaced generously rather than packed tight.
const (
	signOffsetNonce    = 0
	signOffsetRPoint   = 10
	signOffsetTriple1  = 20
	signOffsetInvert   = 30
	signOffsetTriple2  = 50
	signOffsetMultiply = 70
	signOffsetReveal   = 90
)

type signStage int

const (
	signSamplingNonce signStage = iota
	signBroadcastingR
	signPreppingTriple1
	signInverting
	signPreppingTriple2
	signMultiplying
	signRevealing
	signDone
)

// Signature is the classic ECDSA pair, already normalized to low-S form.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Sign runs ECDSA-SIGN over a message digest already reduced to a scalar,
// given this party's share of the signing key produced by DKG. It
// produces the classic (r,s) pair via the standard Beaver-triple-based
// nonce-inversion technique (Gennaro-Goldfeld / GG18 lineage, the same
// shape CGGMP21 refines with additional zero-knowledge soundness this
// package does not reimplement — see curve.go's package doc).
//
// Every preprocessing element (the nonce pair, both Beaver triples) is
// generated inline rather than drawn from a pre-filled pool: a production
// deployment would consume these from the preprocessing pools spec's
// PREP-* protocols maintain ahead of time so signing itself is a single
// online round; folding generation into the signing run here keeps this
// package self-contained.
type Sign struct {
	f        *field.Field
	cluster  *party.Cluster
	self     party.ID
	keyShare shamir.Share
	msgHash  field.Element

	stage  signStage
	driver *stageDriver

	k, k2   shamir.Share
	triple1 runtime.Triple
	kInv    shamir.Share
	r       field.Element
	triple2 runtime.Triple

	status   statemachine.Status
	output   Signature
	abortErr error
}

// NewSign constructs a fresh signing run. msgHash is the message digest
// already reduced mod the curve order, per ECDSA convention.
func NewSign(f *field.Field, cluster *party.Cluster, self party.ID, keyShare shamir.Share, msgHash field.Element) *Sign {
	return &Sign{f: f, cluster: cluster, self: self, keyShare: keyShare, msgHash: msgHash, stage: signSamplingNonce}
}

func (s *Sign) Start() ([]statemachine.OutboundMessage, error) {
	s.status = statemachine.Running
	s.driver = newStageDriver(statemachine.NewPrepRandomBatch(s.f, s.cluster, s.self, 2), signOffsetNonce)
	return s.driver.start()
}

func (s *Sign) Deliver(msg statemachine.PeerMessage) ([]statemachine.OutboundMessage, error) {
	if s.status != statemachine.Running {
		return nil, nil
	}
	out, done, result, err := s.driver.deliver(msg)
	if err != nil {
		s.abort("Sign", err)
		return nil, nil
	}
	if !done {
		return out, nil
	}
	return s.advance(out, result)
}

// advance consumes the completed stage's result, transitions to the next
// stage, and starts it, appending its outbound messages to out.
func (s *Sign) advance(out []statemachine.OutboundMessage, result interface{}) ([]statemachine.OutboundMessage, error) {
	switch s.stage {
	case signSamplingNonce:
		batch := result.([]shamir.Share)
		s.k, s.k2 = batch[0], batch[1]
		s.stage = signBroadcastingR
		s.driver = newStageDriver(newECPointBroadcast(s.f, s.cluster, s.self, s.k), signOffsetRPoint)

	case signBroadcastingR:
		rPoint := result.(*secp256k1.JacobianPoint)
		xb := rPoint.X.Bytes()
		s.r = s.f.Elem(new(big.Int).SetBytes(xb[:]))
		s.stage = signPreppingTriple1
		s.driver = newStageDriver(statemachine.NewPrepTriple(s.f, s.cluster, s.self), signOffsetTriple1)

	case signPreppingTriple1:
		s.triple1 = result.(runtime.Triple)
		s.stage = signInverting
		s.driver = newStageDriver(statemachine.NewInvRan(s.f, s.cluster, s.self, s.k, s.k2, s.triple1), signOffsetInvert)

	case signInverting:
		pair := result.([2]shamir.Share)
		s.kInv = pair[1]
		s.stage = signPreppingTriple2
		s.driver = newStageDriver(statemachine.NewPrepTriple(s.f, s.cluster, s.self), signOffsetTriple2)

	case signPreppingTriple2:
		s.triple2 = result.(runtime.Triple)
		tShare := shamir.Share{Value: s.f.Add(s.msgHash, s.f.Mul(s.r, s.keyShare.Value))}
		s.stage = signMultiplying
		s.driver = newStageDriver(statemachine.NewMulShareShare(s.f, s.cluster, s.self, s.kInv, tShare, s.triple2), signOffsetMultiply)

	case signMultiplying:
		sigShare := result.(shamir.Share)
		s.stage = signRevealing
		s.driver = newStageDriver(statemachine.NewReveal(s.f, s.cluster, s.self, sigShare), signOffsetReveal)

	case signRevealing:
		sVal := result.(field.Element)
		s.output = normalizeSignature(s.r, sVal)
		s.stage = signDone
		s.status = statemachine.Done
		return out, nil

	default:
		return out, fmt.Errorf("ecdsa: Sign advanced past its final stage")
	}

	more, err := s.driver.start()
	if err != nil {
		s.abort("Sign", err)
		return out, nil
	}
	return append(out, more...), nil
}

func (s *Sign) abort(protocol string, err error) {
	s.status = statemachine.Aborted
	s.abortErr = &statemachine.AbortError{Protocol: protocol, Reason: err.Error()}
}

// normalizeSignature enforces the low-S convention: a signature (r,s) and
// (r,n-s) both verify, so canonical ECDSA implementations always publish
// the smaller of the two to prevent trivial signature malleability.
func normalizeSignature(r, sElem field.Element) Signature {
	n := curveOrder
	s := sElem.BigInt()
	half := new(big.Int).Rsh(n, 1)
	if s.Cmp(half) > 0 {
		s = new(big.Int).Sub(n, s)
	}
	return Signature{R: r.BigInt(), S: s}
}

func (s *Sign) Status() statemachine.Status { return s.status }

func (s *Sign) Output() (interface{}, error) {
	if s.status == statemachine.Aborted {
		return nil, s.abortErr
	}
	if s.status != statemachine.Done {
		return nil, statemachine.ErrNotDone
	}
	return s.output, nil
}
