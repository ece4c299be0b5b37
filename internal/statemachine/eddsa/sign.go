package eddsa

import (
	"fmt"

	"filippo.io/edwards25519"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/shamir"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// Round offsets for Sign's stage chain (see internal/statemachine/ecdsa.Sign
// for the same manually-chosen-bound rationale).
const (
	signOffsetNonce    = 0
	signOffsetCommit   = 10
	signOffsetRespond  = 20
)

type signStage int

const (
	signSamplingNonce signStage = iota
	signCommitting
	signResponding
	signDone
)

// Signature is a standard EdDSA pair: a compressed curve point R and a
// scalar z such that z*G = R + c*PublicKey, c the transcript challenge.
type Signature struct {
	R *edwards25519.Point
	Z *edwards25519.Scalar
}

type commitment struct {
	D, E *edwards25519.Point
}

func encodeCommitment(c commitment) []byte {
	out := make([]byte, 0, 64)
	out = append(out, c.D.Bytes()...)
	out = append(out, c.E.Bytes()...)
	return out
}

func decodeCommitment(body []byte) (commitment, error) {
	if len(body) < 64 {
		return commitment{}, fmt.Errorf("eddsa: commitment payload too short")
	}
	d, err := edwards25519.NewIdentityPoint().SetBytes(body[:32])
	if err != nil {
		return commitment{}, fmt.Errorf("eddsa: commitment D invalid: %w", err)
	}
	e, err := edwards25519.NewIdentityPoint().SetBytes(body[32:64])
	if err != nil {
		return commitment{}, fmt.Errorf("eddsa: commitment E invalid: %w", err)
	}
	return commitment{D: d, E: e}, nil
}

// Sign runs EDDSA-SIGN: a FROST two-round threshold signature over msg,
// given this party's share of the signing key (from DKG) and the group's
// combined public key.
//
// Round 1 ("commit"): every party samples a fresh nonce pair (d,e) and
// broadcasts D=d*G, E=e*G. Once every commitment has arrived, each party
// derives the FROST binding factors, the group commitment R, and the
// transcript challenge c purely locally, then computes its own response
// share z_i = d_i + e_i*rho_i + c*lambda_i*s_i.
//
// Round 2 ("respond"): every party broadcasts z_i; once all have arrived,
// z = sum_i z_i is the final signature scalar — FROST bakes each signer's
// Lagrange coefficient into z_i during round 1, so no further combination
// step is needed after summing.
type Sign struct {
	f         *field.Field
	cluster   *party.Cluster
	self      party.ID
	keyShare  shamir.Share
	publicKey *edwards25519.Point
	msg       []byte

	stage  signStage
	driver *stageDriver

	d, e shamir.Share

	commitCollector *roundCollector
	commitments     map[party.ID]commitment
	localZ          *edwards25519.Scalar
	groupR          *edwards25519.Point

	responseCollector *roundCollector
	responses         map[party.ID]*edwards25519.Scalar

	status   statemachine.Status
	output   Signature
	abortErr error
}

func NewSign(f *field.Field, cluster *party.Cluster, self party.ID, keyShare shamir.Share, publicKey *edwards25519.Point, msg []byte) *Sign {
	return &Sign{f: f, cluster: cluster, self: self, keyShare: keyShare, publicKey: publicKey, msg: msg, stage: signSamplingNonce}
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
	switch s.stage {
	case signSamplingNonce:
		out, done, result, err := s.driver.deliver(msg)
		if err != nil {
			s.abort(err)
			return nil, nil
		}
		if !done {
			return out, nil
		}
		batch := result.([]shamir.Share)
		s.d, s.e = batch[0], batch[1]
		s.stage = signCommitting
		s.commitCollector = newCollector(0, peerIDs(s.cluster), s.self)
		s.commitments = map[party.ID]commitment{}
		own := commitment{D: scalarBaseMult(scalarFromElement(s.d.Value)), E: scalarBaseMult(scalarFromElement(s.e.Value))}
		s.commitments[s.self] = own
		own0 := statemachine.OutboundMessage{Round: signOffsetCommit, Tag: statemachine.TagPoint, Body: encodeCommitment(own)}
		return append(out, own0), nil

	case signCommitting:
		inner := msg
		inner.Round -= signOffsetCommit
		if inner.Round != 0 {
			return nil, nil
		}
		adjusted := msg
		adjusted.Round = 0
		if !s.commitCollector.accept(adjusted) {
			return nil, nil
		}
		c, err := decodeCommitment(msg.Body)
		if err != nil {
			s.abort(err)
			return nil, nil
		}
		s.commitments[msg.From] = c
		if !s.commitCollector.complete() {
			return nil, nil
		}
		if err := s.computeResponse(); err != nil {
			s.abort(err)
			return nil, nil
		}
		s.stage = signResponding
		s.responseCollector = newCollector(0, peerIDs(s.cluster), s.self)
		s.responses = map[party.ID]*edwards25519.Scalar{s.self: s.localZ}
		out := statemachine.OutboundMessage{Round: signOffsetRespond, Tag: statemachine.TagField, Body: s.localZ.Bytes()}
		return []statemachine.OutboundMessage{out}, nil

	case signResponding:
		adjusted := msg
		adjusted.Round -= signOffsetRespond
		if adjusted.Round != 0 {
			return nil, nil
		}
		collectorMsg := adjusted
		collectorMsg.Round = 0
		if !s.responseCollector.accept(collectorMsg) {
			return nil, nil
		}
		z, err := edwards25519.NewScalar().SetCanonicalBytes(msg.Body)
		if err != nil {
			s.abort(fmt.Errorf("eddsa: response scalar invalid: %w", err))
			return nil, nil
		}
		s.responses[msg.From] = z
		if !s.responseCollector.complete() {
			return nil, nil
		}
		total := edwards25519.NewScalar()
		for _, z := range s.responses {
			total.Add(total, z)
		}
		s.output = Signature{R: s.groupR, Z: total}
		s.stage = signDone
		s.status = statemachine.Done
		return nil, nil

	default:
		return nil, nil
	}
}

// computeResponse derives the per-signer binding factors, the group
// commitment R, the transcript challenge c, and this party's response
// share, once every round-1 commitment has arrived.
func (s *Sign) computeResponse() error {
	weights, err := lagrangeAtZeroWeights(s.f, s.cluster)
	if err != nil {
		return err
	}

	var groupR *edwards25519.Point
	bindings := make(map[party.ID]*edwards25519.Scalar, len(s.commitments))
	for id, c := range s.commitments {
		rho := hashToScalar("frost-binding", []byte(id), s.msg, encodeCommitment(c))
		bindings[id] = rho
		term := addPoints(c.D, scalarMultPoint(rho, c.E))
		if groupR == nil {
			groupR = term
		} else {
			groupR = addPoints(groupR, term)
		}
	}
	s.groupR = groupR

	challenge := hashToScalar("frost-challenge", groupR.Bytes(), s.publicKey.Bytes(), s.msg)

	lambda := scalarFromElement(weights[s.self])
	sShare := scalarFromElement(s.keyShare.Value)
	rho := bindings[s.self]

	z := edwards25519.NewScalar()
	z.MultiplyAdd(rho, scalarFromElement(s.e.Value), scalarFromElement(s.d.Value))
	keyTerm := edwards25519.NewScalar().Multiply(challenge, lambda)
	keyTerm.Multiply(keyTerm, sShare)
	z.Add(z, keyTerm)
	s.localZ = z
	return nil
}

// Verify checks a completed Signature against the signed message and the
// cluster's combined public key, using the same transcript-challenge
// construction computeResponse used to produce it.
func Verify(publicKey *edwards25519.Point, msg []byte, sig Signature) bool {
	c := hashToScalar("frost-challenge", sig.R.Bytes(), publicKey.Bytes(), msg)
	lhs := scalarBaseMult(sig.Z)
	rhs := addPoints(sig.R, scalarMultPoint(c, publicKey))
	return lhs.Equal(rhs) == 1
}

func (s *Sign) abort(err error) {
	s.status = statemachine.Aborted
	s.abortErr = &statemachine.AbortError{Protocol: "Sign", Reason: err.Error()}
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
