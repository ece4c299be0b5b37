package ecdsa

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// auxInfoPrimeBits is the bit length of each Paillier prime factor. CGGMP21
// itself uses 1536-bit primes per factor (SecurityLevel128); this is
// deliberately smaller to keep devnet key generation fast — this package
// never claims the 128-bit security level original_source's cggmp21
// dependency targets, see DESIGN.md.
const auxInfoPrimeBits = 512

// PartyAux is one party's published auxiliary material: a Paillier-like
// modulus N=p*q (the secret factors are never sent) plus Pedersen
// commitment parameters (s,t) over that same modulus, mirroring
// original_source's PartyAux/DirtyAuxInfo shape without its accompanying
// zero-knowledge well-formedness proofs (s=t^lambda mod N for a secret
// lambda, Paillier-N-blum-ness, ring-Pedersen soundness) — see DESIGN.md.
type PartyAux struct {
	N *big.Int
	S *big.Int
	T *big.Int
}

// AuxInfo is the joint output of a successful ECDSA-AUX-INFO run: every
// party's published auxiliary material, indexed by ID, plus this party's
// own secret factors (needed later by a full CGGMP21 signing round; the
// simplified ECDSA-SIGN in sign.go does not consume them but they are
// still produced to keep this round's output shape faithful).
type AuxInfo struct {
	Parties map[party.ID]PartyAux
	LocalP  *big.Int
	LocalQ  *big.Int
	LocalN  *big.Int
}

// AuxInfoRound runs ECDSA-AUX-INFO: every party locally generates a fresh
// Paillier-like modulus and Pedersen parameters, broadcasts the public
// half in one round, and every party ends up holding the full party-aux
// table (spec's aux-info round shape, ahead of ECDSA-SIGN).
type AuxInfoRound struct {
	self      party.ID
	collector *roundCollector

	localP, localQ, localN *big.Int
	localAux               PartyAux

	parties map[party.ID]PartyAux

	status   statemachine.Status
	output   AuxInfo
	abortErr error
}

func NewAuxInfoRound(cluster *party.Cluster, self party.ID) *AuxInfoRound {
	return &AuxInfoRound{self: self, collector: newCollector(0, peerIDs(cluster), self)}
}

func generatePartyAux() (p, q, n *big.Int, aux PartyAux, err error) {
	p, err = rand.Prime(rand.Reader, auxInfoPrimeBits)
	if err != nil {
		return
	}
	q, err = rand.Prime(rand.Reader, auxInfoPrimeBits)
	if err != nil {
		return
	}
	n = new(big.Int).Mul(p, q)
	t, err := rand.Int(rand.Reader, n)
	if err != nil {
		return
	}
	lambda, err := rand.Int(rand.Reader, n)
	if err != nil {
		return
	}
	s := new(big.Int).Exp(t, lambda, n)
	aux = PartyAux{N: n, S: s, T: t}
	return
}

func encodePartyAux(self party.ID, aux PartyAux) []byte {
	nb, sb, tb := aux.N.Bytes(), aux.S.Bytes(), aux.T.Bytes()
	body := make([]byte, 0, 12+len(nb)+len(sb)+len(tb))
	var lens [3]uint32
	lens[0], lens[1], lens[2] = uint32(len(nb)), uint32(len(sb)), uint32(len(tb))
	for _, l := range lens {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], l)
		body = append(body, b[:]...)
	}
	body = append(body, nb...)
	body = append(body, sb...)
	body = append(body, tb...)
	return body
}

func decodePartyAux(body []byte) (PartyAux, error) {
	if len(body) < 12 {
		return PartyAux{}, fmt.Errorf("ecdsa: aux-info payload too short")
	}
	n0 := binary.BigEndian.Uint32(body[0:4])
	n1 := binary.BigEndian.Uint32(body[4:8])
	n2 := binary.BigEndian.Uint32(body[8:12])
	off := 12
	if len(body) < off+int(n0)+int(n1)+int(n2) {
		return PartyAux{}, fmt.Errorf("ecdsa: aux-info payload truncated")
	}
	nb := body[off : off+int(n0)]
	off += int(n0)
	sb := body[off : off+int(n1)]
	off += int(n1)
	tb := body[off : off+int(n2)]
	return PartyAux{
		N: new(big.Int).SetBytes(nb),
		S: new(big.Int).SetBytes(sb),
		T: new(big.Int).SetBytes(tb),
	}, nil
}

func (a *AuxInfoRound) Start() ([]statemachine.OutboundMessage, error) {
	a.status = statemachine.Running
	p, q, n, aux, err := generatePartyAux()
	if err != nil {
		return nil, err
	}
	a.localP, a.localQ, a.localN, a.localAux = p, q, n, aux
	a.parties = map[party.ID]PartyAux{a.self: aux}
	return []statemachine.OutboundMessage{{Round: 0, Tag: statemachine.TagField, Body: encodePartyAux(a.self, aux)}}, nil
}

func (a *AuxInfoRound) Deliver(msg statemachine.PeerMessage) ([]statemachine.OutboundMessage, error) {
	if a.status != statemachine.Running {
		return nil, nil
	}
	if !a.collector.accept(msg) {
		return nil, nil
	}
	aux, err := decodePartyAux(msg.Body)
	if err != nil {
		return nil, err
	}
	a.parties[msg.From] = aux
	if !a.collector.complete() {
		return nil, nil
	}
	a.output = AuxInfo{Parties: a.parties, LocalP: a.localP, LocalQ: a.localQ, LocalN: a.localN}
	a.status = statemachine.Done
	return nil, nil
}

func (a *AuxInfoRound) Status() statemachine.Status { return a.status }

func (a *AuxInfoRound) Output() (interface{}, error) {
	if a.status == statemachine.Aborted {
		return nil, a.abortErr
	}
	if a.status != statemachine.Done {
		return nil, statemachine.ErrNotDone
	}
	return a.output, nil
}
