package ecdsa

import (
	"fmt"
	"math/big"

	"github.com/nilmpc/mpcnode/internal/party"
)

// fakeP, fakeQ are fixed primes (of 513 and 512 bits) shared by every party and every
// run, mirroring original_source's fake.rs CACHED_AUX_INFO: a single
// hardcoded BaseDirtyAuxInfo reused across all n parties rather than one
// freshly sampled per party. Insecure by construction (the factorization
// is baked into the binary) and exists only to skip AuxInfoRound's prime
// generation cost in devnet/test clusters.
var (
	fakeP, _ = new(big.Int).SetString("13407807929942597099574024998205846127479365820592393377723561443721764030073546976801874298166903427690031858186486050853753882811946569946433649006084171", 10)
	fakeQ, _ = new(big.Int).SetString("10055855947456947824680518748654384595609524365444295033292671082791323022555160232601405723625177570767523893639864538140315412108959927459825236754563833", 10)
)

// FakeAuxInfo produces the same AuxInfo shape as AuxInfoRound, but derived
// from one fixed, publicly-known prime pair instead of a fresh keygen. It
// refuses to run unless insecureFakeAuxInfoEnabled (the caller's
// ClusterConfig.InsecureFakeAuxInfo) is true; the devnet-mode check on
// that setting is made by cmd/mpcnode's loadCluster, not here.
func FakeAuxInfo(parties []party.ID, self party.ID, insecureFakeAuxInfoEnabled bool) (AuxInfo, error) {
	if !insecureFakeAuxInfoEnabled {
		return AuxInfo{}, fmt.Errorf("ecdsa: FakeAuxInfo requires ClusterConfig.InsecureFakeAuxInfo")
	}
	n := new(big.Int).Mul(fakeP, fakeQ)
	t := big.NewInt(2)
	lambda := big.NewInt(3)
	s := new(big.Int).Exp(t, lambda, n)
	aux := PartyAux{N: n, S: s, T: t}

	out := AuxInfo{Parties: make(map[party.ID]PartyAux, len(parties)), LocalP: fakeP, LocalQ: fakeQ, LocalN: n}
	for _, p := range parties {
		out.Parties[p] = aux
	}
	return out, nil
}
