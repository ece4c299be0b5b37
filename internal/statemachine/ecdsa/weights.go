package ecdsa

import (
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
)

// lagrangeAtZeroWeights returns, for every party in cluster, the public
// Lagrange coefficient that reconstructs a degree-t secret at x=0 from the
// full party set's shares. ECDSA-SIGN uses these same weights to combine
// per-party nonce points R_i=k_i*G into the group point R=k*G directly
// over the curve, without ever reconstructing k itself.
//
// This requires every one of cluster's n parties to contribute, not an
// arbitrary t+1 quorum — the signing round in this package does not
// support the dropout/quorum-selection flexibility a production threshold
// signer would offer; see DESIGN.md.
func lagrangeAtZeroWeights(f *field.Field, cluster *party.Cluster) (map[party.ID]field.Element, error) {
	parties := cluster.Parties()
	xs := make(map[party.ID]field.Element, len(parties))
	for _, p := range parties {
		x, err := cluster.AbscissaElem(f, p.ID)
		if err != nil {
			return nil, err
		}
		xs[p.ID] = x
	}

	weights := make(map[party.ID]field.Element, len(parties))
	for _, pi := range parties {
		xi := xs[pi.ID]
		num, den := f.One(), f.One()
		for _, pj := range parties {
			if pj.ID == pi.ID {
				continue
			}
			xj := xs[pj.ID]
			num = f.Mul(num, f.Neg(xj))
			den = f.Mul(den, f.Sub(xi, xj))
		}
		denInv, err := f.Inverse(den)
		if err != nil {
			return nil, err
		}
		weights[pi.ID] = f.Mul(num, denInv)
	}
	return weights, nil
}
