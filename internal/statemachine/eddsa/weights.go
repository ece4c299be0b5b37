package eddsa

import (
	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
)

// lagrangeAtZeroWeights returns each party's public Lagrange coefficient
// for reconstructing a degree-t secret at x=0 from the full party set —
// FROST calls this coefficient lambda_i and folds it directly into each
// signer's response share rather than combining raw shares afterward.
// Requires every one of cluster's parties to sign, the same full-set
// restriction internal/statemachine/ecdsa's copy of this helper documents.
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
