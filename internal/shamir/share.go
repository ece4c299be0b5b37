package shamir

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
)

// Share is a single party's evaluation of a degree-t Shamir polynomial
// (spec §GLOSSARY "Shamir share").
type Share struct {
	Value field.Element
}

// Split generates n shares of secret, one per party in cluster, using a
// fresh random degree-t polynomial (t = cluster.Threshold()).
func Split(f *field.Field, cluster *party.Cluster, secret field.Element) (map[party.ID]Share, error) {
	poly, err := RandomPolynomial(f, secret, cluster.Threshold())
	if err != nil {
		return nil, err
	}
	shares := make(map[party.ID]Share, cluster.N())
	for _, p := range cluster.Parties() {
		x, err := cluster.AbscissaElem(f, p.ID)
		if err != nil {
			return nil, err
		}
		shares[p.ID] = Share{Value: poly.Eval(x)}
	}
	return shares, nil
}

// Reconstruct recovers the secret from a set of shares via plain Lagrange
// interpolation at zero. It assumes every share is honest; callers that
// need robustness to corrupted shares must use Decode (Gao decoding)
// instead. Returns an error unless at least t+1 distinct shares are given.
func Reconstruct(f *field.Field, cluster *party.Cluster, shares map[party.ID]Share) (field.Element, error) {
	need := cluster.Threshold() + 1
	if len(shares) < need {
		return field.Element{}, fmt.Errorf("shamir: need at least %d shares to reconstruct, got %d", need, len(shares))
	}
	points := make([]Point, 0, len(shares))
	for id, sh := range shares {
		x, err := cluster.AbscissaElem(f, id)
		if err != nil {
			return field.Element{}, err
		}
		points = append(points, Point{X: x, Y: sh.Value})
	}
	return lagrangeAtZero(f, points)
}

// LinearCombination computes α·[a] + β·[b] locally on shares, used by the
// Add/Sub/Mul(share,public) LOCAL protocols (spec §8 "Homomorphism").
func LinearCombination(f *field.Field, alpha field.Element, a Share, beta field.Element, b Share) Share {
	return Share{Value: f.Add(f.Mul(alpha, a.Value), f.Mul(beta, b.Value))}
}
