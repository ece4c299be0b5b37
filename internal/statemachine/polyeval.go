package statemachine

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/party"
	"github.com/nilmpc/mpcnode/internal/runtime"
	"github.com/nilmpc/mpcnode/internal/shamir"
)

// NewPolyEval evaluates a public-coefficient degree-d polynomial at a
// secret point x (spec's POLY-EVAL). Horner's method turns this into d
// sequential Mul(share·share) calls — acc = c_d; acc = acc*x + c_i for i
// from d-1 down to 0 — each consuming one triple, each adding its
// coefficient locally once the multiplication lands. coeffs is ordered
// lowest-degree first, coeffs[0] the constant term.
func NewPolyEval(f *field.Field, cluster *party.Cluster, self party.ID, coeffs []field.Element, x shamir.Share, triples []runtime.Triple) Machine {
	d := len(coeffs) - 1
	if d < 0 {
		return newLocal(nil, fmt.Errorf("statemachine: PolyEval requires at least one coefficient"))
	}
	if d == 0 {
		return newLocal(shamir.Share{Value: coeffs[0]}, nil)
	}
	if len(triples) < d {
		return newLocal(nil, fmt.Errorf("statemachine: PolyEval needs %d triples, got %d", d, len(triples)))
	}

	initial := shamir.Share{Value: coeffs[d]}
	stages := make([]stage, d)
	for k := 0; k < d; k++ {
		k := k
		coeff := coeffs[d-1-k]
		stages[k] = func(prior []interface{}) (Machine, error) {
			var acc shamir.Share
			if k == 0 {
				acc = initial
			} else {
				acc = prior[k-1].(shamir.Share)
			}
			return &hornerFold{f: f, coeff: coeff, mul: NewMulShareShare(f, cluster, self, acc, x, triples[k])}, nil
		}
	}

	return newSequencer(2,
		func(results []interface{}) (interface{}, error) {
			return results[d-1], nil
		},
		stages...,
	)
}

// hornerFold wraps one Horner step's MulShareShare(acc,x) product and
// folds it into acc*x + coeff once the multiplication completes.
type hornerFold struct {
	f     *field.Field
	coeff field.Element
	mul   Machine
}

func (h *hornerFold) Start() ([]OutboundMessage, error)                  { return h.mul.Start() }
func (h *hornerFold) Deliver(msg PeerMessage) ([]OutboundMessage, error) { return h.mul.Deliver(msg) }
func (h *hornerFold) Status() Status                                    { return h.mul.Status() }
func (h *hornerFold) Output() (interface{}, error) {
	out, err := h.mul.Output()
	if err != nil {
		return nil, err
	}
	product := out.(shamir.Share).Value
	return shamir.Share{Value: h.f.Add(product, h.coeff)}, nil
}
