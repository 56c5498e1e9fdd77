package sigrn

import (
	"errors"
	"fmt"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

// IMinusA returns I - masked(A_c) for every channel.
func IMinusA(adj *Adjacency) []*mat.Dense {
	eye := utils.Identity(adj.Genes)
	masked := adj.Masked()
	out := make([]*mat.Dense, adj.Channels)
	for c, m := range masked {
		out[c] = utils.ToDense(utils.Subtract(eye, m))
	}
	return out
}

// sumChannels collapses the channel axis. The contraction in ApplyStructural
// is linear in the channel index, so applying the summed matrix is the same
// as applying every channel and accumulating.
func sumChannels(mats []*mat.Dense) *mat.Dense {
	n, _ := mats[0].Dims()
	out := mat.NewDense(n, n, nil)
	for _, m := range mats {
		out.Add(out, m)
	}
	return out
}

// ApplyStructural computes out[s,h,d] = sum_c sum_g t[s,g,d] * mats[c][g,h].
func ApplyStructural(t *Tensor3, mats []*mat.Dense) *Tensor3 {
	return applySummed(t, sumChannels(mats))
}

func applySummed(t *Tensor3, m *mat.Dense) *Tensor3 {
	if r, c := m.Dims(); r != t.Genes || c != t.Genes {
		panic(fmt.Sprintf("applyStructural: matrix is %dx%d, tensor has %d genes", r, c, t.Genes))
	}
	out := NewTensor3(t.Samples, t.Genes, t.Features)
	for s := 0; s < t.Samples; s++ {
		out.Sample(s).Mul(t.Sample(s), m) // (d x g)(g x g)
	}
	return out
}

// InvertStructural inverts every channel of I-A. maxCond bounds the accepted
// condition number; <= 0 falls back to mat.ConditionTolerance.
func InvertStructural(mats []*mat.Dense, maxCond float64) ([]*mat.Dense, error) {
	if maxCond <= 0 {
		maxCond = mat.ConditionTolerance
	}
	out := make([]*mat.Dense, len(mats))
	for c, m := range mats {
		var inv mat.Dense
		err := inv.Inverse(m)
		if err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, fmt.Errorf("channel %d: %v: %w", c, err, ErrSingularTransform)
			}
			if float64(cond) > maxCond {
				return nil, fmt.Errorf("channel %d: condition number %g: %w", c, float64(cond), ErrSingularTransform)
			}
		}
		if maxCond < mat.ConditionTolerance {
			if cond := mat.Cond(m, 1); cond > maxCond {
				return nil, fmt.Errorf("channel %d: condition number %g: %w", c, cond, ErrSingularTransform)
			}
		}
		if !utils.AllFinite(&inv) {
			return nil, fmt.Errorf("channel %d: inverse has non-finite entries: %w", c, ErrSingularTransform)
		}
		out[c] = &inv
	}
	return out, nil
}
