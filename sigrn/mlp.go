package sigrn

import (
	"math/rand/v2"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
)

// MLP is a three-layer perceptron shared by every (sample, gene) position.
// Inputs are (Inputs x N); each column is one position.
type MLP struct {
	Inputs, Hiddens, Outputs int
	Act                      Activation

	L1Weights, L1Bias *mat.Dense // (h x in), (h x 1)
	L2Weights, L2Bias *mat.Dense // (h x h),  (h x 1)
	L3Weights, L3Bias *mat.Dense // (out x h), (out x 1)
}

// mlpTrace keeps what backprop needs from one Forward call.
type mlpTrace struct {
	input, pre1, h1, pre2, h2 *mat.Dense
}

// MLPGrads mirrors the MLP parameters.
type MLPGrads struct {
	L1Weights, L1Bias *mat.Dense
	L2Weights, L2Bias *mat.Dense
	L3Weights, L3Bias *mat.Dense
}

// NewMLP draws Xavier-normal weights and zero biases.
func NewMLP(in, hidden, out int, act Activation, src rand.Source) *MLP {
	return &MLP{
		Inputs:    in,
		Hiddens:   hidden,
		Outputs:   out,
		Act:       act,
		L1Weights: mat.NewDense(hidden, in, utils.XavierNormal(hidden, in, src)),
		L1Bias:    mat.NewDense(hidden, 1, nil),
		L2Weights: mat.NewDense(hidden, hidden, utils.XavierNormal(hidden, hidden, src)),
		L2Bias:    mat.NewDense(hidden, 1, nil),
		L3Weights: mat.NewDense(out, hidden, utils.XavierNormal(out, hidden, src)),
		L3Bias:    mat.NewDense(out, 1, nil),
	}
}

// Forward maps (Inputs x N) to (Outputs x N). No activation after the last layer.
func (m *MLP) Forward(X *mat.Dense) (*mat.Dense, *mlpTrace) {
	if r, _ := X.Dims(); r != m.Inputs {
		panic("mlp: input feature count mismatch")
	}
	pre1 := utils.AddBias(utils.ToDense(utils.Dot(m.L1Weights, X)), m.L1Bias) // (h x N)
	h1 := utils.ToDense(utils.Apply(m.Act.apply, pre1))
	pre2 := utils.AddBias(utils.ToDense(utils.Dot(m.L2Weights, h1)), m.L2Bias) // (h x N)
	h2 := utils.ToDense(utils.Apply(m.Act.apply, pre2))
	out := utils.AddBias(utils.ToDense(utils.Dot(m.L3Weights, h2)), m.L3Bias) // (out x N)
	return out, &mlpTrace{input: X, pre1: pre1, h1: h1, pre2: pre2, h2: h2}
}

// Backward takes dL/dOut (Outputs x N) and returns dL/dX plus parameter grads.
func (m *MLP) Backward(tr *mlpTrace, grad *mat.Dense) (*mat.Dense, *MLPGrads) {
	g := &MLPGrads{}

	g.L3Weights = utils.ToDense(utils.Dot(grad, tr.h2.T()))
	g.L3Bias = utils.RowSums(grad)

	dH2 := utils.ToDense(utils.Dot(m.L3Weights.T(), grad))
	dPre2 := utils.ToDense(utils.Multiply(dH2, m.Act.prime(tr.pre2)))
	g.L2Weights = utils.ToDense(utils.Dot(dPre2, tr.h1.T()))
	g.L2Bias = utils.RowSums(dPre2)

	dH1 := utils.ToDense(utils.Dot(m.L2Weights.T(), dPre2))
	dPre1 := utils.ToDense(utils.Multiply(dH1, m.Act.prime(tr.pre1)))
	g.L1Weights = utils.ToDense(utils.Dot(dPre1, tr.input.T()))
	g.L1Bias = utils.RowSums(dPre1)

	dX := utils.ToDense(utils.Dot(m.L1Weights.T(), dPre1))
	return dX, g
}

func (m *MLP) params() []*mat.Dense {
	return []*mat.Dense{m.L1Weights, m.L1Bias, m.L2Weights, m.L2Bias, m.L3Weights, m.L3Bias}
}

func (g *MLPGrads) list() []*mat.Dense {
	return []*mat.Dense{g.L1Weights, g.L1Bias, g.L2Weights, g.L2Bias, g.L3Weights, g.L3Bias}
}

func zeroMLPGrads(m *MLP) *MLPGrads {
	return &MLPGrads{
		L1Weights: utils.ZerosLike(m.L1Weights), L1Bias: utils.ZerosLike(m.L1Bias),
		L2Weights: utils.ZerosLike(m.L2Weights), L2Bias: utils.ZerosLike(m.L2Bias),
		L3Weights: utils.ZerosLike(m.L3Weights), L3Bias: utils.ZerosLike(m.L3Bias),
	}
}
