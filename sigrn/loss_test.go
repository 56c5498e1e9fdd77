package sigrn

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestKLDivergenceZeroAtPrior(t *testing.T) {
	require.Zero(t, KLDivergence(NewTensor3(3, 4, 2), NewTensor3(3, 4, 2)))
}

func TestKLDivergenceKnownValue(t *testing.T) {
	// mu=1, logvar=0: -0.5*(1+0-1-1) = 0.5 per entry
	require.InDelta(t, 0.5, KLDivergence(constTensor(2, 2, 1, 1), NewTensor3(2, 2, 1)), 1e-12)
}

func TestReconstructionLossFullMaskIsMSE(t *testing.T) {
	src := rand.NewPCG(1, 1)
	x := randomDense(3, 4, 1, src)
	y := randomDense(3, 4, 1, src)

	var d mat.Dense
	d.Sub(x, y)
	d.MulElem(&d, &d)
	mse := mat.Sum(&d) / 12

	require.InDelta(t, mse, ReconstructionLoss(x, y, FullMask(3, 4)), 1e-12)
}

func TestReconstructionLossMaskedDenominator(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 0, 3, 0})
	y := mat.NewDense(2, 2, []float64{0, 5, 1, 5})

	// only the two nonzero entries count: (1 + 4) / 2
	require.InDelta(t, 2.5, ReconstructionLoss(x, y, NonZeroMask(x)), 1e-12)
	require.Zero(t, ReconstructionLoss(x, y, NewMask(2, 2)))
}
