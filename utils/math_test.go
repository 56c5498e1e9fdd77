package utils

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAddBiasBroadcasts(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	out := AddBias(m, mat.NewDense(2, 1, []float64{10, -1}))
	require.Equal(t, []float64{11, 12, 13, 3, 4, 5}, out.RawMatrix().Data)

	require.Panics(t, func() { AddBias(m, mat.NewDense(3, 1, nil)) })
}

func TestRowSums(t *testing.T) {
	out := RowSums(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	require.Equal(t, []float64{6, 15}, out.RawMatrix().Data)
}

func TestZeroDiagonalCopies(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	out := ZeroDiagonal(m)
	require.Equal(t, []float64{0, 2, 3, 0}, out.RawMatrix().Data)
	require.Equal(t, 1.0, m.At(0, 0))
}

func TestSanitizeNonFinite(t *testing.T) {
	m := mat.NewDense(1, 4, []float64{math.NaN(), math.Inf(1), math.Inf(-1), 2})
	require.False(t, AllFinite(m))

	out := SanitizeNonFinite(m)
	require.Equal(t, []float64{0, 0, 0, 2}, out.RawMatrix().Data)
	require.True(t, AllFinite(out))
	require.True(t, math.IsNaN(m.At(0, 0)))
}

func TestMeanAbs(t *testing.T) {
	require.InDelta(t, 2.5, MeanAbs(mat.NewDense(2, 2, []float64{-1, 2, -3, 4})), 1e-12)
}

func TestClipGrads(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{3, 0})
	b := mat.NewDense(1, 1, []float64{4})

	s := ClipGrads(1, a, b, nil)
	require.InDelta(t, 0.2, s, 1e-12)
	require.InDelta(t, 0.6, a.At(0, 0), 1e-12)
	require.InDelta(t, 0.8, b.At(0, 0), 1e-12)

	require.Equal(t, 1.0, ClipGrads(10, a, b))
	require.Equal(t, 1.0, ClipGrads(0, a, b))
}

func TestXavierNormalIsSeeded(t *testing.T) {
	a := XavierNormal(20, 30, rand.NewPCG(1, 2))
	b := XavierNormal(20, 30, rand.NewPCG(1, 2))
	require.Equal(t, a, b)
	require.Len(t, a, 600)

	var sq float64
	for _, v := range a {
		sq += v * v
	}
	// variance should sit near 2/(20+30)
	require.InDelta(t, 0.04, sq/600, 0.01)
}

func TestActivationPrimes(t *testing.T) {
	pairs := map[string]struct {
		apply func(i, j int, v float64) float64
		prime func(mat.Matrix) *mat.Dense
	}{
		"tanh":    {TanhApply, TanhPrime},
		"sigmoid": {SigmoidApply, SigmoidPrime},
		"gelu":    {GeluApply, GeluPrime},
		"relu":    {ReluApply, ReluPrime},
		"leaky":   {LeakyReluApply, LeakyReluPrime},
	}
	xs := []float64{-2.3, -0.4, 0.3, 1.7}
	for name, p := range pairs {
		t.Run(name, func(t *testing.T) {
			d := p.prime(mat.NewDense(1, len(xs), xs))
			for k, x := range xs {
				const h = 1e-6
				num := (p.apply(0, 0, x+h) - p.apply(0, 0, x-h)) / (2 * h)
				require.InDelta(t, num, d.At(0, k), 1e-6, "x=%g", x)
			}
		})
	}
}
