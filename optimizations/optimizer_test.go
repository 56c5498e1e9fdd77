package optimizations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAdamFirstStepMovesByLR(t *testing.T) {
	p := mat.NewDense(1, 2, []float64{1, -1})
	g := mat.NewDense(1, 2, []float64{0.3, -5})
	m := mat.NewDense(1, 2, nil)
	v := mat.NewDense(1, 2, nil)

	AdamUpdateInPlace(p, g, m, v, 1, 0.1, 0.9, 0.999, 1e-12, 0)
	// bias-corrected first step is lr * sign(g)
	require.InDelta(t, 0.9, p.At(0, 0), 1e-9)
	require.InDelta(t, -0.9, p.At(0, 1), 1e-9)
}

func TestRMSpropUpdate(t *testing.T) {
	p := mat.NewDense(1, 1, []float64{2})
	g := mat.NewDense(1, 1, []float64{0.5})
	v := mat.NewDense(1, 1, nil)

	RMSpropUpdateInPlace(p, g, v, 0.01, 0.99, 0, 0)
	wantV := 0.01 * 0.25
	require.InDelta(t, wantV, v.At(0, 0), 1e-15)
	require.InDelta(t, 2-0.01*0.5/math.Sqrt(wantV), p.At(0, 0), 1e-12)
}

func TestUpdatesPanicOnShapeMismatch(t *testing.T) {
	p := mat.NewDense(2, 2, nil)
	require.Panics(t, func() {
		AdamUpdateInPlace(p, mat.NewDense(1, 2, nil), mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil), 1, 0.1, 0.9, 0.999, 1e-8, 0)
	})
	require.Panics(t, func() {
		RMSpropUpdateInPlace(p, mat.NewDense(2, 2, nil), mat.NewDense(2, 1, nil), 0.1, 0.99, 1e-8, 0)
	})
}

func TestOptimizerMinimizesQuadratic(t *testing.T) {
	for _, kind := range []Kind{Adam, RMSprop} {
		t.Run(kind.String(), func(t *testing.T) {
			o := New(kind, Hyper{Beta1: 0.9, Beta2: 0.999, Alpha: 0.99, Eps: 1e-8})
			p := mat.NewDense(2, 2, []float64{3, -2, 1, 4})
			for i := 0; i < 2000; i++ {
				g := mat.DenseCopyOf(p)
				g.Scale(2, g) // d/dp |p|^2
				o.Step("w", p, g, 0.01)
			}
			require.Equal(t, 2000, o.Steps("w"))
			require.Zero(t, o.Steps("other"))
			require.Less(t, mat.Norm(p, 2), 0.1)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Adam")
	require.NoError(t, err)
	require.Equal(t, Adam, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	require.Equal(t, RMSprop, k)

	_, err = ParseKind("sgd")
	require.Error(t, err)
}
