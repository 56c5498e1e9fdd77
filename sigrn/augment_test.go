package sigrn

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAugmentZeroProbabilityIsIdentity(t *testing.T) {
	aug, err := NewAugmenter(DropoutAll, 0, rand.NewPCG(1, 1))
	require.NoError(t, err)

	x := randomDense(4, 3, 5, rand.NewPCG(2, 2))
	out, err := aug.Augment(x, []float64{0, 0, 0}, 0)
	require.NoError(t, err)
	require.True(t, mat.Equal(x, out.X))
	require.Zero(t, out.Mask.Count())
	require.Zero(t, mat.Sum(out.Noise))
}

func TestAugmentFullProbabilityZeroesEverything(t *testing.T) {
	aug, err := NewAugmenter(DropoutAll, 1, rand.NewPCG(1, 1))
	require.NoError(t, err)

	x := randomDense(4, 3, 5, rand.NewPCG(2, 2))
	out, err := aug.Augment(x, []float64{0, 0, 0}, 1)
	require.NoError(t, err)
	require.Zero(t, mat.Norm(out.X, 1))
	require.Equal(t, 12, out.Mask.Count())
	require.True(t, mat.Equal(x, out.Noise))

	// input is untouched
	require.NotZero(t, mat.Norm(x, 1))
}

func TestAugmentRespectsMeanPredicate(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{
		1, 10,
		4, 2,
	})
	mean := []float64{3, 5}

	cases := []struct {
		kind DropoutType
		want []float64
	}{
		{DropoutAll, []float64{0, 0, 0, 0}},
		{DropoutBelowMean, []float64{0, 10, 4, 0}},
		{DropoutBelowHalfMean, []float64{0, 10, 4, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			aug, err := NewAugmenter(tc.kind, 1, rand.NewPCG(1, 1))
			require.NoError(t, err)
			out, err := aug.Augment(x, mean, 1)
			require.NoError(t, err)
			require.Equal(t, tc.want, out.X.RawMatrix().Data)
		})
	}

	aug, _ := NewAugmenter(DropoutBelowHalfMean, 1, rand.NewPCG(1, 1))
	out, err := aug.Augment(mat.NewDense(1, 2, []float64{1.4, 1.6}), []float64{3, 3}, 1)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1.6}, out.X.RawMatrix().Data)
}

func TestAugmentIsDeterministicPerSource(t *testing.T) {
	x := randomDense(6, 6, 1, rand.NewPCG(3, 3))
	mean := make([]float64, 6)

	a1, _ := NewAugmenter(DropoutAll, 0.5, rand.NewPCG(9, 9))
	a2, _ := NewAugmenter(DropoutAll, 0.5, rand.NewPCG(9, 9))
	o1, err := a1.Augment(x, mean, 0.5)
	require.NoError(t, err)
	o2, err := a2.Augment(x, mean, 0.5)
	require.NoError(t, err)
	require.True(t, mat.Equal(o1.X, o2.X))
}

func TestAugmentRejectsBadInput(t *testing.T) {
	_, err := NewAugmenter(DropoutAll, 1.5, nil)
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewAugmenter(DropoutType(9), 0.1, nil)
	require.True(t, errors.Is(err, ErrInvalidConfig))

	aug, err := NewAugmenter(DropoutAll, 0.1, rand.NewPCG(1, 1))
	require.NoError(t, err)

	_, err = aug.Augment(mat.NewDense(2, 3, nil), []float64{0, 0}, 0.1)
	require.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = aug.Augment(mat.NewDense(2, 2, nil), []float64{0, 0}, -0.1)
	require.True(t, errors.Is(err, ErrInvalidConfig))
}
