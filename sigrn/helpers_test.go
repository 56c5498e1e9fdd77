package sigrn

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func randomDense(r, c int, scale float64, src rand.Source) *mat.Dense {
	rng := rand.New(src)
	data := make([]float64, r*c)
	for i := range data {
		data[i] = scale * (rng.Float64()*2 - 1)
	}
	return mat.NewDense(r, c, data)
}

// finiteDiffCheck perturbs param[i,j] in both directions and compares the
// central difference of loss against the analytic gradient.
func finiteDiffCheck(t *testing.T, name string, param, grad *mat.Dense, loss func() float64, i, j int) {
	t.Helper()
	const eps = 1e-6

	w0 := param.At(i, j)
	param.Set(i, j, w0+eps)
	lp := loss()
	param.Set(i, j, w0-eps)
	lm := loss()
	param.Set(i, j, w0)

	num := (lp - lm) / (2 * eps)
	ana := grad.At(i, j)
	tol := 1e-5 * math.Max(1, math.Abs(num)+math.Abs(ana))
	if math.Abs(num-ana) > tol {
		t.Fatalf("%s[%d,%d] grad mismatch: num=%.8g ana=%.8g", name, i, j, num, ana)
	}
}

// corners returns a few (i, j) positions spread over an r x c matrix.
func corners(r, c int) [][2]int {
	return [][2]int{{0, 0}, {r - 1, c - 1}, {r / 2, c / 2}, {0, c - 1}}
}
