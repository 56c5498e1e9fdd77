package utils

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/manningwu07/SIGRN/params"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// XavierNormal draws rows*cols weights from N(0, 2/(fanIn+fanOut)).
func XavierNormal(rows, cols int, src rand.Source) []float64 {
	std := math.Sqrt(2.0 / float64(rows+cols))
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func ToDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func ZerosLike(a mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func MatrixNorm(m *mat.Dense) float64 {
	return mat.Norm(m, 2)
}

// debugging and clipping.

// Debugf prints only when params.Config.Debug is set.
func Debugf(format string, args ...any) {
	if !params.Config.Debug {
		return
	}
	fmt.Printf("[debug] "+format+"\n", args...)
}

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the scale actually applied (<=1.0) or 1.0 if no clip.
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := mat.Norm(g, 2)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if gn <= maxNorm || gn == 0 {
		return 1.0
	}
	s := maxNorm / gn
	for _, g := range grads {
		if g != nil {
			g.Scale(s, g)
		}
	}
	return s
}
