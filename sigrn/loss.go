package sigrn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ReconstructionLoss is sum(mask*(x-xRec)^2) / count(mask). The mask changes
// the denominator as well as the numerator. An empty mask yields 0.
func ReconstructionLoss(x, xRec mat.Matrix, mask *Mask) float64 {
	r, c := x.Dims()
	n := mask.Count()
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !mask.At(i, j) {
				continue
			}
			d := x.At(i, j) - xRec.At(i, j)
			s += d * d
		}
	}
	return s / float64(n)
}

// KLDivergence is -0.5 * mean(1 + logvar - mu^2 - exp(logvar)) over every
// entry: the KL of N(mu, exp(logvar)) from N(0,1), averaged.
func KLDivergence(mu, logvar *Tensor3) float64 {
	r, c := mu.Data.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m := mu.Data.At(i, j)
			lv := logvar.Data.At(i, j)
			s += 1 + lv - m*m - math.Exp(lv)
		}
	}
	return -0.5 * s / float64(r*c)
}
