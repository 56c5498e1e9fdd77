package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activations come in pairs:
// - xxxApply: shape-compatible with mat.Dense.Apply (i,j,v) -> value
// - xxxPrime: elementwise derivative given the pre-activation matrix

func TanhApply(i, j int, x float64) float64 {
	return math.Tanh(x)
}

func TanhPrime(m mat.Matrix) *mat.Dense {
	return primeOf(m, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})
}

func ReluApply(i, j int, x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func ReluPrime(m mat.Matrix) *mat.Dense {
	return primeOf(m, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

const leakySlope = 0.01

func LeakyReluApply(i, j int, x float64) float64 {
	if x > 0 {
		return x
	}
	return leakySlope * x
}

func LeakyReluPrime(m mat.Matrix) *mat.Dense {
	return primeOf(m, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return leakySlope
	})
}

func SigmoidApply(i, j int, x float64) float64 {
	return sigmoid(x)
}

func SigmoidPrime(m mat.Matrix) *mat.Dense {
	return primeOf(m, func(x float64) float64 {
		s := sigmoid(x)
		return s * (1 - s)
	})
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// -------- GELU activation (tanh approximation) --------
// gelu(x) = 0.5 * x * (1 + tanh( sqrt(2/pi) * (x + 0.044715*x^3) ))

func GeluApply(i, j int, x float64) float64 {
	const k = 0.7978845608028654 // sqrt(2/pi)
	t := k * (x + 0.044715*x*x*x)
	return 0.5 * x * (1.0 + math.Tanh(t))
}

func GeluPrime(m mat.Matrix) *mat.Dense {
	const k = 0.7978845608028654
	return primeOf(m, func(x float64) float64 {
		t := k * (x + 0.044715*x*x*x)
		th := math.Tanh(t)
		sech2 := 1 - th*th
		dt := k * (1.0 + 3.0*0.044715*x*x)
		return 0.5*(1.0+th) + 0.5*x*sech2*dt
	})
}

func primeOf(m mat.Matrix, f func(float64) float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, f(m.At(i, j)))
		}
	}
	return out
}
