package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			denom := math.Sqrt(vij*c2) + eps
			update := mij*c1/denom + weightDecay*p.At(i, j)
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*update)
		}
	}
}

// RMSpropUpdateInPlace keeps a running mean of squared gradients in v:
// v = alpha*v + (1-alpha)*g^2, p -= lr * g/(sqrt(v)+eps).
// Weight decay is folded into the gradient (L2), as torch.optim.RMSprop does.
func RMSpropUpdateInPlace(
	p, g, v *mat.Dense,
	lr, alpha, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("rmspropUpdateInPlace: grad shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("rmspropUpdateInPlace: v shape mismatch")
	}
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			pij := p.At(i, j)
			gij := g.At(i, j) + weightDecay*pij
			vij := alpha*v.At(i, j) + (1.0-alpha)*gij*gij
			v.Set(i, j, vij)
			p.Set(i, j, pij-lr*gij/(math.Sqrt(vij)+eps))
		}
	}
}
