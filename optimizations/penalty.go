package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Penalty is a regularizer on the adjacency channels. Diagonals are masked
// out of both the value and the gradient.
type Penalty interface {
	Name() string
	Value(adj []*mat.Dense) float64
	// AddGrad accumulates d Value / d adj into grads, channel by channel.
	AddGrad(adj, grads []*mat.Dense)
}

// L1Penalty is Alpha * mean|A| over every entry of every channel, with the
// diagonal counted as zero.
type L1Penalty struct {
	Alpha float64
}

func (L1Penalty) Name() string { return "sparse" }

func (l L1Penalty) Value(adj []*mat.Dense) float64 {
	n, _ := adj[0].Dims()
	s := 0.0
	for _, a := range adj {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					s += math.Abs(a.At(i, j))
				}
			}
		}
	}
	return l.Alpha * s / float64(len(adj)*n*n)
}

func (l L1Penalty) AddGrad(adj, grads []*mat.Dense) {
	n, _ := adj[0].Dims()
	scale := l.Alpha / float64(len(adj)*n*n)
	for c, a := range adj {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				grads[c].Set(i, j, grads[c].At(i, j)+scale*sign(a.At(i, j)))
			}
		}
	}
}

// AcyclicityPenalty is Scale * (tr(exp(W∘W)) - n) where W is the
// channel-mean adjacency with a zero diagonal. It is zero exactly when W
// describes a DAG.
type AcyclicityPenalty struct {
	Scale float64
}

func (AcyclicityPenalty) Name() string { return "acyclic" }

func (p AcyclicityPenalty) Value(adj []*mat.Dense) float64 {
	_, e := expSquared(adj)
	n, _ := e.Dims()
	return p.Scale * (mat.Trace(e) - float64(n))
}

// d/dW tr(exp(W∘W)) = exp(W∘W)^T ∘ 2W, split evenly over the channels.
func (p AcyclicityPenalty) AddGrad(adj, grads []*mat.Dense) {
	w, e := expSquared(adj)
	n, _ := w.Dims()
	scale := 2 * p.Scale / float64(len(adj))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := scale * e.At(j, i) * w.At(i, j)
			for c := range grads {
				grads[c].Set(i, j, grads[c].At(i, j)+d)
			}
		}
	}
}

// expSquared returns W (channel mean, zero diagonal) and exp(W∘W).
func expSquared(adj []*mat.Dense) (w, e *mat.Dense) {
	n, _ := adj[0].Dims()
	w = mat.NewDense(n, n, nil)
	for _, a := range adj {
		w.Add(w, a)
	}
	w.Scale(1/float64(len(adj)), w)
	for i := 0; i < n; i++ {
		w.Set(i, i, 0)
	}
	var sq mat.Dense
	sq.MulElem(w, w)
	e = &mat.Dense{}
	e.Exp(&sq)
	return w, e
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
