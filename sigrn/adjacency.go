package sigrn

import (
	"fmt"
	"math/rand/v2"

	"github.com/manningwu07/SIGRN/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// initJitter breaks the symmetry of the uniform 1/(n-1) start.
const initJitter = 0.0002

// Adjacency holds the trainable structural weights, one (Genes x Genes)
// matrix per channel. Entry [i][j] is the weight of gene i on gene j.
// Diagonals are stored but never used.
type Adjacency struct {
	Genes, Channels int
	channels        []*mat.Dense
}

// NewAdjacency starts every entry at 1/(genes-1) plus U(0, 2e-4) jitter.
func NewAdjacency(genes, channels int, src rand.Source) (*Adjacency, error) {
	if genes < 2 {
		return nil, fmt.Errorf("adjacency needs at least 2 genes, got %d: %w", genes, ErrInvalidConfig)
	}
	if channels < 1 {
		return nil, fmt.Errorf("adjacency needs at least 1 channel, got %d: %w", channels, ErrInvalidConfig)
	}
	jitter := distuv.Uniform{Min: 0, Max: initJitter, Src: src}
	base := 1.0 / float64(genes-1)
	a := &Adjacency{Genes: genes, Channels: channels, channels: make([]*mat.Dense, channels)}
	for c := range a.channels {
		data := make([]float64, genes*genes)
		for i := range data {
			data[i] = base + jitter.Rand()
		}
		a.channels[c] = mat.NewDense(genes, genes, data)
	}
	return a, nil
}

// NewAdjacencyFrom deep-copies a pretrained tensor. All channels must be
// square and share one size.
func NewAdjacencyFrom(pretrained []*mat.Dense) (*Adjacency, error) {
	if len(pretrained) == 0 {
		return nil, fmt.Errorf("pretrained adjacency has no channels: %w", ErrInvalidConfig)
	}
	genes, cols := pretrained[0].Dims()
	if genes != cols || genes < 2 {
		return nil, fmt.Errorf("pretrained adjacency is %dx%d: %w", genes, cols, ErrShapeMismatch)
	}
	a := &Adjacency{Genes: genes, Channels: len(pretrained), channels: make([]*mat.Dense, len(pretrained))}
	for c, m := range pretrained {
		if r, k := m.Dims(); r != genes || k != genes {
			return nil, fmt.Errorf("pretrained channel %d is %dx%d, want %dx%d: %w", c, r, k, genes, genes, ErrShapeMismatch)
		}
		a.channels[c] = mat.DenseCopyOf(m)
	}
	return a, nil
}

// Raw returns the live trainable channels. Callers outside the optimizer
// must treat them as read-only.
func (a *Adjacency) Raw() []*mat.Dense {
	return a.channels
}

// Masked returns copies of every channel with the diagonal zeroed.
func (a *Adjacency) Masked() []*mat.Dense {
	out := make([]*mat.Dense, a.Channels)
	for c, m := range a.channels {
		out[c] = utils.ZeroDiagonal(m)
	}
	return out
}

// Effective averages the masked channels into a detached snapshot.
func (a *Adjacency) Effective() *mat.Dense {
	out := mat.NewDense(a.Genes, a.Genes, nil)
	for _, m := range a.Masked() {
		out.Add(out, m)
	}
	out.Scale(1/float64(a.Channels), out)
	return out
}

// offDiagonal zeroes the diagonal of g in place. Gradients of masked
// entries are always zero.
func offDiagonal(g *mat.Dense) {
	n, _ := g.Dims()
	for i := 0; i < n; i++ {
		g.Set(i, i, 0)
	}
}
