package sigrn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Augmenter zeroes random entries of the input to build a denoising target.
type Augmenter struct {
	Type DropoutType
	P    float64
	src  rand.Source
}

// Augmentation is what one Augment call produced.
type Augmentation struct {
	X     *mat.Dense // input with the selected entries zeroed
	Noise *mat.Dense // the removed values, zero elsewhere
	Mask  *Mask      // entries that were zeroed
}

func NewAugmenter(kind DropoutType, p float64, src rand.Source) (*Augmenter, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("dropout type %d: %w", int(kind), ErrInvalidConfig)
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("dropout probability %g outside [0,1]: %w", p, ErrInvalidConfig)
	}
	return &Augmenter{Type: kind, P: p, src: src}, nil
}

// Augment draws Bernoulli(p) per entry, intersects it with the value
// predicate of a.Type, and zeroes what remains selected. globalMean holds
// one mean per gene (column of x).
func (a *Augmenter) Augment(x mat.Matrix, globalMean []float64, p float64) (*Augmentation, error) {
	r, c := x.Dims()
	if len(globalMean) != c {
		return nil, fmt.Errorf("augment: %d means for %d genes: %w", len(globalMean), c, ErrShapeMismatch)
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("augment: probability %g outside [0,1]: %w", p, ErrInvalidConfig)
	}
	draw := distuv.Bernoulli{P: p, Src: a.src}
	out := mat.DenseCopyOf(x)
	noise := mat.NewDense(r, c, nil)
	mask := NewMask(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if draw.Rand() == 0 {
				continue
			}
			v := x.At(i, j)
			switch a.Type {
			case DropoutBelowMean:
				if !(v < globalMean[j]) {
					continue
				}
			case DropoutBelowHalfMean:
				if !(v < globalMean[j]/2) {
					continue
				}
			}
			mask.Set(i, j, true)
			noise.Set(i, j, v)
			out.Set(i, j, 0)
		}
	}
	return &Augmentation{X: out, Noise: noise, Mask: mask}, nil
}

// withSource returns a copy drawing from src.
func (a *Augmenter) withSource(src rand.Source) *Augmenter {
	cp := *a
	cp.src = src
	return &cp
}
