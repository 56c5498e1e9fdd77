package sigrn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor3 is a [sample, gene, feature] block stored feature-major:
// Data is (Features x Samples*Genes) and column s*Genes+g holds gene g of sample s.
type Tensor3 struct {
	Samples, Genes, Features int
	Data                     *mat.Dense
}

func NewTensor3(samples, genes, features int) *Tensor3 {
	return &Tensor3{
		Samples:  samples,
		Genes:    genes,
		Features: features,
		Data:     mat.NewDense(features, samples*genes, nil),
	}
}

// wrapTensor3 takes ownership of data, which must be (features x samples*genes).
func wrapTensor3(samples, genes int, data *mat.Dense) *Tensor3 {
	f, n := data.Dims()
	if n != samples*genes {
		panic(fmt.Sprintf("wrapTensor3: %d columns, expected %d", n, samples*genes))
	}
	return &Tensor3{Samples: samples, Genes: genes, Features: f, Data: data}
}

func (t *Tensor3) At(s, g, d int) float64 {
	return t.Data.At(d, s*t.Genes+g)
}

func (t *Tensor3) Set(s, g, d int, v float64) {
	t.Data.Set(d, s*t.Genes+g, v)
}

// Sample returns the (Features x Genes) view of sample s. Writes go through.
func (t *Tensor3) Sample(s int) *mat.Dense {
	return t.Data.Slice(0, t.Features, s*t.Genes, (s+1)*t.Genes).(*mat.Dense)
}

// FeatureRange returns a copy holding features [from, to).
func (t *Tensor3) FeatureRange(from, to int) *Tensor3 {
	n := t.Samples * t.Genes
	return wrapTensor3(t.Samples, t.Genes, mat.DenseCopyOf(t.Data.Slice(from, to, 0, n)))
}

// Matrix flattens a single-feature tensor back to [samples x genes].
func (t *Tensor3) Matrix() *mat.Dense {
	if t.Features != 1 {
		panic("tensor3: Matrix needs exactly one feature")
	}
	return mat.NewDense(t.Samples, t.Genes, append([]float64(nil), t.Data.RawRowView(0)...))
}

// fromMatrix lifts [samples x genes] into a single-feature tensor.
func fromMatrix(x mat.Matrix) *Tensor3 {
	s, g := x.Dims()
	t := NewTensor3(s, g, 1)
	for i := 0; i < s; i++ {
		for j := 0; j < g; j++ {
			t.Data.Set(0, i*g+j, x.At(i, j))
		}
	}
	return t
}

// Mask is a boolean selector over a [samples x genes] matrix.
type Mask struct {
	Rows, Cols int
	bits       []bool
}

func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, bits: make([]bool, rows*cols)}
}

// FullMask selects every entry.
func FullMask(rows, cols int) *Mask {
	m := NewMask(rows, cols)
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

// NonZeroMask selects the entries of x that are not exactly zero.
func NonZeroMask(x mat.Matrix) *Mask {
	r, c := x.Dims()
	m := NewMask(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.bits[i*c+j] = x.At(i, j) != 0
		}
	}
	return m
}

func (m *Mask) At(i, j int) bool { return m.bits[i*m.Cols+j] }

func (m *Mask) Set(i, j int, v bool) { m.bits[i*m.Cols+j] = v }

// Count returns the number of selected entries.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Dense returns the mask as a 0/1 matrix.
func (m *Mask) Dense() *mat.Dense {
	out := mat.NewDense(m.Rows, m.Cols, nil)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if m.At(i, j) {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}
