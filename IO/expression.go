package IO

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyData    = errors.New("io: no expression values")
	ErrRaggedRow    = errors.New("io: ragged csv row")
	ErrBadValue     = errors.New("io: invalid expression value")
	ErrGeneMismatch = errors.New("io: gene list does not match matrix")
)

// Dataset is an expression matrix with cells as rows and genes as columns.
type Dataset struct {
	X     *mat.Dense
	Genes []string
	Cells []string
}

type LoadOptions struct {
	// CellsAsRows reads files already laid out cell x gene. BEELINE files
	// are gene x cell and get transposed.
	CellsAsRows bool
	// Log1p replaces every value v with log(1+v).
	Log1p bool
}

// LoadExpressionCSV reads a BEELINE style ExpressionData.csv: a header row
// of ids, then one row per gene (or per cell) whose first field is its name.
func LoadExpressionCSV(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadExpression(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadExpression is LoadExpressionCSV over an arbitrary reader.
func ReadExpression(r io.Reader, opts LoadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyData
	}
	if err != nil {
		return nil, err
	}
	cols := header[1:]

	var rowNames []string
	var values []float64
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d: %w", line, len(rec), len(header), ErrRaggedRow)
		}
		rowNames = append(rowNames, strings.TrimSpace(rec[0]))
		for k, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("line %d column %q: %q: %w", line, cols[k], field, ErrBadValue)
			}
			if opts.Log1p {
				v = math.Log1p(v)
			}
			values = append(values, v)
		}
	}
	if len(rowNames) == 0 || len(cols) == 0 {
		return nil, ErrEmptyData
	}

	m := mat.NewDense(len(rowNames), len(cols), values)
	if opts.CellsAsRows {
		return &Dataset{X: m, Genes: cols, Cells: rowNames}, nil
	}
	return &Dataset{X: mat.DenseCopyOf(m.T()), Genes: rowNames, Cells: cols}, nil
}

// Stats returns the per-gene mean and standard deviation. The deviation is
// the unbiased sample estimate; a single cell gives zero.
func (d *Dataset) Stats() (mean, std []float64) {
	cells, genes := d.X.Dims()
	mean = make([]float64, genes)
	std = make([]float64, genes)
	col := make([]float64, cells)
	for g := 0; g < genes; g++ {
		mat.Col(col, g, d.X)
		mean[g], std[g] = stat.MeanStdDev(col, nil)
		if cells < 2 {
			std[g] = 0
		}
	}
	return mean, std
}

// Split shuffles cells with seed and returns the first frac of them as the
// training set and the rest as the test set. frac >= 1 returns d and nil.
func (d *Dataset) Split(frac float64, seed uint64) (train, test *Dataset) {
	if frac >= 1 {
		return d, nil
	}
	cells, _ := d.X.Dims()
	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(cells)
	n := int(math.Round(frac * float64(cells)))
	n = max(1, min(n, cells-1))
	return d.subset(perm[:n]), d.subset(perm[n:])
}

func (d *Dataset) subset(rows []int) *Dataset {
	_, genes := d.X.Dims()
	x := mat.NewDense(len(rows), genes, nil)
	names := make([]string, len(rows))
	for i, r := range rows {
		x.SetRow(i, d.X.RawRowView(r))
		if r < len(d.Cells) {
			names[i] = d.Cells[r]
		}
	}
	return &Dataset{X: x, Genes: d.Genes, Cells: names}
}

// Rows copies the cells in idx into one matrix, in idx order.
func (d *Dataset) Rows(idx []int) *mat.Dense {
	_, genes := d.X.Dims()
	out := mat.NewDense(len(idx), genes, nil)
	for i, r := range idx {
		out.SetRow(i, d.X.RawRowView(r))
	}
	return out
}

// GeneIndex maps gene names to their column.
func (d *Dataset) GeneIndex() map[string]int {
	idx := make(map[string]int, len(d.Genes))
	for i, g := range d.Genes {
		idx[g] = i
	}
	return idx
}
