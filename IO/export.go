package IO

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// ScoredEdge is one candidate link with its weight from the adjacency.
type ScoredEdge struct {
	Edge
	Weight float64
}

// RankEdges lists every ordered pair i != j scored by |adj[i][j]|,
// strongest first. Ties keep row-major order.
func RankEdges(genes []string, adj mat.Matrix) ([]ScoredEdge, error) {
	r, c := adj.Dims()
	if r != c || r != len(genes) {
		return nil, fmt.Errorf("adjacency is %dx%d for %d genes: %w", r, c, len(genes), ErrGeneMismatch)
	}
	out := make([]ScoredEdge, 0, r*(r-1))
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			if i == j {
				continue
			}
			out = append(out, ScoredEdge{Edge: Edge{From: genes[i], To: genes[j]}, Weight: math.Abs(adj.At(i, j))})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	return out, nil
}

// ExportEdgeList writes the ranked Gene1,Gene2,EdgeWeight table to path.
func ExportEdgeList(path string, genes []string, adj mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteEdgeList(f, genes, adj); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteEdgeList(w io.Writer, genes []string, adj mat.Matrix) error {
	edges, err := RankEdges(genes, adj)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write([]string{"Gene1", "Gene2", "EdgeWeight"}); err != nil {
		return err
	}
	for _, e := range edges {
		if err := cw.Write([]string{e.From, e.To, strconv.FormatFloat(e.Weight, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
